package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"meta-anchor/model"

	"github.com/cockroachdb/pebble"
)

// PebbleDatabase embedded implementation, one PebbleDB per collection
type PebbleDatabase struct {
	collections map[string]*pebble.DB

	userMu     sync.Mutex // serializes the check-then-insert in CreateUser
	transferMu sync.Mutex // guards transferID and the counter row
	transferID int64      // last id reserved on disk
}

// PebbleConfig PebbleDB configuration
type PebbleConfig struct {
	DataDir string
}

// Collection names and their key-value formats
const (
	collectionUsers          = "users"           // key: {user_id}, value: JSON(User)
	collectionUserWallet     = "user_wallet"     // key: {wallet_address}, value: {user_id}
	collectionTransfers      = "token_transfers" // key: {id:020d}, value: JSON(TokenTransfer)
	collectionTransferByAddr = "transfer_addr"   // key: {address}:{id:020d}, value: {id:020d}
	collectionCounters       = "counters"        // key: transfer, value: {max_id}
)

const keyTransferCounter = "transfer"

var timeNow = time.Now

// NewPebbleDatabase create PebbleDB database instance with multiple collections
func NewPebbleDatabase(config interface{}) (Database, error) {
	cfg, ok := config.(*PebbleConfig)
	if !ok {
		return nil, fmt.Errorf("invalid PebbleDB config type")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	log.Printf("PebbleDB data directory: %s", cfg.DataDir)

	collectionNames := []string{
		collectionUsers,
		collectionUserWallet,
		collectionTransfers,
		collectionTransferByAddr,
		collectionCounters,
	}

	collections := make(map[string]*pebble.DB)
	for _, name := range collectionNames {
		collectionPath := filepath.Join(cfg.DataDir, "anchor_db", name)
		db, err := pebble.Open(collectionPath, &pebble.Options{})
		if err != nil {
			for _, openedDB := range collections {
				openedDB.Close()
			}
			return nil, fmt.Errorf("failed to open collection %s at %s: %w", name, collectionPath, err)
		}
		collections[name] = db
	}

	pdb := &PebbleDatabase{
		collections: collections,
	}

	if err := pdb.loadTransferID(); err != nil {
		pdb.Close()
		return nil, err
	}

	log.Printf("PebbleDB database connected successfully with %d collections", len(collections))
	return pdb, nil
}

func (p *PebbleDatabase) get(collection string, key string) ([]byte, error) {
	val, closer, err := p.collections[collection].Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// User operations

func (p *PebbleDatabase) CreateUser(user *model.User) error {
	p.userMu.Lock()
	defer p.userMu.Unlock()

	if _, err := p.get(collectionUsers, user.UserID); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.Marshal(pebbleUser{User: *user, CredentialHash: user.PrivateKey})
	if err != nil {
		return err
	}
	if err := p.collections[collectionUsers].Set([]byte(user.UserID), data, pebble.Sync); err != nil {
		return err
	}
	return p.collections[collectionUserWallet].Set([]byte(user.WalletAddress), []byte(user.UserID), pebble.Sync)
}

// pebbleUser keeps the credential hash that model.User hides from JSON
type pebbleUser struct {
	model.User
	CredentialHash string `json:"credential_hash"`
}

func (p *PebbleDatabase) getUser(userID string) (*model.User, error) {
	data, err := p.get(collectionUsers, userID)
	if err != nil {
		return nil, err
	}
	var stored pebbleUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	user := stored.User
	user.PrivateKey = stored.CredentialHash
	return &user, nil
}

func (p *PebbleDatabase) GetUserByID(userID string) (*model.User, error) {
	return p.getUser(userID)
}

func (p *PebbleDatabase) GetUserByIDAndWallet(userID, walletAddress string) (*model.User, error) {
	user, err := p.getUser(userID)
	if err != nil {
		return nil, err
	}
	if user.WalletAddress != walletAddress {
		return nil, ErrNotFound
	}
	return user, nil
}

func (p *PebbleDatabase) GetUserByWallet(walletAddress string) (*model.User, error) {
	userID, err := p.get(collectionUserWallet, walletAddress)
	if err != nil {
		return nil, err
	}
	return p.getUser(string(userID))
}

// TokenTransfer operations

func transferKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// loadTransferID the highest of the stored counter and the newest transfer key
func (p *PebbleDatabase) loadTransferID() error {
	val, closer, err := p.collections[collectionCounters].Get([]byte(keyTransferCounter))
	if err == nil {
		p.transferID, err = strconv.ParseInt(string(val), 10, 64)
		closer.Close()
		if err != nil {
			return fmt.Errorf("corrupt transfer counter: %w", err)
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to load counters: %w", err)
	}

	iter, err := p.collections[collectionTransfers].NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()
	if iter.Last() {
		last, err := strconv.ParseInt(string(iter.Key()), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt transfer key %q: %w", iter.Key(), err)
		}
		if last > p.transferID {
			log.Printf("Transfer counter %d behind stored id %d, advancing", p.transferID, last)
			p.transferID = last
		}
	}
	return nil
}

func (p *PebbleDatabase) CreateTokenTransfer(transfer *model.TokenTransfer) error {
	p.transferMu.Lock()
	defer p.transferMu.Unlock()

	// reserve the id on disk before using it; a crash leaves a gap, never a reuse
	id := p.transferID + 1
	if err := p.collections[collectionCounters].Set([]byte(keyTransferCounter), []byte(strconv.FormatInt(id, 10)), pebble.Sync); err != nil {
		return fmt.Errorf("failed to reserve transfer id: %w", err)
	}
	p.transferID = id

	transfer.ID = id
	if transfer.Timestamp.IsZero() {
		transfer.Timestamp = timeNow()
	}

	data, err := json.Marshal(transfer)
	if err != nil {
		return err
	}

	key := transferKey(id)
	if err := p.collections[collectionTransfers].Set([]byte(key), data, pebble.Sync); err != nil {
		return err
	}

	addrDB := p.collections[collectionTransferByAddr]
	batch := addrDB.NewBatch()
	defer batch.Close()
	for _, addr := range uniqueAddresses(transfer.FromAddress, transfer.ToAddress) {
		if err := batch.Set([]byte(addr+":"+key), []byte(key), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func uniqueAddresses(addrs ...string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func (p *PebbleDatabase) ListTokenTransfersByAddress(address string, limit int) ([]*model.TokenTransfer, error) {
	prefix := []byte(address + ":")
	upper := append([]byte(address), ';') // ':' + 1

	iter, err := p.collections[collectionTransferByAddr].NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	// keys are zero padded ids, so walking backwards yields newest first
	var transfers []*model.TokenTransfer
	for iter.Last(); iter.Valid(); iter.Prev() {
		data, err := p.get(collectionTransfers, string(iter.Value()))
		if err != nil {
			log.Printf("Transfer index points to missing record %s: %v", iter.Value(), err)
			continue
		}
		var transfer model.TokenTransfer
		if err := json.Unmarshal(data, &transfer); err != nil {
			return nil, err
		}
		transfers = append(transfers, &transfer)
		if limit > 0 && len(transfers) >= limit {
			break
		}
	}
	return transfers, nil
}

// Close closes every collection
func (p *PebbleDatabase) Close() error {
	var lastErr error
	for name, db := range p.collections {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close collection %s: %v", name, err)
			lastErr = err
		}
	}
	return lastErr
}
