package user_service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"meta-anchor/common"
	"meta-anchor/database"
	"meta-anchor/ledger"
	"meta-anchor/model"
	"meta-anchor/service/token_service"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Granter pays the registration grant to a new wallet
type Granter interface {
	GrantInitial(ctx context.Context, wallet string) (*token_service.TransferResult, error)
}

// UserService identity registry
type UserService struct {
	db      database.Database
	granter Granter
}

// NewUserService create user service; granter may be nil
func NewUserService(db database.Database, granter Granter) *UserService {
	return &UserService{db: db, granter: granter}
}

// RegisteredIdentity registration result. PrivateKey is shown once and never stored.
type RegisteredIdentity struct {
	UserID        string                        `json:"user_id"`
	WalletAddress string                        `json:"wallet_address"`
	PrivateKey    string                        `json:"private_key"`
	InitialGrant  *token_service.TransferResult `json:"initial_grant,omitempty"`
	GrantError    string                        `json:"grant_error,omitempty"`
}

// HashPrivateKey SHA-256 hex of the 0x-prefixed lowercase key
func HashPrivateKey(privateKey string) string {
	normalized := strings.ToLower(strings.TrimSpace(privateKey))
	if !strings.HasPrefix(normalized, "0x") {
		normalized = "0x" + normalized
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeWallet(wallet string) (string, bool) {
	if !ethcommon.IsHexAddress(wallet) {
		return "", false
	}
	return ethcommon.HexToAddress(wallet).Hex(), true
}

// Validate true iff a user with exactly this id and wallet exists
func (s *UserService) Validate(ctx context.Context, userID, wallet string) (bool, error) {
	addr, ok := normalizeWallet(wallet)
	if userID == "" || !ok {
		return false, nil
	}
	_, err := s.db.GetUserByIDAndWallet(userID, addr)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to validate user %s: %w", userID, err)
	}
	return true, nil
}

// Register creates a keypair for userID and stores only the key hash.
// The identity is kept even if the initial grant fails; the grant error is reported alongside.
func (s *UserService) Register(ctx context.Context, userID string) (*RegisteredIdentity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}

	if _, err := s.db.GetUserByID(userID); err == nil {
		return nil, fmt.Errorf("user %s: %w", userID, common.ErrAlreadyExists)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user %s: %w", userID, err)
	}

	signer, err := ledger.GenerateSigner()
	if err != nil {
		return nil, err
	}
	privateKey := signer.PrivateKeyHex()
	user := &model.User{
		UserID:        userID,
		WalletAddress: signer.Address().Hex(),
		PrivateKey:    HashPrivateKey(privateKey),
	}
	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("user %s: %w", userID, common.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	log.Printf("Registered user %s with wallet %s", userID, user.WalletAddress)

	identity := &RegisteredIdentity{
		UserID:        userID,
		WalletAddress: user.WalletAddress,
		PrivateKey:    privateKey,
	}
	if s.granter != nil {
		grant, err := s.granter.GrantInitial(ctx, user.WalletAddress)
		if err != nil {
			log.Printf("Initial grant to %s failed: %v", user.WalletAddress, err)
			identity.GrantError = err.Error()
			return identity, fmt.Errorf("%w: initial grant: %v", common.ErrRewardFailed, err)
		}
		identity.InitialGrant = grant
	}
	return identity, nil
}

// Authorize checks privateKey against the stored hash of wallet's key
func (s *UserService) Authorize(ctx context.Context, wallet, privateKey string) (*model.User, error) {
	addr, ok := normalizeWallet(wallet)
	if !ok {
		return nil, fmt.Errorf("%w: invalid wallet address %q", common.ErrValidation, wallet)
	}
	user, err := s.db.GetUserByWallet(addr)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("wallet %s not registered: %w", addr, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by wallet %s: %w", addr, err)
	}

	hashed := HashPrivateKey(privateKey)
	if subtle.ConstantTimeCompare([]byte(hashed), []byte(user.PrivateKey)) != 1 {
		return nil, fmt.Errorf("%w: invalid private key for %s", common.ErrUnauthorized, addr)
	}
	return user, nil
}
