package ledger

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"meta-anchor/common"
	"meta-anchor/metrics"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call what a transaction should do: contract address, call data, value
type Call struct {
	To    ethcommon.Address
	Data  []byte
	Value *big.Int
}

// TransactorConfig gas and confirmation settings
type TransactorConfig struct {
	GasLimit     uint64        // 0 means estimate per transaction
	PollInterval time.Duration // receipt poll interval
	MaxAttempts  int           // receipt polls before giving up
	Metrics      *metrics.Metrics
}

// Transactor builds, signs, submits and confirms single transactions.
// Nonce read, build, sign and send run under a lock per signer address, so one
// Transactor must be the only writer for a given key.
type Transactor struct {
	client  Client
	chainID *big.Int
	cfg     TransactorConfig

	locksMu sync.Mutex
	locks   map[ethcommon.Address]*sync.Mutex
}

// NewTransactor reads the chain id once; everything else is fetched per transaction
func NewTransactor(ctx context.Context, client Client, cfg TransactorConfig) (*Transactor, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	return &Transactor{
		client:  client,
		chainID: chainID,
		cfg:     cfg,
		locks:   make(map[ethcommon.Address]*sync.Mutex),
	}, nil
}

// ChainID of the connected network
func (t *Transactor) ChainID() *big.Int {
	return new(big.Int).Set(t.chainID)
}

// Client underlying ledger client
func (t *Transactor) Client() Client {
	return t.client
}

func (t *Transactor) signerLock(addr ethcommon.Address) *sync.Mutex {
	t.locksMu.Lock()
	defer t.locksMu.Unlock()
	mu, ok := t.locks[addr]
	if !ok {
		mu = &sync.Mutex{}
		t.locks[addr] = mu
	}
	return mu
}

// BuildAndSend fetches nonce and gas price, signs and broadcasts. A node rejection
// comes back wrapped in common.ErrSubmissionRejected and is not retried.
func (t *Transactor) BuildAndSend(ctx context.Context, call Call, signer *Signer) (ethcommon.Hash, error) {
	from := signer.Address()
	mu := t.signerLock(from)
	mu.Lock()
	defer mu.Unlock()

	nonce, err := t.client.PendingNonceAt(ctx, from)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("failed to get nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	gasLimit := t.cfg.GasLimit
	if gasLimit == 0 {
		gasLimit, err = t.client.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       &to,
			GasPrice: gasPrice,
			Value:    value,
			Data:     call.Data,
		})
		if err != nil {
			t.cfg.Metrics.TxSent("rejected")
			return ethcommon.Hash{}, fmt.Errorf("%w: estimate gas: %v", common.ErrSubmissionRejected, err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     call.Data,
	})
	signed, err := signer.SignTx(tx, t.chainID)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := t.client.SendTransaction(ctx, signed); err != nil {
		t.cfg.Metrics.TxSent("rejected")
		return ethcommon.Hash{}, fmt.Errorf("%w: nonce %d from %s: %v", common.ErrSubmissionRejected, nonce, from.Hex(), err)
	}
	t.cfg.Metrics.TxSent("sent")
	log.Printf("Transaction sent: hash=%s from=%s nonce=%d to=%s", signed.Hash().Hex(), from.Hex(), nonce, to.Hex())
	return signed.Hash(), nil
}

// SendAndConfirm BuildAndSend followed by Confirm
func (t *Transactor) SendAndConfirm(ctx context.Context, call Call, signer *Signer) (*types.Receipt, error) {
	txHash, err := t.BuildAndSend(ctx, call, signer)
	if err != nil {
		return nil, err
	}
	return t.Confirm(ctx, txHash)
}

// CallView executes a read-only contract call against the latest block
func (t *Transactor) CallView(ctx context.Context, to ethcommon.Address, data []byte) ([]byte, error) {
	out, err := t.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call to %s: %w", to.Hex(), err)
	}
	return out, nil
}
