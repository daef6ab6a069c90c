// Package ledgertest in-memory ledger for tests
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNonceTooLow what a node answers for a reused nonce
var ErrNonceTooLow = errors.New("nonce too low")

// FakeClient single-node chain that mines every accepted transaction into its own block.
// Hooks may be set before use; they are called with the client's lock held.
type FakeClient struct {
	mu sync.Mutex

	chainID  *big.Int
	gasPrice *big.Int

	blocks   []*types.Block
	txs      map[ethcommon.Hash]*types.Transaction
	receipts map[ethcommon.Hash]*types.Receipt
	polls    map[ethcommon.Hash]int
	nonces   map[ethcommon.Address]uint64
	balances map[ethcommon.Address]*big.Int
	logs     []types.Log
	sent     []*types.Transaction
	calls    map[string]int

	// ReceiptStatus decides the receipt status of a mined tx; default success
	ReceiptStatus func(tx *types.Transaction) uint64
	// ReceiptDelay polls answered with NotFound before a receipt shows up
	ReceiptDelay int
	// WithholdReceipts never produce receipts
	WithholdReceipts bool
	// SendErr rejects a transaction before it is mined
	SendErr func(tx *types.Transaction) error
	// CallResult answers CallContract
	CallResult func(msg ethereum.CallMsg) ([]byte, error)
	// EstimateErr fails EstimateGas
	EstimateErr error
	// HeadErr fails BlockNumber
	HeadErr error
	// FilterErr fails FilterLogs
	FilterErr error
}

// NewFakeClient chain with only a genesis block
func NewFakeClient(chainID int64) *FakeClient {
	c := &FakeClient{
		chainID:  big.NewInt(chainID),
		gasPrice: big.NewInt(1_000_000_000),
		txs:      make(map[ethcommon.Hash]*types.Transaction),
		receipts: make(map[ethcommon.Hash]*types.Receipt),
		polls:    make(map[ethcommon.Hash]int),
		nonces:   make(map[ethcommon.Address]uint64),
		balances: make(map[ethcommon.Address]*big.Int),
		calls:    make(map[string]int),
	}
	c.appendBlock(nil)
	return c
}

func (c *FakeClient) appendBlock(txs []*types.Transaction) *types.Block {
	header := &types.Header{
		Number:     big.NewInt(int64(len(c.blocks))),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
		Time:       uint64(len(c.blocks)),
	}
	if len(c.blocks) > 0 {
		header.ParentHash = c.blocks[len(c.blocks)-1].Hash()
	}
	block := types.NewBlockWithHeader(header).WithBody(types.Body{Transactions: txs})
	c.blocks = append(c.blocks, block)
	return block
}

func (c *FakeClient) count(name string) {
	c.calls[name]++
}

// Calls number of invocations of a client method
func (c *FakeClient) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// ResetCalls clears call counters
func (c *FakeClient) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = make(map[string]int)
}

// MineEmpty appends n blocks without transactions
func (c *FakeClient) MineEmpty(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.appendBlock(nil)
	}
}

// Head current block height
func (c *FakeClient) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.blocks) - 1)
}

// Sent every accepted transaction in broadcast order
func (c *FakeClient) Sent() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Transaction, len(c.sent))
	copy(out, c.sent)
	return out
}

// SetBalance native balance of addr
func (c *FakeClient) SetBalance(addr ethcommon.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = new(big.Int).Set(wei)
}

// AddLog makes a log visible to FilterLogs
func (c *FakeClient) AddLog(l types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, l)
}

func (c *FakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("ChainID")
	return new(big.Int).Set(c.chainID), nil
}

func (c *FakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("BlockNumber")
	if c.HeadErr != nil {
		return 0, c.HeadErr
	}
	return uint64(len(c.blocks) - 1), nil
}

func (c *FakeClient) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("BlockByNumber")
	if number == nil {
		return c.blocks[len(c.blocks)-1], nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.blocks)) {
		return nil, ethereum.NotFound
	}
	return c.blocks[number.Uint64()], nil
}

func (c *FakeClient) TransactionByHash(ctx context.Context, hash ethcommon.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("TransactionByHash")
	tx, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (c *FakeClient) TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("TransactionReceipt")
	if c.WithholdReceipts {
		return nil, ethereum.NotFound
	}
	r, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	c.polls[txHash]++
	if c.polls[txHash] <= c.ReceiptDelay {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *FakeClient) BalanceAt(ctx context.Context, account ethcommon.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("BalanceAt")
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *FakeClient) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("PendingNonceAt")
	return c.nonces[account], nil
}

func (c *FakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("SuggestGasPrice")
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *FakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("EstimateGas")
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return 21000 + uint64(len(msg.Data))*16, nil
}

// SendTransaction validates the signature and nonce then mines tx into a new block
func (c *FakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("SendTransaction")

	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if c.SendErr != nil {
		if err := c.SendErr(tx); err != nil {
			return err
		}
	}
	if expected := c.nonces[from]; tx.Nonce() != expected {
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooLow, from.Hex(), tx.Nonce(), expected)
	}
	c.nonces[from]++

	status := types.ReceiptStatusSuccessful
	if c.ReceiptStatus != nil {
		status = c.ReceiptStatus(tx)
	}
	block := c.appendBlock([]*types.Transaction{tx})
	c.txs[tx.Hash()] = tx
	c.receipts[tx.Hash()] = &types.Receipt{
		Status:            status,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).Set(block.Number()),
		BlockHash:         block.Hash(),
		GasUsed:           tx.Gas(),
		CumulativeGasUsed: tx.Gas(),
	}
	c.sent = append(c.sent, tx)
	return nil
}

func (c *FakeClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("CallContract")
	if c.CallResult == nil {
		return nil, errors.New("execution reverted")
	}
	return c.CallResult(msg)
}

func (c *FakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("FilterLogs")
	if c.FilterErr != nil {
		return nil, c.FilterErr
	}

	var out []types.Log
	for _, l := range c.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if !matchTopics(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *FakeClient) Close() {}

func containsAddress(list []ethcommon.Address, addr ethcommon.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func matchTopics(filter [][]ethcommon.Hash, topics []ethcommon.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alternatives := range filter {
		if len(alternatives) == 0 {
			continue
		}
		matched := false
		for _, h := range alternatives {
			if h == topics[i] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
