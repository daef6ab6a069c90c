package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meta-anchor/common"
	"meta-anchor/ledger/ledgertest"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactor(t *testing.T, client *ledgertest.FakeClient, cfg TransactorConfig) *Transactor {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	tr, err := NewTransactor(context.Background(), client, cfg)
	require.NoError(t, err)
	return tr
}

func mustSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := GenerateSigner()
	require.NoError(t, err)
	return s
}

func TestSendAndConfirm(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 5})
	signer := mustSigner(t)
	contract := ethcommon.HexToAddress(testContractAddress)

	receipt, err := tr.SendAndConfirm(context.Background(), Call{To: contract, Data: []byte{1, 2, 3}}, signer)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, uint64(1), receipt.BlockNumber.Uint64())

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(0), sent[0].Nonce())
	assert.Equal(t, contract, *sent[0].To())
	assert.Equal(t, []byte{1, 2, 3}, sent[0].Data())
	assert.Equal(t, int64(1337), sent[0].ChainId().Int64())
	from, err := SenderOf(sent[0])
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)

	assert.Equal(t, 1, client.Calls("EstimateGas"))
	assert.Equal(t, 1, client.Calls("PendingNonceAt"))
	assert.Equal(t, 1, client.Calls("SuggestGasPrice"))
}

func TestConfiguredGasLimitSkipsEstimate(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	tr := newTestTransactor(t, client, TransactorConfig{GasLimit: 200000, MaxAttempts: 2})

	_, err := tr.BuildAndSend(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	require.NoError(t, err)
	assert.Equal(t, 0, client.Calls("EstimateGas"))
	assert.Equal(t, uint64(200000), client.Sent()[0].Gas())
}

func TestConfirmWaitsForReceipt(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	client.ReceiptDelay = 3
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 5})

	receipt, err := tr.SendAndConfirm(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	require.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Equal(t, 4, client.Calls("TransactionReceipt"))
}

func TestConfirmTimeout(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	client.WithholdReceipts = true
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 4})

	_, err := tr.SendAndConfirm(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfirmationTimeout)
	assert.Equal(t, 4, client.Calls("TransactionReceipt"))
	// broadcast happened exactly once, no resend on timeout
	assert.Len(t, client.Sent(), 1)
}

func TestConfirmContextCancelled(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	client.WithholdReceipts = true
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 1000, PollInterval: 5 * time.Millisecond})

	txHash, err := tr.BuildAndSend(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Confirm(ctx, txHash)
	assert.ErrorIs(t, err, common.ErrConfirmationTimeout)
	assert.Less(t, client.Calls("TransactionReceipt"), 1000)
}

func TestConfirmReverted(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	client.ReceiptStatus = func(*types.Transaction) uint64 { return types.ReceiptStatusFailed }
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 3})

	receipt, err := tr.SendAndConfirm(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	assert.ErrorIs(t, err, common.ErrTransactionReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Len(t, client.Sent(), 1)
}

func TestSubmissionRejected(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	client.SendErr = func(*types.Transaction) error { return errors.New("replacement transaction underpriced") }
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 3})

	_, err := tr.BuildAndSend(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	assert.ErrorIs(t, err, common.ErrSubmissionRejected)
	assert.Equal(t, 1, client.Calls("SendTransaction"))
	assert.Empty(t, client.Sent())

	client.SendErr = nil
	client.EstimateErr = errors.New("execution reverted")
	_, err = tr.BuildAndSend(context.Background(), Call{To: ethcommon.HexToAddress(testContractAddress)}, mustSigner(t))
	assert.ErrorIs(t, err, common.ErrSubmissionRejected)
}

func TestConcurrentSendsNeverReuseNonce(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	tr := newTestTransactor(t, client, TransactorConfig{MaxAttempts: 3})
	service := mustSigner(t)
	userA := mustSigner(t)
	contract := ethcommon.HexToAddress(testContractAddress)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := tr.SendAndConfirm(context.Background(), Call{To: contract, Data: []byte{0xaa}}, service)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := tr.SendAndConfirm(context.Background(), Call{To: contract, Data: []byte{0xbb}}, userA)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := map[ethcommon.Address]map[uint64]bool{}
	for _, tx := range client.Sent() {
		from, err := SenderOf(tx)
		require.NoError(t, err)
		if seen[from] == nil {
			seen[from] = map[uint64]bool{}
		}
		assert.False(t, seen[from][tx.Nonce()], "nonce %d reused by %s", tx.Nonce(), from.Hex())
		seen[from][tx.Nonce()] = true
	}
	assert.Len(t, seen[service.Address()], n)
	assert.Len(t, seen[userA.Address()], n)
}

func TestCallView(t *testing.T) {
	client := ledgertest.NewFakeClient(1337)
	tr := newTestTransactor(t, client, TransactorConfig{})
	contract := newTestContract(t)

	data, err := contract.TotalSupplyCallData()
	require.NoError(t, err)

	_, err = tr.CallView(context.Background(), contract.Address, data)
	assert.Error(t, err)

	supply := ToWei(decimal.NewFromInt(1_000_000))
	client.CallResult = func(msg ethereum.CallMsg) ([]byte, error) {
		return ethcommon.LeftPadBytes(supply.Bytes(), 32), nil
	}
	out, err := tr.CallView(context.Background(), contract.Address, data)
	require.NoError(t, err)
	v, err := contract.UnpackUint256("totalSupply", out)
	require.NoError(t, err)
	assert.Equal(t, 0, supply.Cmp(v))
	assert.Equal(t, int64(1337), tr.ChainID().Int64())
}
