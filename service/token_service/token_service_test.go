package token_service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"meta-anchor/common"
	"meta-anchor/database"
	"meta-anchor/ledger"
	"meta-anchor/ledger/ledgertest"
	"meta-anchor/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client   *ledgertest.FakeClient
	db       database.Database
	contract *ledger.TokenContract
	signer   *ledger.Signer
	service  *TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := ledgertest.NewFakeClient(31337)
	transactor, err := ledger.NewTransactor(context.Background(), client, ledger.TransactorConfig{
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})
	require.NoError(t, err)

	contract, err := ledger.NewTokenContract(ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), ledger.DefaultTokenABI)
	require.NoError(t, err)
	signer, err := ledger.GenerateSigner()
	require.NoError(t, err)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewDatabase(database.DBTypeSQLite, &database.SQLiteConfig{
		DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewTokenService(db, transactor, contract, signer, TokenConfig{
		RewardAmount:  decimal.NewFromInt(1),
		InitialAmount: decimal.NewFromInt(10),
		HistoryWindow: 50,
	})
	return &fixture{client: client, db: db, contract: contract, signer: signer, service: svc}
}

func uint256Word(v *big.Int) []byte {
	return ethcommon.LeftPadBytes(v.Bytes(), 32)
}

func TestTransferRecordsAuditRow(t *testing.T) {
	f := newFixture(t)
	to := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	result, err := f.service.Reward(context.Background(), to)
	require.NoError(t, err)
	assert.Equal(t, "1", result.Amount)

	sent := f.client.Sent()
	require.Len(t, sent, 1)
	expected, err := f.contract.TransferCallData(to, ledger.ToWei(decimal.NewFromInt(1)))
	require.NoError(t, err)
	assert.Equal(t, expected, sent[0].Data())
	assert.Equal(t, f.contract.Address, *sent[0].To())

	rows, err := f.db.ListTokenTransfersByAddress(to.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.signer.Address().Hex(), rows[0].FromAddress)
	assert.Equal(t, result.TxHash, rows[0].TxHash)
	assert.Equal(t, int64(result.BlockNumber), rows[0].BlockNumber)
}

func TestFailedTransferIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.client.ReceiptStatus = func(*types.Transaction) uint64 { return types.ReceiptStatusFailed }
	to := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	_, err := f.service.Reward(context.Background(), to)
	assert.ErrorIs(t, err, common.ErrTransactionReverted)

	rows, err := f.db.ListTokenTransfersByAddress(to.Hex(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGrantInitial(t *testing.T) {
	f := newFixture(t)
	wallet := "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"

	result, err := f.service.GrantInitial(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "10", result.Amount)

	_, err = f.service.GrantInitial(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBalanceAndTotalSupply(t *testing.T) {
	f := newFixture(t)
	wallet := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	tokenWei := ledger.ToWei(decimal.RequireFromString("12.5"))
	supplyWei := ledger.ToWei(decimal.NewFromInt(1_000_000))
	balanceOf, err := f.contract.BalanceOfCallData(wallet)
	require.NoError(t, err)
	f.client.CallResult = func(msg ethereum.CallMsg) ([]byte, error) {
		if string(msg.Data) == string(balanceOf) {
			return uint256Word(tokenWei), nil
		}
		return uint256Word(supplyWei), nil
	}
	f.client.SetBalance(wallet, ledger.ToWei(decimal.RequireFromString("2")))

	info, err := f.service.Balance(context.Background(), strings.ToLower(wallet.Hex()))
	require.NoError(t, err)
	assert.Equal(t, wallet.Hex(), info.WalletAddress)
	assert.Equal(t, "12.5 DNET", info.TokenBalance)
	assert.Equal(t, "2 ETH", info.EthBalance)

	supply, err := f.service.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.True(t, supply.Equal(decimal.NewFromInt(1_000_000)))

	_, err = f.service.Balance(context.Background(), "0x123")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func transferLog(contract *ledger.TokenContract, from, to ethcommon.Address, amount int64, block uint64, index uint) types.Log {
	return types.Log{
		Address:     contract.Address,
		Topics:      []ethcommon.Hash{contract.TransferEventID(), ethcommon.BytesToHash(from.Bytes()), ethcommon.BytesToHash(to.Bytes())},
		Data:        uint256Word(ledger.ToWei(decimal.NewFromInt(amount))),
		BlockNumber: block,
		TxHash:      ethcommon.BigToHash(big.NewInt(int64(block)*100 + int64(index))),
		Index:       index,
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.client.MineEmpty(100)
	me := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	other := ethcommon.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	f.client.AddLog(transferLog(f.contract, other, me, 5, 60, 0))
	f.client.AddLog(transferLog(f.contract, me, other, 2, 80, 1))
	f.client.AddLog(transferLog(f.contract, other, me, 1, 95, 0))
	// outside the window and unrelated
	f.client.AddLog(transferLog(f.contract, other, me, 7, 10, 0))
	f.client.AddLog(transferLog(f.contract, other, other, 3, 90, 0))

	events, err := f.service.History(context.Background(), me.Hex())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, uint64(95), events[0].BlockNumber)
	assert.Equal(t, "received", events[0].Type)
	assert.Equal(t, other.Hex(), events[0].From)
	assert.Equal(t, "1 DNET", events[0].Amount)

	assert.Equal(t, uint64(80), events[1].BlockNumber)
	assert.Equal(t, "sent", events[1].Type)
	assert.Equal(t, other.Hex(), events[1].To)

	assert.Equal(t, uint64(60), events[2].BlockNumber)
}

func TestHistoryFallsBackToAuditLog(t *testing.T) {
	f := newFixture(t)
	f.client.MineEmpty(100)
	me := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	other := ethcommon.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	f.service.RecordTransfer(other, me, "5", "0x01", 60)
	f.service.RecordTransfer(me, ZeroAddress, "2", "0x02", 80)
	f.service.RecordTransfer(other, me, "7", "0x03", 10) // outside the window
	f.client.FilterErr = errors.New("method eth_getLogs not supported")

	events, err := f.service.History(context.Background(), me.Hex())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "sent", events[0].Type)
	assert.Equal(t, ZeroAddress.Hex(), events[0].To)
	assert.Equal(t, "2 DNET", events[0].Amount)
	assert.Equal(t, uint64(80), events[0].BlockNumber)

	assert.Equal(t, "received", events[1].Type)
	assert.Equal(t, other.Hex(), events[1].From)
	assert.Equal(t, "0x01", events[1].TxHash)
}

func TestHistoryWithoutAuditLogReportsNodeError(t *testing.T) {
	f := newFixture(t)
	svc := NewTokenService(nil, f.service.transactor, f.contract, f.signer, TokenConfig{HistoryWindow: 50})
	f.client.FilterErr = errors.New("method eth_getLogs not supported")

	_, err := svc.History(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eth_getLogs")
}

// brokenAuditDB rejects every audit row
type brokenAuditDB struct {
	database.Database
}

func (brokenAuditDB) CreateTokenTransfer(*model.TokenTransfer) error {
	return errors.New("disk full")
}

func TestTransferSucceedsWhenAuditLogFails(t *testing.T) {
	f := newFixture(t)
	svc := NewTokenService(brokenAuditDB{f.db}, f.service.transactor, f.contract, f.signer, TokenConfig{
		RewardAmount:  decimal.NewFromInt(1),
		InitialAmount: decimal.NewFromInt(10),
	})
	to := ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	result, err := svc.Reward(context.Background(), to)
	require.NoError(t, err)
	assert.Equal(t, "1", result.Amount)
	assert.NotEmpty(t, result.TxHash)
	assert.Len(t, f.client.Sent(), 1)

	granted, err := svc.GrantInitial(context.Background(), to.Hex())
	require.NoError(t, err)
	assert.Equal(t, "10", granted.Amount)
}

func TestGrantInitialZeroAmountSendsNothing(t *testing.T) {
	f := newFixture(t)
	svc := NewTokenService(f.db, f.service.transactor, f.contract, f.signer, TokenConfig{
		RewardAmount: decimal.NewFromInt(1),
	})

	result, err := svc.GrantInitial(context.Background(), "0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, f.client.Sent())
}

type stubAuthorizer struct {
	wallet string
	hash   string
}

func (a stubAuthorizer) Authorize(ctx context.Context, wallet, privateKey string) (*model.User, error) {
	if wallet != a.wallet {
		return nil, fmt.Errorf("wallet %s: %w", wallet, common.ErrNotFound)
	}
	if privateKey != a.hash {
		return nil, common.ErrUnauthorized
	}
	return &model.User{UserID: "alice", WalletAddress: wallet}, nil
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	user, err := ledger.GenerateSigner()
	require.NoError(t, err)
	f.service.SetAuthorizer(stubAuthorizer{wallet: user.Address().Hex(), hash: user.PrivateKeyHex()})

	result, err := f.service.Burn(context.Background(), &BurnRequest{
		FromWallet: user.Address().Hex(),
		PrivateKey: user.PrivateKeyHex(),
		Amount:     "0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.5", result.Amount)

	sent := f.client.Sent()
	require.Len(t, sent, 1)
	from, err := ledger.SenderOf(sent[0])
	require.NoError(t, err)
	assert.Equal(t, user.Address(), from)

	rows, err := f.db.ListTokenTransfersByAddress(ZeroAddress.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, user.Address().Hex(), rows[0].FromAddress)
}

func TestBurnRejections(t *testing.T) {
	f := newFixture(t)
	user, err := ledger.GenerateSigner()
	require.NoError(t, err)
	intruder, err := ledger.GenerateSigner()
	require.NoError(t, err)
	f.service.SetAuthorizer(stubAuthorizer{wallet: user.Address().Hex(), hash: user.PrivateKeyHex()})

	_, err = f.service.Burn(context.Background(), &BurnRequest{FromWallet: user.Address().Hex(), Amount: "1"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Burn(context.Background(), &BurnRequest{FromWallet: user.Address().Hex(), PrivateKey: user.PrivateKeyHex(), Amount: "-1"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.service.Burn(context.Background(), &BurnRequest{FromWallet: user.Address().Hex(), PrivateKey: intruder.PrivateKeyHex(), Amount: "1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = f.service.Burn(context.Background(), &BurnRequest{FromWallet: intruder.Address().Hex(), PrivateKey: intruder.PrivateKeyHex(), Amount: "1"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Empty(t, f.client.Sent())
}
