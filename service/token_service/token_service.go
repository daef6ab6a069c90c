package token_service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sort"

	"meta-anchor/common"
	"meta-anchor/database"
	"meta-anchor/ledger"
	"meta-anchor/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// TokenSymbol display unit of token amounts
const TokenSymbol = "DNET"

// ZeroAddress recipient recorded for burns
var ZeroAddress = ethcommon.Address{}

// Authorizer checks a wallet's credential
type Authorizer interface {
	Authorize(ctx context.Context, wallet, privateKey string) (*model.User, error)
}

// TokenConfig amounts and history depth
type TokenConfig struct {
	RewardAmount  decimal.Decimal // per accepted submission
	InitialAmount decimal.Decimal // granted at registration
	HistoryWindow uint64          // blocks searched for Transfer events
}

// TokenService token transfers, balances and the transfer audit log
type TokenService struct {
	db         database.Database
	transactor *ledger.Transactor
	contract   *ledger.TokenContract
	signer     *ledger.Signer
	authorizer Authorizer
	cfg        TokenConfig
}

// NewTokenService create token service; signer is the service account paying rewards
func NewTokenService(db database.Database, transactor *ledger.Transactor, contract *ledger.TokenContract, signer *ledger.Signer, cfg TokenConfig) *TokenService {
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = 10000
	}
	return &TokenService{
		db:         db,
		transactor: transactor,
		contract:   contract,
		signer:     signer,
		cfg:        cfg,
	}
}

// SetAuthorizer credential check used by Burn
func (s *TokenService) SetAuthorizer(a Authorizer) {
	s.authorizer = a
}

// TransferResult a confirmed token transaction
type TransferResult struct {
	TxHash      string `json:"transaction_hash"`
	BlockNumber uint64 `json:"block_number"`
	Amount      string `json:"amount"`
}

// BalanceInfo native and token balance of a wallet
type BalanceInfo struct {
	WalletAddress string `json:"wallet_address"`
	EthBalance    string `json:"eth_balance"`
	TokenBalance  string `json:"dnet_balance"`
}

// TransferEvent one Transfer log touching a wallet
type TransferEvent struct {
	Type        string `json:"type"` // sent or received
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Amount      string `json:"amount"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"transaction_hash"`
	LogIndex    uint   `json:"-"`
}

// FormatAmount "1.5 DNET"
func FormatAmount(amount decimal.Decimal) string {
	return amount.String() + " " + TokenSymbol
}

// ParseWallet validate and checksum a wallet address
func ParseWallet(wallet string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(wallet) {
		return ethcommon.Address{}, fmt.Errorf("%w: invalid wallet address %q", common.ErrValidation, wallet)
	}
	return ethcommon.HexToAddress(wallet), nil
}

// RewardAmount configured submission reward
func (s *TokenService) RewardAmount() decimal.Decimal {
	return s.cfg.RewardAmount
}

// ServiceAddress account paying rewards and anchoring
func (s *TokenService) ServiceAddress() ethcommon.Address {
	return s.signer.Address()
}

// Transfer sends amount tokens from the service account and waits for the receipt.
// A confirmed transfer is written to the audit log.
func (s *TokenService) Transfer(ctx context.Context, to ethcommon.Address, amount decimal.Decimal) (*TransferResult, error) {
	data, err := s.contract.TransferCallData(to, ledger.ToWei(amount))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer: %w", err)
	}
	receipt, err := s.transactor.SendAndConfirm(ctx, ledger.Call{To: s.contract.Address, Data: data}, s.signer)
	if err != nil {
		return nil, fmt.Errorf("transfer %s to %s: %w", amount, to.Hex(), err)
	}

	result := &TransferResult{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Amount:      amount.String(),
	}
	s.RecordTransfer(s.signer.Address(), to, amount.String(), result.TxHash, result.BlockNumber)
	return result, nil
}

// Reward pays the submission reward to wallet
func (s *TokenService) Reward(ctx context.Context, wallet ethcommon.Address) (*TransferResult, error) {
	return s.Transfer(ctx, wallet, s.cfg.RewardAmount)
}

// GrantInitial pays the registration grant to wallet
func (s *TokenService) GrantInitial(ctx context.Context, wallet string) (*TransferResult, error) {
	to, err := ParseWallet(wallet)
	if err != nil {
		return nil, err
	}
	if !s.cfg.InitialAmount.IsPositive() {
		return nil, nil
	}
	return s.Transfer(ctx, to, s.cfg.InitialAmount)
}

// RecordTransfer best-effort audit row; failures are logged only
func (s *TokenService) RecordTransfer(from, to ethcommon.Address, amount, txHash string, blockNumber uint64) {
	if s.db == nil {
		return
	}
	err := s.db.CreateTokenTransfer(&model.TokenTransfer{
		FromAddress: from.Hex(),
		ToAddress:   to.Hex(),
		Amount:      amount,
		TxHash:      txHash,
		BlockNumber: int64(blockNumber),
	})
	if err != nil {
		log.Printf("Failed to log token transfer %s: %v", txHash, err)
	}
}

// Balance native and token balance of wallet
func (s *TokenService) Balance(ctx context.Context, wallet string) (*BalanceInfo, error) {
	addr, err := ParseWallet(wallet)
	if err != nil {
		return nil, err
	}

	data, err := s.contract.BalanceOfCallData(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode balanceOf: %w", err)
	}
	out, err := s.transactor.CallView(ctx, s.contract.Address, data)
	if err != nil {
		return nil, err
	}
	tokenWei, err := s.contract.UnpackUint256("balanceOf", out)
	if err != nil {
		return nil, err
	}

	ethWei, err := s.transactor.Client().BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}

	return &BalanceInfo{
		WalletAddress: addr.Hex(),
		EthBalance:    ledger.FromWei(ethWei).String() + " ETH",
		TokenBalance:  FormatAmount(ledger.FromWei(tokenWei)),
	}, nil
}

// TotalSupply token totalSupply()
func (s *TokenService) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	data, err := s.contract.TotalSupplyCallData()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to encode totalSupply: %w", err)
	}
	out, err := s.transactor.CallView(ctx, s.contract.Address, data)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := s.contract.UnpackUint256("totalSupply", out)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.FromWei(wei), nil
}

// History Transfer events sent or received by wallet within the history window, newest first
func (s *TokenService) History(ctx context.Context, wallet string) ([]*TransferEvent, error) {
	addr, err := ParseWallet(wallet)
	if err != nil {
		return nil, err
	}
	client := s.transactor.Client()
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block height: %w", err)
	}
	var from uint64
	if head > s.cfg.HistoryWindow {
		from = head - s.cfg.HistoryWindow
	}

	topic := ethcommon.BytesToHash(addr.Bytes())
	eventID := s.contract.TransferEventID()
	base := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []ethcommon.Address{s.contract.Address},
	}

	received := base
	received.Topics = [][]ethcommon.Hash{{eventID}, nil, {topic}}
	receivedLogs, err := client.FilterLogs(ctx, received)
	if err != nil {
		return s.auditHistory(addr, from, fmt.Errorf("failed to get received transfers: %w", err))
	}

	sent := base
	sent.Topics = [][]ethcommon.Hash{{eventID}, {topic}}
	sentLogs, err := client.FilterLogs(ctx, sent)
	if err != nil {
		return s.auditHistory(addr, from, fmt.Errorf("failed to get sent transfers: %w", err))
	}

	events := make([]*TransferEvent, 0, len(receivedLogs)+len(sentLogs))
	for _, l := range receivedLogs {
		ev, err := s.decodeTransfer(l, "received")
		if err != nil {
			log.Printf("Skipping undecodable Transfer log in tx %s: %v", l.TxHash.Hex(), err)
			continue
		}
		events = append(events, ev)
	}
	for _, l := range sentLogs {
		ev, err := s.decodeTransfer(l, "sent")
		if err != nil {
			log.Printf("Skipping undecodable Transfer log in tx %s: %v", l.TxHash.Hex(), err)
			continue
		}
		events = append(events, ev)
	}

	sortNewestFirst(events)
	return events, nil
}

func sortNewestFirst(events []*TransferEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
}

// auditHistory answers History from the local audit log when the node cannot
// serve log queries. It only knows transfers this service sent; logErr is
// returned when there is no audit log to read.
func (s *TokenService) auditHistory(addr ethcommon.Address, fromBlock uint64, logErr error) ([]*TransferEvent, error) {
	if s.db == nil {
		return nil, logErr
	}
	rows, err := s.db.ListTokenTransfersByAddress(addr.Hex(), 0)
	if err != nil {
		log.Printf("Audit log fallback for %s failed: %v", addr.Hex(), err)
		return nil, logErr
	}
	log.Printf("Serving history of %s from audit log: %v", addr.Hex(), logErr)

	events := make([]*TransferEvent, 0, len(rows))
	for _, row := range rows {
		if row.BlockNumber < 0 || uint64(row.BlockNumber) < fromBlock {
			continue
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			log.Printf("Skipping audit row %d with bad amount %q", row.ID, row.Amount)
			continue
		}
		base := TransferEvent{
			Amount:      FormatAmount(amount),
			BlockNumber: uint64(row.BlockNumber),
			TxHash:      row.TxHash,
		}
		if ethcommon.HexToAddress(row.ToAddress) == addr {
			ev := base
			ev.Type = "received"
			ev.From = ethcommon.HexToAddress(row.FromAddress).Hex()
			events = append(events, &ev)
		}
		if ethcommon.HexToAddress(row.FromAddress) == addr {
			ev := base
			ev.Type = "sent"
			ev.To = ethcommon.HexToAddress(row.ToAddress).Hex()
			events = append(events, &ev)
		}
	}
	sortNewestFirst(events)
	return events, nil
}

func (s *TokenService) decodeTransfer(l types.Log, kind string) (*TransferEvent, error) {
	if len(l.Topics) < 3 {
		return nil, errors.New("missing indexed topics")
	}
	value, err := s.contract.UnpackTransferValue(l.Data)
	if err != nil {
		return nil, err
	}
	ev := &TransferEvent{
		Type:        kind,
		Amount:      FormatAmount(ledger.FromWei(value)),
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
	}
	if kind == "received" {
		ev.From = ethcommon.BytesToAddress(l.Topics[1].Bytes()).Hex()
	} else {
		ev.To = ethcommon.BytesToAddress(l.Topics[2].Bytes()).Hex()
	}
	return ev, nil
}

// BurnRequest user-signed burn
type BurnRequest struct {
	FromWallet string
	PrivateKey string
	Amount     string
}

// Burn destroys tokens from a registered wallet, signed with the wallet's own key.
// Burns for different wallets run in parallel; each wallet is serialized by the transactor.
func (s *TokenService) Burn(ctx context.Context, req *BurnRequest) (*TransferResult, error) {
	if req.FromWallet == "" || req.PrivateKey == "" || req.Amount == "" {
		return nil, fmt.Errorf("%w: from_wallet, private_key and amount are required", common.ErrValidation)
	}
	from, err := ParseWallet(req.FromWallet)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if s.authorizer == nil {
		return nil, errors.New("burn not available: no authorizer configured")
	}
	if _, err := s.authorizer.Authorize(ctx, from.Hex(), req.PrivateKey); err != nil {
		return nil, err
	}

	userSigner, err := ledger.NewSigner(req.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	if userSigner.Address() != from {
		return nil, fmt.Errorf("%w: key does not control %s", common.ErrUnauthorized, from.Hex())
	}

	data, err := s.contract.BurnCallData(ledger.ToWei(amount))
	if err != nil {
		return nil, fmt.Errorf("failed to encode burn: %w", err)
	}
	receipt, err := s.transactor.SendAndConfirm(ctx, ledger.Call{To: s.contract.Address, Data: data}, userSigner)
	if err != nil {
		return nil, fmt.Errorf("burn %s from %s: %w", amount, from.Hex(), err)
	}

	result := &TransferResult{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Amount:      amount.String(),
	}
	s.RecordTransfer(from, ZeroAddress, amount.String(), result.TxHash, result.BlockNumber)
	log.Printf("Burned %s from %s in tx %s", FormatAmount(amount), from.Hex(), result.TxHash)
	return result, nil
}
