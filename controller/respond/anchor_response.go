package respond

import (
	"meta-anchor/model"
	"meta-anchor/service/anchor_service"
	"meta-anchor/service/health_service"
	"meta-anchor/service/token_service"
	"meta-anchor/service/user_service"

	"github.com/shopspring/decimal"
)

// SubmitResponse anchored submission
type SubmitResponse struct {
	Message         string                     `json:"message" example:"Data submitted successfully"`
	IpfsHash        string                     `json:"ipfs_hash" example:"QmT78zSuBmuS4z925WZfrqQ1qHaJ56DQaTfyMUF7F8ff5o"`
	FileHash        string                     `json:"file_hash,omitempty" example:"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"`
	TransactionHash string                     `json:"transaction_hash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
	BlockNumber     uint64                     `json:"block_number" example:"1024"`
	From            string                     `json:"from" example:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`
	Reward          *anchor_service.RewardInfo `json:"reward,omitempty"`
	RewardError     string                     `json:"reward_error,omitempty"`
}

// ToSubmitResponse convert pipeline result to response
func ToSubmitResponse(r *anchor_service.AnchorResult) SubmitResponse {
	message := "Data submitted successfully"
	if r.Reward == nil && r.RewardError != "" {
		message = "Data anchored, reward transfer failed"
	}
	return SubmitResponse{
		Message:         message,
		IpfsHash:        r.MetadataFingerprint,
		FileHash:        r.FileFingerprint,
		TransactionHash: r.AnchorTxHash,
		BlockNumber:     r.BlockNumber,
		From:            r.Submitter,
		Reward:          r.Reward,
		RewardError:     r.RewardError,
	}
}

// BlockchainData anchor transaction of a fingerprint
type BlockchainData struct {
	TransactionHash string `json:"transaction_hash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
	BlockNumber     uint64 `json:"block_number" example:"1024"`
	From            string `json:"from" example:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`
}

// ToBlockchainData convert anchor record
func ToBlockchainData(r *model.AnchorRecord) *BlockchainData {
	if r == nil {
		return nil
	}
	return &BlockchainData{TransactionHash: r.TxHash, BlockNumber: r.BlockNumber, From: r.Submitter}
}

// RetrieveResponse metadata and optional file of an anchored fingerprint
type RetrieveResponse struct {
	Metadata       model.Metadata  `json:"metadata" swaggertype:"object"`
	BlockchainData *BlockchainData `json:"blockchain_data"`
	FileData       string          `json:"file_data,omitempty" example:"aGVsbG8="`
	FileError      string          `json:"file_error,omitempty"`
}

// ToRetrieveResponse convert retrieve result
func ToRetrieveResponse(r *anchor_service.RetrieveResult) RetrieveResponse {
	return RetrieveResponse{
		Metadata:       r.Metadata,
		BlockchainData: ToBlockchainData(r.BlockchainData),
		FileData:       r.FileData,
		FileError:      r.FileError,
	}
}

// VerifyResponse verification outcome
type VerifyResponse struct {
	Verified       bool            `json:"verified" example:"true"`
	BlockNumber    uint64          `json:"block_number" example:"1024"`
	EthereumTxHash string          `json:"ethereum_tx_hash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
	From           string          `json:"from,omitempty" example:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`
	Metadata       *model.Metadata `json:"metadata,omitempty" swaggertype:"object"`
	Note           string          `json:"note,omitempty"`
}

// ToVerifyResponse convert verify result
func ToVerifyResponse(r *anchor_service.VerifyResult) VerifyResponse {
	return VerifyResponse{
		Verified:       r.Verified,
		BlockNumber:    r.BlockNumber,
		EthereumTxHash: r.AnchorTxHash,
		From:           r.From,
		Metadata:       r.Metadata,
		Note:           r.Note,
	}
}

// RegisterResponse new identity; the private key is never shown again
type RegisterResponse struct {
	Message       string                        `json:"message" example:"User registered successfully"`
	UserID        string                        `json:"user_id" example:"alice"`
	WalletAddress string                        `json:"wallet_address" example:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"`
	PrivateKey    string                        `json:"private_key" example:"0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"`
	InitialGrant  *token_service.TransferResult `json:"initial_grant,omitempty"`
	GrantError    string                        `json:"grant_error,omitempty"`
}

// ToRegisterResponse convert registered identity
func ToRegisterResponse(id *user_service.RegisteredIdentity) RegisterResponse {
	message := "User registered successfully"
	if id.GrantError != "" {
		message = "User registered, initial token grant failed"
	}
	return RegisterResponse{
		Message:       message,
		UserID:        id.UserID,
		WalletAddress: id.WalletAddress,
		PrivateKey:    id.PrivateKey,
		InitialGrant:  id.InitialGrant,
		GrantError:    id.GrantError,
	}
}

// TotalSupplyResponse token supply
type TotalSupplyResponse struct {
	TotalSupply string `json:"total_supply" example:"1000000 DNET"`
}

// ToTotalSupplyResponse format supply in whole tokens
func ToTotalSupplyResponse(supply decimal.Decimal) TotalSupplyResponse {
	return TotalSupplyResponse{TotalSupply: token_service.FormatAmount(supply)}
}

// TransactionsResponse transfer history of a wallet
type TransactionsResponse struct {
	WalletAddress string                         `json:"wallet_address" example:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"`
	Transactions  []*token_service.TransferEvent `json:"transactions"`
}

// ToTransactionsResponse never returns a null list
func ToTransactionsResponse(wallet string, events []*token_service.TransferEvent) TransactionsResponse {
	if events == nil {
		events = []*token_service.TransferEvent{}
	}
	return TransactionsResponse{WalletAddress: wallet, Transactions: events}
}

// BurnRequest user-signed burn
type BurnRequest struct {
	FromWallet string `json:"from_wallet" binding:"required" example:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"`
	PrivateKey string `json:"private_key" binding:"required" example:"0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"`
	Amount     string `json:"amount" binding:"required" example:"1.5"`
}

// BurnResponse confirmed burn
type BurnResponse struct {
	Message         string `json:"message" example:"Tokens burned successfully"`
	Amount          string `json:"amount" example:"1.5 DNET"`
	TransactionHash string `json:"transaction_hash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
	BlockNumber     uint64 `json:"block_number" example:"1030"`
}

// ToBurnResponse convert burn result
func ToBurnResponse(r *token_service.TransferResult) BurnResponse {
	amount, err := decimal.NewFromString(r.Amount)
	display := r.Amount + " " + token_service.TokenSymbol
	if err == nil {
		display = token_service.FormatAmount(amount)
	}
	return BurnResponse{
		Message:         "Tokens burned successfully",
		Amount:          display,
		TransactionHash: r.TxHash,
		BlockNumber:     r.BlockNumber,
	}
}

// HealthResponse dependency connectivity
type HealthResponse struct {
	Status            string `json:"status" example:"healthy"`
	EthereumConnected bool   `json:"ethereum_connected" example:"true"`
	IpfsConnected     bool   `json:"ipfs_connected" example:"true"`
	BlockNumber       uint64 `json:"block_number,omitempty" example:"1024"`
	StoreID           string `json:"store_id,omitempty" example:"12D3KooWQ..."`
	Error             string `json:"error,omitempty"`
}

// ToHealthResponse flatten a health check
func ToHealthResponse(s *health_service.HealthStatus) HealthResponse {
	resp := HealthResponse{
		Status:            s.Status,
		EthereumConnected: s.Ledger.Connected,
		IpfsConnected:     s.ContentStore.Connected,
		BlockNumber:       s.Ledger.BlockNumber,
		StoreID:           s.ContentStore.ID,
	}
	switch {
	case s.Ledger.Error != "" && s.ContentStore.Error != "":
		resp.Error = s.Ledger.Error + "; " + s.ContentStore.Error
	case s.Ledger.Error != "":
		resp.Error = s.Ledger.Error
	default:
		resp.Error = s.ContentStore.Error
	}
	return resp
}
