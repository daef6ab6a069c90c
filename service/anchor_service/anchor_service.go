package anchor_service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"meta-anchor/common"
	"meta-anchor/indexer"
	"meta-anchor/ledger"
	"meta-anchor/metrics"
	"meta-anchor/model"
	"meta-anchor/service/token_service"
	"meta-anchor/storage"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// UserValidator checks a (user id, wallet) pair
type UserValidator interface {
	Validate(ctx context.Context, userID, wallet string) (bool, error)
}

// Rewarder pays submission rewards and keeps the transfer audit log
type Rewarder interface {
	Reward(ctx context.Context, wallet ethcommon.Address) (*token_service.TransferResult, error)
	RewardAmount() decimal.Decimal
	RecordTransfer(from, to ethcommon.Address, amount, txHash string, blockNumber uint64)
}

// Resolver provenance lookups
type Resolver interface {
	Resolve(ctx context.Context, fingerprint string) (*model.AnchorRecord, error)
	ResolveTx(ctx context.Context, txHash string) (*model.TxRecord, error)
}

// AnchorService store, verify, anchor and reward pipeline plus the read side
type AnchorService struct {
	users      UserValidator
	store      storage.ContentStore
	transactor *ledger.Transactor
	contract   *ledger.TokenContract
	signer     *ledger.Signer
	rewards    Rewarder
	resolver   Resolver
	metrics    *metrics.Metrics
}

// NewAnchorService create anchor service; signer is the service account that anchors
func NewAnchorService(
	users UserValidator,
	store storage.ContentStore,
	transactor *ledger.Transactor,
	contract *ledger.TokenContract,
	signer *ledger.Signer,
	rewards Rewarder,
	resolver Resolver,
) *AnchorService {
	return &AnchorService{
		users:      users,
		store:      store,
		transactor: transactor,
		contract:   contract,
		signer:     signer,
		rewards:    rewards,
		resolver:   resolver,
	}
}

// SetMetrics record pipeline outcomes
func (s *AnchorService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SubmitRequest a submission: identity, metadata and optional file bytes
type SubmitRequest struct {
	UserID     string
	UserWallet string
	Metadata   model.Metadata
	File       []byte // nil when no file was attached
}

// RewardInfo the reward transfer of a submission
type RewardInfo struct {
	Amount string `json:"amount"`
	TxHash string `json:"transaction_hash"`
}

// AnchorResult outcome of a submission. Reward is nil when the reward failed.
type AnchorResult struct {
	MetadataFingerprint string      `json:"ipfs_hash"`
	FileFingerprint     string      `json:"file_hash,omitempty"`
	AnchorTxHash        string      `json:"transaction_hash"`
	BlockNumber         uint64      `json:"block_number"`
	Submitter           string      `json:"from"`
	Reward              *RewardInfo `json:"reward,omitempty"`
	RewardError         string      `json:"reward_error,omitempty"`
}

// Record anchor record view of the result
func (r *AnchorResult) Record() *model.AnchorRecord {
	return &model.AnchorRecord{
		Fingerprint: r.MetadataFingerprint,
		TxHash:      r.AnchorTxHash,
		BlockNumber: r.BlockNumber,
		Submitter:   r.Submitter,
	}
}

// Submit runs the pipeline. Stored content is never rolled back when a later
// step fails. A failed reward returns the anchored result together with an
// error wrapping common.ErrRewardFailed.
func (s *AnchorService) Submit(ctx context.Context, req *SubmitRequest) (*AnchorResult, error) {
	result, err := s.submit(ctx, req)
	s.metrics.Submission(outcome(err))
	return result, err
}

func outcome(err error) string {
	if err == nil {
		return "anchored"
	}
	code := common.ErrorCode(err)
	if code == "" {
		return "anchored"
	}
	return code
}

func (s *AnchorService) submit(ctx context.Context, req *SubmitRequest) (*AnchorResult, error) {
	if req.UserID == "" || req.UserWallet == "" {
		return nil, fmt.Errorf("%w: user_id and user_wallet are required", common.ErrValidation)
	}
	if !ethcommon.IsHexAddress(req.UserWallet) {
		return nil, fmt.Errorf("%w: invalid wallet address %q", common.ErrValidation, req.UserWallet)
	}
	wallet := ethcommon.HexToAddress(req.UserWallet)

	ok, err := s.users.Validate(ctx, req.UserID, req.UserWallet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s with wallet %s", common.ErrUnauthorized, req.UserID, req.UserWallet)
	}

	metadata := req.Metadata.Clone()
	result := &AnchorResult{}

	if req.File != nil {
		fileFP, err := s.store.Put(ctx, req.File)
		if err != nil {
			return nil, fmt.Errorf("failed to store file: %w", err)
		}
		result.FileFingerprint = fileFP.String()
		metadata.Set(model.MetadataFileKey, fileFP.String())
		log.Printf("Stored file for %s: %s (%d bytes)", req.UserID, fileFP, len(req.File))
	}

	canonical, err := metadata.Canonical()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	metaFP, err := s.store.Put(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to store metadata: %w", err)
	}
	result.MetadataFingerprint = metaFP.String()

	if err := s.verifyReadback(ctx, metaFP, canonical, metadata); err != nil {
		return nil, err
	}

	if err := s.checkNotAnchored(ctx, metaFP.String()); err != nil {
		return nil, err
	}

	data, err := s.contract.AnchorCallData(metaFP.String())
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", common.ErrAnchorFailed, err)
	}
	receipt, err := s.transactor.SendAndConfirm(ctx, ledger.Call{To: s.contract.Address, Data: data}, s.signer)
	if err != nil {
		log.Printf("Anchor of %s failed, content stays stored unreferenced: %v", metaFP, err)
		return nil, fmt.Errorf("%w: %w", common.ErrAnchorFailed, err)
	}
	result.AnchorTxHash = receipt.TxHash.Hex()
	result.BlockNumber = receipt.BlockNumber.Uint64()
	result.Submitter = s.signer.Address().Hex()
	log.Printf("Anchored %s in tx %s at block %d", metaFP, result.AnchorTxHash, result.BlockNumber)

	s.rewards.RecordTransfer(s.signer.Address(), s.contract.Address, "0", result.AnchorTxHash, result.BlockNumber)

	reward, err := s.rewards.Reward(ctx, wallet)
	if err != nil {
		log.Printf("Reward to %s for %s failed: %v", wallet.Hex(), metaFP, err)
		result.RewardError = err.Error()
		return result, fmt.Errorf("%w: %w", common.ErrRewardFailed, err)
	}
	result.Reward = &RewardInfo{
		Amount: token_service.FormatAmount(s.rewards.RewardAmount()),
		TxHash: reward.TxHash,
	}
	return result, nil
}

// verifyReadback content must come back byte-identical or as equal JSON
func (s *AnchorService) verifyReadback(ctx context.Context, fp storage.Fingerprint, written []byte, metadata model.Metadata) error {
	readback, err := s.store.Get(ctx, fp)
	if err != nil {
		return fmt.Errorf("%w: read back %s: %v", common.ErrStorageVerificationFailed, fp, err)
	}
	if bytes.Equal(readback, written) {
		return nil
	}
	parsed, err := model.ParseMetadata(readback)
	if err == nil && parsed.Equal(metadata) {
		return nil
	}
	return fmt.Errorf("%w: content of %s differs from what was written", common.ErrStorageVerificationFailed, fp)
}

// checkNotAnchored asks the contract whether the digest is stored already.
// Contracts without validateHash are not checked.
func (s *AnchorService) checkNotAnchored(ctx context.Context, fingerprint string) error {
	if _, ok := s.contract.ABI.Methods["validateHash"]; !ok {
		return nil
	}
	data, err := s.contract.ValidateHashCallData(fingerprint)
	if err != nil {
		return nil
	}
	out, err := s.transactor.CallView(ctx, s.contract.Address, data)
	if err != nil {
		log.Printf("validateHash for %s failed, anchoring anyway: %v", fingerprint, err)
		return nil
	}
	stored, err := s.contract.UnpackBool("validateHash", out)
	if err != nil {
		log.Printf("validateHash for %s returned garbage, anchoring anyway: %v", fingerprint, err)
		return nil
	}
	if stored {
		return fmt.Errorf("fingerprint %s is already anchored: %w", fingerprint, common.ErrAlreadyExists)
	}
	return nil
}

// RetrieveResult anchor data, metadata and the optional file payload
type RetrieveResult struct {
	Metadata       model.Metadata      `json:"metadata"`
	BlockchainData *model.AnchorRecord `json:"blockchain_data"`
	FileData       string              `json:"file_data,omitempty"` // base64
	FileError      string              `json:"file_error,omitempty"`
}

// Retrieve resolves the anchor of fingerprint and loads its metadata. A file
// that cannot be fetched is reported in FileError rather than failing the call.
func (s *AnchorService) Retrieve(ctx context.Context, fingerprint string) (*RetrieveResult, error) {
	record, err := s.resolver.Resolve(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	metadata, err := s.loadMetadata(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	result := &RetrieveResult{Metadata: metadata, BlockchainData: record}
	if fileFP, ok := metadata.GetString(model.MetadataFileKey); ok && fileFP != "" {
		content, err := s.store.Get(ctx, storage.Fingerprint(fileFP))
		if err != nil {
			result.FileError = err.Error()
		} else {
			result.FileData = base64.StdEncoding.EncodeToString(content)
		}
	}
	return result, nil
}

func (s *AnchorService) loadMetadata(ctx context.Context, fingerprint string) (model.Metadata, error) {
	raw, err := s.store.Get(ctx, storage.Fingerprint(fingerprint))
	if err != nil {
		return model.Metadata{}, fmt.Errorf("failed to retrieve metadata %s: %w", fingerprint, err)
	}
	metadata, err := model.ParseMetadata(raw)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("metadata %s is not a JSON object: %w", fingerprint, err)
	}
	return metadata, nil
}

// VerifyResult outcome of a verification
type VerifyResult struct {
	Verified     bool            `json:"verified"`
	BlockNumber  uint64          `json:"block_number"`
	AnchorTxHash string          `json:"ethereum_tx_hash"`
	From         string          `json:"from,omitempty"`
	Metadata     *model.Metadata `json:"metadata,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// Verify accepts a fingerprint or a transaction hash (0x + 64 hex digits).
// A transaction hash is looked up directly and cannot yield the fingerprint.
func (s *AnchorService) Verify(ctx context.Context, hash string) (*VerifyResult, error) {
	if indexer.IsTxHash(hash) {
		tx, err := s.resolver.ResolveTx(ctx, hash)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{
			Verified:     tx.Success,
			BlockNumber:  tx.BlockNumber,
			AnchorTxHash: tx.TxHash,
			From:         tx.From,
			Note:         "fingerprint cannot be derived from the on-chain digest; only the transaction is verified",
		}, nil
	}

	record, err := s.resolver.Resolve(ctx, hash)
	if err != nil {
		return nil, err
	}
	metadata, err := s.loadMetadata(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Verified:     true,
		BlockNumber:  record.BlockNumber,
		AnchorTxHash: record.TxHash,
		From:         record.Submitter,
		Metadata:     &metadata,
	}, nil
}

// IsPartialSuccess anchored but the reward failed
func IsPartialSuccess(result *AnchorResult, err error) bool {
	return result != nil && errors.Is(err, common.ErrRewardFailed)
}
