package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"meta-anchor/common"
	"meta-anchor/ledger"
	"meta-anchor/metrics"
	"meta-anchor/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/singleflight"
)

// ErrNotAnchored no committed anchor for the fingerprint within the scan window.
// It does not mean the fingerprint was never anchored.
var ErrNotAnchored = fmt.Errorf("fingerprint not anchored within scan window: %w", common.ErrNotFound)

// ResultCache keyed cache for positive resolutions
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// ProvenanceResolver finds the transaction that anchored a fingerprint by replaying
// recent blocks. There is no index; cost is linear in the window.
type ProvenanceResolver struct {
	client   ledger.Client
	contract *ledger.TokenContract
	scanner  *BlockScanner
	cache    ResultCache
	metrics  *metrics.Metrics
	group    singleflight.Group
}

// NewProvenanceResolver resolver scanning window blocks below the head
func NewProvenanceResolver(client ledger.Client, contract *ledger.TokenContract, window uint64) *ProvenanceResolver {
	return &ProvenanceResolver{
		client:   client,
		contract: contract,
		scanner:  NewBlockScanner(client, window),
	}
}

// SetCache cache found anchors. Misses are never cached since a later anchor may appear.
func (r *ProvenanceResolver) SetCache(cache ResultCache) {
	r.cache = cache
}

// SetMetrics record scan and lookup metrics
func (r *ProvenanceResolver) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
	r.scanner.SetMetrics(m)
}

// Scanner underlying block scanner, for progress reporting
func (r *ProvenanceResolver) Scanner() *BlockScanner {
	return r.scanner
}

// Resolve returns the newest committed anchor of fingerprint in the window.
// Concurrent calls for the same fingerprint share one scan.
func (r *ProvenanceResolver) Resolve(ctx context.Context, fingerprint string) (*model.AnchorRecord, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", common.ErrValidation)
	}

	if r.cache != nil {
		var cached model.AnchorRecord
		ok, err := r.cache.Get(ctx, fingerprint, &cached)
		if err != nil {
			log.Printf("Resolver cache read failed for %s: %v", fingerprint, err)
		} else if ok {
			r.metrics.Resolve("cached")
			return &cached, nil
		}
	}

	// The scan is shared by every caller of the same fingerprint, so it must not
	// die with the first caller's context; each caller stops waiting on its own.
	ch := r.group.DoChan(fingerprint, func() (interface{}, error) {
		return r.scan(context.WithoutCancel(ctx), fingerprint)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		r.metrics.Resolve("error")
		return nil, fmt.Errorf("resolve %s: %w", fingerprint, ctx.Err())
	}
	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			r.metrics.Resolve("not_found")
		} else {
			r.metrics.Resolve("error")
		}
		return nil, err
	}
	r.metrics.Resolve("found")

	record := *v.(*model.AnchorRecord)
	if r.cache != nil {
		if err := r.cache.Set(ctx, fingerprint, record); err != nil {
			log.Printf("Resolver cache write failed for %s: %v", fingerprint, err)
		}
	}
	return &record, nil
}

func (r *ProvenanceResolver) scan(ctx context.Context, fingerprint string) (*model.AnchorRecord, error) {
	expected, err := r.contract.AnchorCallData(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to encode anchor call: %w", err)
	}

	var found *model.AnchorRecord
	scanned, err := r.scanner.ScanBackward(ctx, func(block *types.Block, tx *types.Transaction) error {
		if !ledger.IsAnchorCall(tx.Data(), expected) {
			return nil
		}
		// A candidate that cannot be checked aborts the scan: skipping it could
		// report a real anchor as missing or return an older duplicate.
		receipt, err := r.client.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return fmt.Errorf("receipt for candidate %s: %w", tx.Hash().Hex(), err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			log.Printf("Skipping failed anchor candidate %s in block %d", tx.Hash().Hex(), block.NumberU64())
			return nil
		}
		from, err := ledger.SenderOf(tx)
		if err != nil {
			return fmt.Errorf("sender of candidate %s: %w", tx.Hash().Hex(), err)
		}
		found = &model.AnchorRecord{
			Fingerprint: fingerprint,
			TxHash:      tx.Hash().Hex(),
			BlockNumber: block.NumberU64(),
			Submitter:   from.Hex(),
		}
		return ErrStopScan
	})
	if err != nil {
		return nil, fmt.Errorf("scan for %s: %w", fingerprint, err)
	}
	if found == nil {
		log.Printf("No anchor for %s in %d scanned blocks", fingerprint, scanned)
		return nil, ErrNotAnchored
	}
	log.Printf("Anchor for %s found in tx %s at block %d (%d blocks scanned)", fingerprint, found.TxHash, found.BlockNumber, scanned)
	return found, nil
}

// IsTxHash 0x followed by 64 hex digits
func IsTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// ResolveTx direct lookup by transaction hash. Only block and sender are
// recoverable; the digest in the call data cannot be reversed to a fingerprint.
func (r *ProvenanceResolver) ResolveTx(ctx context.Context, txHash string) (*model.TxRecord, error) {
	if !IsTxHash(txHash) {
		return nil, fmt.Errorf("%w: malformed transaction hash %q", common.ErrValidation, txHash)
	}
	hash := ethcommon.HexToHash(txHash)

	receipt, err := r.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt %s: %w", txHash, err)
	}
	tx, _, err := r.client.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", txHash, err)
	}
	from, err := ledger.SenderOf(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender of %s: %w", txHash, err)
	}

	return &model.TxRecord{
		TxHash:      hash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		From:        from.Hex(),
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}
