package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"meta-anchor/ledger"
	"meta-anchor/metrics"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/schollz/progressbar/v3"
)

// DefaultScanWindow blocks below the head inspected by a backward scan
const DefaultScanWindow = 10000

// ErrStopScan returned by a TxHandler to end the walk early without error
var ErrStopScan = errors.New("stop scan")

// TxHandler called for every transaction of every scanned block
type TxHandler func(block *types.Block, tx *types.Transaction) error

// BlockScanner walks ledger blocks from the head backward over a bounded window
type BlockScanner struct {
	client       ledger.Client
	window       uint64
	showProgress bool
	metrics      *metrics.Metrics
	onBlock      func(height uint64)
}

// NewBlockScanner create block scanner; window 0 means DefaultScanWindow
func NewBlockScanner(client ledger.Client, window uint64) *BlockScanner {
	if window == 0 {
		window = DefaultScanWindow
	}
	return &BlockScanner{
		client: client,
		window: window,
	}
}

// EnableProgressBar render a progress bar on stderr while scanning (CLI use)
func (s *BlockScanner) EnableProgressBar() {
	s.showProgress = true
}

// SetMetrics count scanned blocks
func (s *BlockScanner) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// OnBlock hook called after each block is inspected
func (s *BlockScanner) OnBlock(fn func(height uint64)) {
	s.onBlock = fn
}

// Window configured scan depth
func (s *BlockScanner) Window() uint64 {
	return s.window
}

// Range heights [low, head] the next scan will cover
func (s *BlockScanner) Range(ctx context.Context) (head, low uint64, err error) {
	head, err = s.client.BlockNumber(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get block height: %w", err)
	}
	if head > s.window {
		low = head - s.window
	}
	return head, low, nil
}

// ScanBlock fetch one block with its transactions and feed them to handler
func (s *BlockScanner) ScanBlock(ctx context.Context, height uint64, handler TxHandler) error {
	block, err := s.client.BlockByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		return fmt.Errorf("failed to get block %d: %w", height, err)
	}
	s.metrics.BlockScanned()

	for _, tx := range block.Transactions() {
		if err := handler(block, tx); err != nil {
			return err
		}
	}
	return nil
}

// ScanBackward visits heights head down to max(0, head-window) inclusive, newest first.
// It stops at the first handler error; ErrStopScan ends the walk with a nil error.
func (s *BlockScanner) ScanBackward(ctx context.Context, handler TxHandler) (scanned uint64, err error) {
	head, low, err := s.Range(ctx)
	if err != nil {
		return 0, err
	}

	var bar *progressbar.ProgressBar
	if s.showProgress {
		bar = progressbar.NewOptions64(
			int64(head-low+1),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Scanning blocks"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("blocks"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true),
		)
		defer bar.Finish()
	}

	log.Printf("Scanning blocks %d down to %d", head, low)
	height := head
	for {
		if err := ctx.Err(); err != nil {
			return scanned, err
		}
		err := s.ScanBlock(ctx, height, handler)
		scanned++
		if bar != nil {
			bar.Add(1)
		}
		if s.onBlock != nil {
			s.onBlock(height)
		}
		if errors.Is(err, ErrStopScan) {
			return scanned, nil
		}
		if err != nil {
			return scanned, err
		}
		if height == low {
			return scanned, nil
		}
		height--
	}
}
