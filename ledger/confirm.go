package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meta-anchor/common"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type confirmState int

const (
	statePending confirmState = iota
	stateConfirmed
	stateTimedOut
)

func (s confirmState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateConfirmed:
		return "confirmed"
	default:
		return "timed_out"
	}
}

// newPollBackOff fixed interval, at most maxAttempts polls in total
func newPollBackOff(ctx context.Context, interval time.Duration, maxAttempts int) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1))
	return backoff.WithContext(b, ctx)
}

// Confirm polls for the receipt of txHash. A missing receipt after MaxAttempts
// polls (or a cancelled ctx) is common.ErrConfirmationTimeout; the transaction
// itself may still be mined later. A failed receipt is returned together with
// common.ErrTransactionReverted.
func (t *Transactor) Confirm(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	started := time.Now()
	b := newPollBackOff(ctx, t.cfg.PollInterval, t.cfg.MaxAttempts)

	state := statePending
	attempts := 0
	var receipt *types.Receipt
	var lastErr error

	for state == statePending {
		attempts++
		r, err := t.client.TransactionReceipt(ctx, txHash)
		if err == nil && r != nil {
			receipt = r
			state = stateConfirmed
			break
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
			log.Printf("Receipt poll %d for %s failed: %v", attempts, txHash.Hex(), err)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			state = stateTimedOut
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			state = stateTimedOut
		case <-timer.C:
		}
	}

	t.cfg.Metrics.ObserveConfirm(state.String(), time.Since(started))

	if state == stateTimedOut {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: tx %s after %d polls: %v", common.ErrConfirmationTimeout, txHash.Hex(), attempts, ctx.Err())
		}
		if lastErr != nil {
			return nil, fmt.Errorf("%w: tx %s after %d polls, last error: %v", common.ErrConfirmationTimeout, txHash.Hex(), attempts, lastErr)
		}
		return nil, fmt.Errorf("%w: tx %s after %d polls", common.ErrConfirmationTimeout, txHash.Hex(), attempts)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: tx %s in block %d", common.ErrTransactionReverted, txHash.Hex(), receipt.BlockNumber.Uint64())
	}
	return receipt, nil
}
