package respond

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"meta-anchor/common"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"validation", fmt.Errorf("%w: bad wallet", common.ErrValidation), http.StatusBadRequest, CodeInvalidParam},
		{"unauthorized", common.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"not found", fmt.Errorf("fp: %w", common.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"duplicate", common.ErrAlreadyExists, http.StatusConflict, CodeConflict},
		{"readback", common.ErrStorageVerificationFailed, http.StatusBadGateway, CodeServerError},
		{"anchor timeout", fmt.Errorf("%w: %w", common.ErrAnchorFailed, common.ErrConfirmationTimeout), http.StatusInternalServerError, CodeServerError},
		{"bare timeout", common.ErrConfirmationTimeout, http.StatusGatewayTimeout, CodeServerError},
		{"reward", common.ErrRewardFailed, http.StatusInternalServerError, CodeServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	l := NewRateLimiter(60)
	l.now = func() time.Time { return clock }

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "clients have separate buckets")

	// one token per second refills
	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	l := NewRateLimiter(1)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clock = clock.Add(11 * time.Minute)
	assert.True(t, l.Allow("b"))

	l.mu.Lock()
	_, kept := l.limiters["a"]
	l.mu.Unlock()
	assert.False(t, kept)
}
