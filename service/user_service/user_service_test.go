package user_service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"meta-anchor/common"
	"meta-anchor/database"
	"meta-anchor/ledger"
	"meta-anchor/service/token_service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGranter struct {
	mock.Mock
}

func (m *mockGranter) GrantInitial(ctx context.Context, wallet string) (*token_service.TransferResult, error) {
	args := m.Called(ctx, wallet)
	result, _ := args.Get(0).(*token_service.TransferResult)
	return result, args.Error(1)
}

func newTestDB(t *testing.T) database.Database {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewDatabase(database.DBTypeSQLite, &database.SQLiteConfig{
		DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRegisterReturnsKeyOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)

	identity, err := svc.Register(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.True(t, strings.HasPrefix(identity.PrivateKey, "0x"))
	assert.Len(t, identity.PrivateKey, 66)

	signer, err := ledger.NewSigner(identity.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, signer.Address().Hex(), identity.WalletAddress)

	stored, err := db.GetUserByID("alice")
	require.NoError(t, err)
	assert.NotEqual(t, identity.PrivateKey, stored.PrivateKey)
	assert.Equal(t, HashPrivateKey(identity.PrivateKey), stored.PrivateKey)

	ok, err := svc.Validate(context.Background(), "alice", identity.WalletAddress)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Validate(context.Background(), "alice", strings.ToLower(identity.WalletAddress))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejections(t *testing.T) {
	svc := NewUserService(newTestDB(t), nil)

	_, err := svc.Register(context.Background(), "  ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Register(context.Background(), "bob")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "bob")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestValidate(t *testing.T) {
	svc := NewUserService(newTestDB(t), nil)
	alice, err := svc.Register(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := svc.Register(context.Background(), "bob")
	require.NoError(t, err)

	cases := []struct {
		name   string
		userID string
		wallet string
		want   bool
	}{
		{"match", "alice", alice.WalletAddress, true},
		{"other users wallet", "alice", bob.WalletAddress, false},
		{"unknown user", "carol", alice.WalletAddress, false},
		{"empty id", "", alice.WalletAddress, false},
		{"malformed wallet", "alice", "0xnothex", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.Validate(context.Background(), tc.userID, tc.wallet)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestAuthorize(t *testing.T) {
	svc := NewUserService(newTestDB(t), nil)
	alice, err := svc.Register(context.Background(), "alice")
	require.NoError(t, err)
	other, err := ledger.GenerateSigner()
	require.NoError(t, err)

	user, err := svc.Authorize(context.Background(), alice.WalletAddress, alice.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)

	// key without prefix and in upper case hashes the same
	bare := strings.ToUpper(strings.TrimPrefix(alice.PrivateKey, "0x"))
	_, err = svc.Authorize(context.Background(), alice.WalletAddress, bare)
	assert.NoError(t, err)

	_, err = svc.Authorize(context.Background(), alice.WalletAddress, other.PrivateKeyHex())
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.Authorize(context.Background(), other.Address().Hex(), other.PrivateKeyHex())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Authorize(context.Background(), "wallet", alice.PrivateKey)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRegisterWithInitialGrant(t *testing.T) {
	granter := new(mockGranter)
	granter.On("GrantInitial", mock.Anything, mock.AnythingOfType("string")).
		Return(&token_service.TransferResult{TxHash: "0xabc", BlockNumber: 7, Amount: "10"}, nil).Once()
	svc := NewUserService(newTestDB(t), granter)

	identity, err := svc.Register(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, identity.InitialGrant)
	assert.Equal(t, "0xabc", identity.InitialGrant.TxHash)
	granter.AssertCalled(t, "GrantInitial", mock.Anything, identity.WalletAddress)
}

func TestRegisterGrantFailureKeepsIdentity(t *testing.T) {
	db := newTestDB(t)
	granter := new(mockGranter)
	granter.On("GrantInitial", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("transfer: %w", common.ErrConfirmationTimeout)).Once()
	svc := NewUserService(db, granter)

	identity, err := svc.Register(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRewardFailed)
	require.NotNil(t, identity)
	assert.NotEmpty(t, identity.PrivateKey)
	assert.NotEmpty(t, identity.GrantError)
	assert.Equal(t, "reward_failed", common.ErrorCode(err))

	// the user is registered regardless
	_, err = db.GetUserByID("alice")
	assert.NoError(t, err)
	assert.False(t, errors.Is(err, common.ErrNotFound))
	granter.AssertExpectations(t)
}
