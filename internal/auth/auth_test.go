package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/logging"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	token, exp, err := tokens.Issue("acc-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	accountID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", accountID)
}

func TestTokensRejectTamperedAndExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	_, err = NewTokens("other-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue("acc-1")
	require.NoError(t, err)
	_, err = tokens.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogin(t *testing.T) {
	ids := identity.NewService(identity.NewMemoryRepository()).WithCost(bcrypt.MinCost)
	ctx := context.Background()
	_, err := ids.Register(ctx, "acc-1", "Voter", identity.Credentials{Email: "user1@demo.com", Password: "password123"})
	require.NoError(t, err)

	tokens := NewTokens("secret", time.Hour)
	svc := NewService(ids, tokens, logging.Discard())

	session, err := svc.Login(ctx, identity.Credentials{Email: "user1@demo.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", session.AccountID)
	sub, err := tokens.Verify(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", sub)

	_, err = svc.Login(ctx, identity.Credentials{Email: "user1@demo.com", Password: "nope-nope"})
	assert.Equal(t, domainerr.Unauthenticated, domainerr.KindOf(err))

	_, err = svc.Login(ctx, identity.Credentials{Email: "", Password: "x"})
	assert.Equal(t, domainerr.InvalidPayload, domainerr.KindOf(err))
}

type brokenDirectory struct{}

func (brokenDirectory) Authenticate(context.Context, identity.Credentials) (identity.User, error) {
	return identity.User{}, errors.New("connection refused")
}

func TestLoginStorageFailure(t *testing.T) {
	svc := NewService(brokenDirectory{}, NewTokens("secret", time.Hour), nil)
	_, err := svc.Login(context.Background(), identity.Credentials{Email: "a@b.c", Password: "password123"})
	assert.Equal(t, domainerr.StorageError, domainerr.KindOf(err))
}
