package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lcvote/voteledger/internal/domainerr"
)

// Role is the authorization role attached to an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	// ErrAccountExists is returned by CreateAccount when the id is already taken.
	ErrAccountExists = errors.New("account exists")

	// ErrAccountNotLocked indicates a write to an account the transaction never locked.
	ErrAccountNotLocked = errors.New("account not locked in transaction")

	// ErrNegativeBalance guards the balance >= 0 invariant at the storage layer.
	ErrNegativeBalance = errors.New("balance must not be negative")
)

// Account is one voter or administrator.
type Account struct {
	ID        string
	Role      Role
	Committee string
	Balance   int64
	CanVote   bool
	CreatedAt time.Time
}

// Vote is one ballot cast by an account. Votes are immutable once inserted.
type Vote struct {
	ID        string
	AccountID string
	Choices   []Choice
	CreatedAt time.Time
}

// VoteFilter narrows ListVotes. Zero values mean "no filter".
type VoteFilter struct {
	AccountID string
	Committee string
	Limit     int
}

const (
	DefaultVoteLimit   = 200
	MaxVoteLimit       = 500
	DefaultActionLimit = 100
)

// NormalizedLimit clamps the filter limit to (0, MaxVoteLimit].
func (f VoteFilter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultVoteLimit
	case f.Limit > MaxVoteLimit:
		return MaxVoteLimit
	default:
		return f.Limit
	}
}

// Tx is the unit of work handed to Store.WithTx. Every account that will be
// written must first be locked, and all accounts must be locked in a single
// LockAccounts call so lock ordering stays deterministic.
type Tx interface {
	LockAccounts(ctx context.Context, ids ...string) (map[string]Account, error)
	UpdateAccount(ctx context.Context, account Account) error
	InsertVote(ctx context.Context, vote Vote) error
	InsertAdminAction(ctx context.Context, action AdminAction) error
}

// Store is the durable ledger of accounts, votes and admin actions.
type Store interface {
	// WithTx runs fn atomically. If fn returns an error nothing it did is kept.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	CreateAccount(ctx context.Context, account Account) error
	Account(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	ListVotes(ctx context.Context, filter VoteFilter) ([]Vote, error)
	ListAdminActions(ctx context.Context, limit int) ([]AdminAction, error)
}

func accountNotFound(id string) error {
	return domainerr.New(domainerr.AccountNotFound, fmt.Sprintf("account %s not found", id))
}
