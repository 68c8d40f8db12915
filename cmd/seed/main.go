// Command seed provisions the demo admin and voter accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lcvote/voteledger/internal/config"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/infra"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/logging"
)

type seedUser struct {
	email       string
	password    string
	displayName string
	committee   string
	role        ledger.Role
	votes       int64
}

var users = []seedUser{
	{email: "admin@example.com", password: "AdminPass123", displayName: "Admin User", committee: "LC HQ", role: ledger.RoleAdmin, votes: 10},
	{email: "user1@demo.com", password: "Password1", displayName: "LC Hacettepe Voter", committee: "LC Hacettepe", role: ledger.RoleUser, votes: 3},
	{email: "user2@demo.com", password: "Password2", displayName: "LC Cairo Voter", committee: "LC Cairo", role: ledger.RoleUser, votes: 2},
	{email: "user3@demo.com", password: "Password3", displayName: "LC Lisbon Voter", committee: "LC Lisbon", role: ledger.RoleUser, votes: 1},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, "seed")

	ctx := context.Background()
	db, err := infra.NewPostgresPool(ctx, infra.PostgresOptions{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := infra.Migrate(ctx, db); err != nil {
		logger.Error("migrate schema", "error", err)
		os.Exit(1)
	}

	store := ledger.NewPostgresStore(db)
	ids := identity.NewService(identity.NewPostgresRepository(db))
	if err := seed(ctx, store, ids, logger); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seeding completed", "accounts", len(users))
}

func seed(ctx context.Context, store ledger.Store, ids *identity.Service, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, u := range users {
		u := u
		g.Go(func() error {
			accountID, err := ensureUser(ctx, store, ids, u)
			if err != nil {
				return fmt.Errorf("seed %s: %w", u.email, err)
			}
			logger.Info("seeded account", "email", u.email, "role", u.role, "account_id", accountID)
			return nil
		})
	}
	return g.Wait()
}

// ensureUser creates the account and login on first run, and resets the
// balance and voting permission of an existing one.
func ensureUser(ctx context.Context, store ledger.Store, ids *identity.Service, u seedUser) (string, error) {
	existing, err := ids.ByEmail(ctx, u.email)
	switch {
	case err == nil:
		return existing.AccountID, store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			accounts, err := tx.LockAccounts(ctx, existing.AccountID)
			if err != nil {
				return err
			}
			account := accounts[existing.AccountID]
			account.Balance = u.votes
			account.CanVote = true
			return tx.UpdateAccount(ctx, account)
		})
	case !errors.Is(err, identity.ErrUserNotFound):
		return "", err
	}

	account := ledger.Account{
		ID:        ledger.NewID(),
		Role:      u.role,
		Committee: u.committee,
		Balance:   u.votes,
		CanVote:   true,
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		return "", err
	}
	if _, err := ids.Register(ctx, account.ID, u.displayName, identity.Credentials{Email: u.email, Password: u.password}); err != nil {
		return "", err
	}
	return account.ID, nil
}
