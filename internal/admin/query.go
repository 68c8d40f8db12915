package admin

import (
	"context"

	"github.com/lcvote/voteledger/internal/authz"
	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/ledger"
)

// Directory resolves login details for a batch of accounts.
type Directory interface {
	LookupMany(ctx context.Context, accountIDs []string) (map[string]identity.User, error)
}

// AccountView is an account joined with its directory entry.
type AccountView struct {
	ledger.Account
	Email       string
	DisplayName string
}

// VoteView is a vote joined with the voter's committee and email.
type VoteView struct {
	ledger.Vote
	Committee string
	Email     string
}

// ListAccounts returns every account, oldest first.
func (s *Service) ListAccounts(ctx context.Context, actor authz.Identity) ([]AccountView, error) {
	if err := authz.Check(actor, authz.Operation{Kind: authz.OpListAccounts}); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, domainerr.EnsureKind("list accounts", err)
	}

	users := s.lookup(ctx, accountIDs(accounts))
	views := make([]AccountView, 0, len(accounts))
	for _, account := range accounts {
		user := users[account.ID]
		views = append(views, AccountView{Account: account, Email: user.Email, DisplayName: user.DisplayName})
	}
	return views, nil
}

// ListVotes returns votes newest first, narrowed by filter.
func (s *Service) ListVotes(ctx context.Context, actor authz.Identity, filter ledger.VoteFilter) ([]VoteView, error) {
	if err := authz.Check(actor, authz.Operation{Kind: authz.OpListVotes}); err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, filter)
	if err != nil {
		return nil, domainerr.EnsureKind("list votes", err)
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, domainerr.EnsureKind("list votes", err)
	}
	committees := make(map[string]string, len(accounts))
	for _, account := range accounts {
		committees[account.ID] = account.Committee
	}

	seen := make(map[string]struct{})
	var voters []string
	for _, vote := range votes {
		if _, ok := seen[vote.AccountID]; !ok {
			seen[vote.AccountID] = struct{}{}
			voters = append(voters, vote.AccountID)
		}
	}
	users := s.lookup(ctx, voters)

	views := make([]VoteView, 0, len(votes))
	for _, vote := range votes {
		views = append(views, VoteView{
			Vote:      vote,
			Committee: committees[vote.AccountID],
			Email:     users[vote.AccountID].Email,
		})
	}
	return views, nil
}

// ListAdminActions returns the most recent audit records, newest first.
func (s *Service) ListAdminActions(ctx context.Context, actor authz.Identity, limit int) ([]ledger.AdminAction, error) {
	if err := authz.Check(actor, authz.Operation{Kind: authz.OpListAdminActions}); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > ledger.MaxVoteLimit {
		limit = ledger.DefaultActionLimit
	}
	actions, err := s.store.ListAdminActions(ctx, limit)
	if err != nil {
		return nil, domainerr.EnsureKind("list admin actions", err)
	}
	return actions, nil
}

// lookup is best-effort: a directory failure leaves emails blank.
func (s *Service) lookup(ctx context.Context, ids []string) map[string]identity.User {
	if s.directory == nil || len(ids) == 0 {
		return nil
	}
	users, err := s.directory.LookupMany(ctx, ids)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("directory lookup failed", "count", len(ids), "error", err)
		}
		return nil
	}
	return users
}

func accountIDs(accounts []ledger.Account) []string {
	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids
}
