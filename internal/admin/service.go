package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lcvote/voteledger/internal/authz"
	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/metrics"
	"github.com/lcvote/voteledger/internal/notification"
)

var tracer = otel.Tracer("github.com/lcvote/voteledger/internal/admin")

// Service is the admin transaction engine. Each mutation runs in one ledger
// transaction together with exactly one AdminAction record.
type Service struct {
	store     ledger.Store
	directory Directory
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the admin engine. directory, notifier and m may be nil.
func NewService(store ledger.Store, directory Directory, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetBalanceInput overwrites the target's balance.
type SetBalanceInput struct {
	TargetAccountID string
	NewBalance      int64
}

// SetBalanceResult is the committed balance.
type SetBalanceResult struct {
	ActionID string
	Balance  int64
}

// TransferInput moves Amount from one account to another.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        int64
}

// TransferResult holds both post-transfer balances.
type TransferResult struct {
	ActionID    string
	FromBalance int64
	ToBalance   int64
}

// VotingPermissionInput sets the target's canVote flag.
type VotingPermissionInput struct {
	TargetAccountID string
	CanVote         bool
}

// VotingPermissionResult is the committed flag.
type VotingPermissionResult struct {
	ActionID string
	CanVote  bool
}

// SetBalance overwrites the target balance regardless of its prior value.
func (s *Service) SetBalance(ctx context.Context, actor authz.Identity, input SetBalanceInput) (SetBalanceResult, error) {
	var result SetBalanceResult
	action, err := s.execute(ctx, actor, mutation{
		op:         authz.OpSetBalance,
		actionType: ledger.ActionSetBalance,
		subject:    input.TargetAccountID,
		validate: func() error {
			if input.TargetAccountID == "" {
				return domainerr.New(domainerr.InvalidPayload, "userId is required")
			}
			if input.NewBalance < 0 {
				return domainerr.New(domainerr.InvalidAmount, "balance must be a non-negative integer")
			}
			return nil
		},
		apply: func(ctx context.Context, tx ledger.Tx) (any, error) {
			accounts, err := tx.LockAccounts(ctx, input.TargetAccountID)
			if err != nil {
				return nil, err
			}
			target := accounts[input.TargetAccountID]
			previous := target.Balance
			target.Balance = input.NewBalance
			if err := tx.UpdateAccount(ctx, target); err != nil {
				return nil, err
			}
			result.Balance = target.Balance
			return ledger.SetBalanceDetails{
				TargetAccountID: target.ID,
				PreviousBalance: previous,
				NewBalance:      target.Balance,
			}, nil
		},
	})
	if err != nil {
		return SetBalanceResult{}, err
	}
	result.ActionID = action.ID
	return result, nil
}

// Transfer debits from and credits to in one unit, conserving their total.
func (s *Service) Transfer(ctx context.Context, actor authz.Identity, input TransferInput) (TransferResult, error) {
	var result TransferResult
	action, err := s.execute(ctx, actor, mutation{
		op:         authz.OpTransfer,
		actionType: ledger.ActionTransfer,
		subject:    input.FromAccountID,
		validate: func() error {
			if input.FromAccountID == "" || input.ToAccountID == "" {
				return domainerr.New(domainerr.InvalidPayload, "fromUserId and toUserId are required")
			}
			if input.FromAccountID == input.ToAccountID {
				return domainerr.New(domainerr.SameAccount, "choose two different users")
			}
			if input.Amount <= 0 {
				return domainerr.New(domainerr.InvalidAmount, "amount must be a positive integer")
			}
			return nil
		},
		apply: func(ctx context.Context, tx ledger.Tx) (any, error) {
			accounts, err := tx.LockAccounts(ctx, input.FromAccountID, input.ToAccountID)
			if err != nil {
				return nil, err
			}
			from, to := accounts[input.FromAccountID], accounts[input.ToAccountID]
			if from.Balance < input.Amount {
				return nil, domainerr.New(domainerr.InsufficientBalance,
					fmt.Sprintf("source account has %d votes, cannot transfer %d", from.Balance, input.Amount))
			}

			details := ledger.TransferDetails{
				FromAccountID:     from.ID,
				ToAccountID:       to.ID,
				Amount:            input.Amount,
				FromBalanceBefore: from.Balance,
				ToBalanceBefore:   to.Balance,
			}
			from.Balance -= input.Amount
			to.Balance += input.Amount
			if err := tx.UpdateAccount(ctx, from); err != nil {
				return nil, err
			}
			if err := tx.UpdateAccount(ctx, to); err != nil {
				return nil, err
			}
			details.FromBalanceAfter = from.Balance
			details.ToBalanceAfter = to.Balance

			result.FromBalance = from.Balance
			result.ToBalance = to.Balance
			return details, nil
		},
	})
	if err != nil {
		return TransferResult{}, err
	}
	result.ActionID = action.ID
	return result, nil
}

// SetVotingPermission sets canVote. Setting the current value still commits
// and is still audited.
func (s *Service) SetVotingPermission(ctx context.Context, actor authz.Identity, input VotingPermissionInput) (VotingPermissionResult, error) {
	var result VotingPermissionResult
	action, err := s.execute(ctx, actor, mutation{
		op:         authz.OpToggleVoting,
		actionType: ledger.ActionToggleVote,
		subject:    input.TargetAccountID,
		validate: func() error {
			if input.TargetAccountID == "" {
				return domainerr.New(domainerr.InvalidPayload, "userId is required")
			}
			return nil
		},
		apply: func(ctx context.Context, tx ledger.Tx) (any, error) {
			accounts, err := tx.LockAccounts(ctx, input.TargetAccountID)
			if err != nil {
				return nil, err
			}
			target := accounts[input.TargetAccountID]
			previous := target.CanVote
			target.CanVote = input.CanVote
			if err := tx.UpdateAccount(ctx, target); err != nil {
				return nil, err
			}
			result.CanVote = target.CanVote
			return ledger.ToggleVoteDetails{
				TargetAccountID: target.ID,
				PreviousCanVote: previous,
				CanVote:         target.CanVote,
			}, nil
		},
	})
	if err != nil {
		return VotingPermissionResult{}, err
	}
	result.ActionID = action.ID
	return result, nil
}

type mutation struct {
	op         authz.OpKind
	actionType ledger.ActionType
	subject    string
	validate   func() error
	apply      func(ctx context.Context, tx ledger.Tx) (any, error)
}

// execute runs gate → validation → transaction. The audit record is inserted
// inside the same transaction as apply's writes.
func (s *Service) execute(ctx context.Context, actor authz.Identity, m mutation) (ledger.AdminAction, error) {
	ctx, span := tracer.Start(ctx, "admin."+string(m.op))
	defer span.End()
	span.SetAttributes(
		attribute.String("actor_id", actor.AccountID),
		attribute.String("subject_id", m.subject),
	)

	action, err := s.executeTx(ctx, actor, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domainerr.Message(err))
		s.reject(m, actor, err)
		return ledger.AdminAction{}, err
	}

	s.metrics.IncrementAdminAction(string(m.actionType))
	if s.logger != nil {
		s.logger.Info("admin action committed",
			"action_id", action.ID,
			"action_type", action.ActionType,
			"actor_id", actor.AccountID,
			"account_id", m.subject,
		)
	}
	s.publish(ctx, m.subject, action)
	return action, nil
}

func (s *Service) executeTx(ctx context.Context, actor authz.Identity, m mutation) (ledger.AdminAction, error) {
	if err := authz.Check(actor, authz.Operation{Kind: m.op}); err != nil {
		return ledger.AdminAction{}, err
	}
	if err := m.validate(); err != nil {
		return ledger.AdminAction{}, err
	}

	var action ledger.AdminAction
	started := time.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		details, err := m.apply(ctx, tx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		action = ledger.AdminAction{
			ID:         ledger.NewID(),
			ActorID:    actor.AccountID,
			ActionType: m.actionType,
			Details:    raw,
			CreatedAt:  s.now(),
		}
		return tx.InsertAdminAction(ctx, action)
	})
	s.metrics.ObserveTransaction(string(m.op), started)
	if err != nil {
		return ledger.AdminAction{}, domainerr.EnsureKind(string(m.op), err)
	}
	return action, nil
}

func (s *Service) reject(m mutation, actor authz.Identity, err error) {
	kind := domainerr.KindOf(err)
	s.metrics.IncrementRejection(string(m.op), string(kind))
	if s.logger == nil {
		return
	}
	attrs := []any{"operation", m.op, "actor_id", actor.AccountID, "account_id", m.subject, "kind", kind}
	if kind == domainerr.StorageError {
		s.logger.Error("admin action failed", append(attrs, "error", err)...)
		return
	}
	s.logger.Warn("admin action rejected", append(attrs, "reason", domainerr.Message(err))...)
}

func (s *Service) publish(ctx context.Context, accountID string, action ledger.AdminAction) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		ID:         action.ID,
		Kind:       notification.KindAdminAction,
		AccountID:  accountID,
		ActorID:    action.ActorID,
		Payload:    action.Details,
		OccurredAt: action.CreatedAt,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("publish admin event", "action_id", action.ID, "error", err)
	}
}
