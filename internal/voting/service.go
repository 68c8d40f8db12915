package voting

import (
	"context"
	"encoding/json"
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

const operationCast = "castVote"

var tracer = otel.Tracer("github.com/lcvote/voteledger/internal/voting")

// Service is the vote casting engine. A cast debits exactly one unit of
// balance per ballot, however many labels the ballot selects.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a vote casting engine. notifier and m may be nil.
func NewService(store ledger.Store, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CastInput is a ballot submitted on behalf of AccountID.
type CastInput struct {
	AccountID string
	Choices   []string
}

// CastResult is the committed outcome of a cast.
type CastResult struct {
	VoteID    string
	Remaining int64
	Choices   []ledger.Choice
	CastAt    time.Time
}

// Cast validates the ballot, then in one transaction checks the account may
// vote, debits one unit and records the vote. Rejections are terminal.
func (s *Service) Cast(ctx context.Context, identity authz.Identity, input CastInput) (CastResult, error) {
	ctx, span := tracer.Start(ctx, "voting.Cast")
	defer span.End()
	span.SetAttributes(attribute.String("account_id", input.AccountID))

	result, err := s.cast(ctx, identity, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domainerr.Message(err))
		s.reject(input.AccountID, err)
		return CastResult{}, err
	}

	s.metrics.IncrementVotesCast()
	s.publish(ctx, input.AccountID, result)
	return result, nil
}

func (s *Service) cast(ctx context.Context, identity authz.Identity, input CastInput) (CastResult, error) {
	if err := authz.Check(identity, authz.Operation{Kind: authz.OpCastVote, TargetAccountID: input.AccountID}); err != nil {
		return CastResult{}, err
	}

	choices, err := ledger.ParseChoices(input.Choices)
	if err != nil {
		return CastResult{}, err
	}

	var result CastResult
	started := time.Now()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.LockAccounts(ctx, input.AccountID)
		if err != nil {
			return err
		}
		account := accounts[input.AccountID]

		// disabled wins over an empty balance
		if !account.CanVote {
			return domainerr.New(domainerr.VotingDisabled, "voting is disabled for this account")
		}
		if account.Balance <= 0 {
			return domainerr.New(domainerr.InsufficientBalance, "no votes remaining")
		}

		account.Balance--
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}

		vote := ledger.Vote{
			ID:        ledger.NewID(),
			AccountID: account.ID,
			Choices:   choices,
			CreatedAt: s.now(),
		}
		if err := tx.InsertVote(ctx, vote); err != nil {
			return err
		}

		result = CastResult{
			VoteID:    vote.ID,
			Remaining: account.Balance,
			Choices:   choices,
			CastAt:    vote.CreatedAt,
		}
		return nil
	})
	s.metrics.ObserveTransaction(operationCast, started)
	if err != nil {
		return CastResult{}, domainerr.EnsureKind("cast vote", err)
	}
	return result, nil
}

func (s *Service) reject(accountID string, err error) {
	kind := domainerr.KindOf(err)
	s.metrics.IncrementRejection(operationCast, string(kind))
	if s.logger == nil {
		return
	}
	if kind == domainerr.StorageError {
		s.logger.Error("vote cast failed", "account_id", accountID, "kind", kind, "error", err)
		return
	}
	s.logger.Info("vote cast rejected", "account_id", accountID, "kind", kind, "reason", domainerr.Message(err))
}

type castPayload struct {
	VoteID    string   `json:"voteId"`
	Choices   []string `json:"choices"`
	Remaining int64    `json:"remaining"`
}

func (s *Service) publish(ctx context.Context, accountID string, result CastResult) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(castPayload{
		VoteID:    result.VoteID,
		Choices:   ledger.ChoiceStrings(result.Choices),
		Remaining: result.Remaining,
	})
	if err != nil {
		return
	}
	err = s.notifier.Send(ctx, notification.Message{
		ID:         result.VoteID,
		Kind:       notification.KindVoteCast,
		AccountID:  accountID,
		Payload:    payload,
		OccurredAt: result.CastAt,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("publish vote event", "account_id", accountID, "vote_id", result.VoteID, "error", err)
	}
}
