package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	// KindVoteCast is published after a ballot commits.
	KindVoteCast = "vote_cast"
	// KindAdminAction is published after an administrative mutation commits.
	KindAdminAction = "admin_action"
)

// Message describes a committed ledger event. Publication happens after the
// transaction, so a failed Send never affects ledger state.
type Message struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	AccountID  string          `json:"accountId"`
	ActorID    string          `json:"actorId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Notifier delivers ledger events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes events to the structured logger. It is the fallback
// when no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("ledger event",
		"kind", message.Kind,
		"event_id", message.ID,
		"account_id", message.AccountID,
		"actor_id", message.ActorID,
		"payload", string(message.Payload),
	)
	return nil
}
