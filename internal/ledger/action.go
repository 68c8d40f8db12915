package ledger

import (
	"encoding/json"
	"time"
)

// ActionType names the administrative mutation an AdminAction records.
type ActionType string

const (
	ActionTransfer   ActionType = "transfer"
	ActionSetBalance ActionType = "setBalance"
	ActionToggleVote ActionType = "toggleVote"
)

// AdminAction is an append-only audit record written in the same transaction
// as the state change it describes.
type AdminAction struct {
	ID         string
	ActorID    string
	ActionType ActionType
	Details    json.RawMessage
	CreatedAt  time.Time
}

// SetBalanceDetails is the payload of an ActionSetBalance record.
type SetBalanceDetails struct {
	TargetAccountID string `json:"targetAccountId"`
	PreviousBalance int64  `json:"previousBalance"`
	NewBalance      int64  `json:"newBalance"`
}

// TransferDetails is the payload of an ActionTransfer record.
type TransferDetails struct {
	FromAccountID     string `json:"fromAccountId"`
	ToAccountID       string `json:"toAccountId"`
	Amount            int64  `json:"amount"`
	FromBalanceBefore int64  `json:"fromBalanceBefore"`
	FromBalanceAfter  int64  `json:"fromBalanceAfter"`
	ToBalanceBefore   int64  `json:"toBalanceBefore"`
	ToBalanceAfter    int64  `json:"toBalanceAfter"`
}

// ToggleVoteDetails is the payload of an ActionToggleVote record.
type ToggleVoteDetails struct {
	TargetAccountID string `json:"targetAccountId"`
	PreviousCanVote bool   `json:"previousCanVote"`
	CanVote         bool   `json:"canVote"`
}

// DecodeDetails unmarshals the action payload into dst.
func (a AdminAction) DecodeDetails(dst any) error {
	return json.Unmarshal(a.Details, dst)
}
