// Package authz decides whether an identity may invoke a ledger operation.
// It performs no I/O: callers supply the identity with its role already
// resolved from the ledger.
package authz

import (
	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/ledger"
)

// Identity is the authenticated caller. The zero value is unauthenticated.
type Identity struct {
	AccountID string
	Role      ledger.Role
}

// Authenticated reports whether the identity carries an account.
func (i Identity) Authenticated() bool {
	return i.AccountID != ""
}

// OpKind enumerates the operations the gate knows about.
type OpKind string

const (
	OpCastVote         OpKind = "castVote"
	OpSetBalance       OpKind = "setBalance"
	OpTransfer         OpKind = "transfer"
	OpToggleVoting     OpKind = "toggleVotingPermission"
	OpListAccounts     OpKind = "listAccounts"
	OpListVotes        OpKind = "listVotes"
	OpListAdminActions OpKind = "listAdminActions"
)

// Operation is a requested action. TargetAccountID is only meaningful for
// self-service operations.
type Operation struct {
	Kind            OpKind
	TargetAccountID string
}

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Decision is the gate's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Err converts a denial into a domain error, keeping 401 and 403 apart.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return domainerr.New(domainerr.Unauthenticated, d.Message)
	default:
		return domainerr.New(domainerr.Forbidden, d.Message)
	}
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason, msg string) Decision {
	return Decision{Reason: reason, Message: msg}
}

// Authorize returns the decision for identity performing op.
func Authorize(identity Identity, op Operation) Decision {
	if !identity.Authenticated() {
		return deny(ReasonUnauthenticated, "authentication required")
	}

	switch op.Kind {
	case OpCastVote:
		if op.TargetAccountID == "" || identity.AccountID != op.TargetAccountID {
			return deny(ReasonForbidden, "votes may only be cast for your own account")
		}
		return allow()
	case OpSetBalance, OpTransfer, OpToggleVoting, OpListAccounts, OpListVotes, OpListAdminActions:
		if identity.Role != ledger.RoleAdmin {
			return deny(ReasonForbidden, "admin role required")
		}
		return allow()
	default:
		return deny(ReasonForbidden, "unknown operation")
	}
}

// Check is Authorize returning an error for denials.
func Check(identity Identity, op Operation) error {
	return Authorize(identity, op).Err()
}
