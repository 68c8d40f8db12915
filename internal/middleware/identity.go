package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/authz"
	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/ledger"
)

const identityKey = "identity"

// TokenVerifier maps a bearer token to an account id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AccountReader loads the ledger account behind a token.
type AccountReader interface {
	Account(ctx context.Context, id string) (ledger.Account, error)
}

// Identify resolves the bearer token into an authz.Identity. It never rejects:
// a missing or invalid token leaves the caller unauthenticated and the
// authorization gate decides what that means for the operation.
func Identify(tokens TokenVerifier, accounts AccountReader, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
			return c.Next()
		}
		accountID, err := tokens.Verify(strings.TrimSpace(header[len("bearer "):]))
		if err != nil {
			logger.Debug("bearer token rejected", slog.Any("error", err))
			return c.Next()
		}

		account, err := accounts.Account(c.UserContext(), accountID)
		switch {
		case err == nil:
			c.Locals(identityKey, authz.Identity{AccountID: account.ID, Role: account.Role})
		case domainerr.Is(err, domainerr.AccountNotFound):
			logger.Warn("token for unknown account", slog.String("account_id", accountID))
		default:
			return domainerr.EnsureKind("resolve identity", err)
		}
		return c.Next()
	}
}

// IdentityFrom returns the caller resolved by Identify, or the zero Identity.
func IdentityFrom(c *fiber.Ctx) authz.Identity {
	id, _ := c.Locals(identityKey).(authz.Identity)
	return id
}
