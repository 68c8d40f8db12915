package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/domainerr"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domainerr.Kind) int {
	switch kind {
	case domainerr.InvalidPayload, domainerr.VotingDisabled, domainerr.InsufficientBalance,
		domainerr.InvalidAmount, domainerr.SameAccount, domainerr.AccountNotFound:
		return http.StatusBadRequest
	case domainerr.Unauthenticated:
		return http.StatusUnauthorized
	case domainerr.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders domain and fiber errors as {"error", "kind"} bodies.
// Storage failures are logged and their cause is not echoed to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorResponse{Error: fe.Message})
		}

		kind := domainerr.KindOf(err)
		if kind == "" {
			kind = domainerr.StorageError
		}
		status := StatusFor(kind)
		message := domainerr.Message(err)
		if status == http.StatusInternalServerError {
			requestID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("request failed",
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Any("error", err),
			)
			message = "internal error"
		}
		return c.Status(status).JSON(errorResponse{Error: message, Kind: string(kind)})
	}
}
