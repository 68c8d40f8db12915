package voting

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/middleware"
)

// Directory resolves display data for an account from the identity provider.
type Directory interface {
	Lookup(ctx context.Context, accountID string) (identity.User, error)
}

// Handler exposes the self-service voting endpoints.
type Handler struct {
	service   *Service
	store     ledger.Store
	directory Directory
}

// NewHandler builds a voting HTTP handler. directory may be nil.
func NewHandler(service *Service, store ledger.Store, directory Directory) *Handler {
	return &Handler{service: service, store: store, directory: directory}
}

type castRequest struct {
	Choices []string `json:"choices"`
}

type castResponse struct {
	Remaining int64    `json:"remaining"`
	Choices   []string `json:"choices"`
}

// Cast handles a ballot for the authenticated account.
func (h *Handler) Cast(c *fiber.Ctx) error {
	var req castRequest
	if err := c.BodyParser(&req); err != nil {
		return domainerr.New(domainerr.InvalidPayload, "invalid payload")
	}

	caller := middleware.IdentityFrom(c)
	res, err := h.service.Cast(c.UserContext(), caller, CastInput{
		AccountID: caller.AccountID,
		Choices:   req.Choices,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(castResponse{
		Remaining: res.Remaining,
		Choices:   ledger.ChoiceStrings(res.Choices),
	})
}

type profileResponse struct {
	AccountID   string    `json:"accountId"`
	Role        string    `json:"role"`
	Committee   string    `json:"committee"`
	Balance     int64     `json:"balance"`
	CanVote     bool      `json:"canVote"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Choices     []string  `json:"choices"`
	AsOf        time.Time `json:"asOf"`
}

// Me returns the caller's balance, permission and the ballot enumeration.
func (h *Handler) Me(c *fiber.Ctx) error {
	caller := middleware.IdentityFrom(c)
	if !caller.Authenticated() {
		return domainerr.New(domainerr.Unauthenticated, "authentication required")
	}

	account, err := h.store.Account(c.UserContext(), caller.AccountID)
	if err != nil {
		return domainerr.EnsureKind("load account", err)
	}

	resp := profileResponse{
		AccountID: account.ID,
		Role:      string(account.Role),
		Committee: account.Committee,
		Balance:   account.Balance,
		CanVote:   account.CanVote,
		Choices:   ledger.ChoiceStrings(ledger.Choices),
		AsOf:      time.Now().UTC(),
	}
	if h.directory != nil {
		if user, err := h.directory.Lookup(c.UserContext(), account.ID); err == nil {
			resp.Email = user.Email
			resp.DisplayName = user.DisplayName
		}
	}
	return c.Status(http.StatusOK).JSON(resp)
}
