package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/middleware"
)

// Handler exposes the admin endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an admin HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type setBalanceRequest struct {
	UserID string `json:"userId"`
	Amount *int64 `json:"amount"`
}

type transferRequest struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Amount     *int64 `json:"amount"`
}

type toggleVoteRequest struct {
	UserID  string `json:"userId"`
	CanVote *bool  `json:"canVote"`
}

func invalidPayload() error {
	return domainerr.New(domainerr.InvalidPayload, "invalid payload")
}

// SetBalance overwrites a user's balance.
func (h *Handler) SetBalance(c *fiber.Ctx) error {
	var req setBalanceRequest
	if err := c.BodyParser(&req); err != nil || req.Amount == nil {
		return invalidPayload()
	}
	res, err := h.service.SetBalance(c.UserContext(), middleware.IdentityFrom(c), SetBalanceInput{
		TargetAccountID: req.UserID,
		NewBalance:      *req.Amount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": res.Balance})
}

// Transfer moves votes between two users.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil || req.Amount == nil {
		return invalidPayload()
	}
	res, err := h.service.Transfer(c.UserContext(), middleware.IdentityFrom(c), TransferInput{
		FromAccountID: req.FromUserID,
		ToAccountID:   req.ToUserID,
		Amount:        *req.Amount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"fromBalance": res.FromBalance, "toBalance": res.ToBalance})
}

// ToggleVote sets a user's voting permission.
func (h *Handler) ToggleVote(c *fiber.Ctx) error {
	var req toggleVoteRequest
	if err := c.BodyParser(&req); err != nil || req.CanVote == nil {
		return invalidPayload()
	}
	res, err := h.service.SetVotingPermission(c.UserContext(), middleware.IdentityFrom(c), VotingPermissionInput{
		TargetAccountID: req.UserID,
		CanVote:         *req.CanVote,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"canVote": res.CanVote})
}

type accountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        string    `json:"role"`
	Committee   string    `json:"committee"`
	Balance     int64     `json:"balance"`
	CanVote     bool      `json:"canVote"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Accounts lists every account with its directory entry.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	views, err := h.service.ListAccounts(c.UserContext(), middleware.IdentityFrom(c))
	if err != nil {
		return err
	}
	out := make([]accountResponse, 0, len(views))
	for _, v := range views {
		out = append(out, accountResponse{
			ID:          v.ID,
			Email:       v.Email,
			DisplayName: v.DisplayName,
			Role:        string(v.Role),
			Committee:   v.Committee,
			Balance:     v.Balance,
			CanVote:     v.CanVote,
			CreatedAt:   v.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}

type voteResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Committee string    `json:"committee"`
	Choices   []string  `json:"choices"`
	CreatedAt time.Time `json:"createdAt"`
}

// Votes lists votes newest first, filtered by userId and committee.
func (h *Handler) Votes(c *fiber.Ctx) error {
	filter := ledger.VoteFilter{
		AccountID: c.Query("userId"),
		Committee: c.Query("committee"),
		Limit:     c.QueryInt("limit", 0),
	}
	views, err := h.service.ListVotes(c.UserContext(), middleware.IdentityFrom(c), filter)
	if err != nil {
		return err
	}
	out := make([]voteResponse, 0, len(views))
	for _, v := range views {
		out = append(out, voteResponse{
			ID:        v.ID,
			UserID:    v.AccountID,
			Email:     v.Email,
			Committee: v.Committee,
			Choices:   ledger.ChoiceStrings(v.Choices),
			CreatedAt: v.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"votes": out})
}

type actionResponse struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	ActionType string          `json:"actionType"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Actions lists the admin audit trail newest first.
func (h *Handler) Actions(c *fiber.Ctx) error {
	actions, err := h.service.ListAdminActions(c.UserContext(), middleware.IdentityFrom(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	out := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionResponse{
			ID:         a.ID,
			ActorID:    a.ActorID,
			ActionType: string(a.ActionType),
			Details:    a.Details,
			CreatedAt:  a.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"actions": out})
}
