package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/identity"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	AccountID   string `json:"accountId"`
}

// Login validates credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return domainerr.New(domainerr.InvalidPayload, "invalid payload")
	}
	session, err := h.svc.Login(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   int64(time.Until(session.ExpiresAt).Seconds()),
		AccountID:   session.AccountID,
	})
}
