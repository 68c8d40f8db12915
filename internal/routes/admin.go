package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/admin"
)

// RegisterAdminRoutes wires the administrative endpoints.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler) {
	group := r.Group("/admin")
	group.Post("/set-balance", h.SetBalance)
	group.Post("/transfer", h.Transfer)
	group.Post("/toggle-vote", h.ToggleVote)
	group.Get("/accounts", h.Accounts)
	group.Get("/votes", h.Votes)
	group.Get("/actions", h.Actions)
}
