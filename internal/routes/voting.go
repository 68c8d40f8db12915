package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lcvote/voteledger/internal/voting"
)

// RegisterVotingRoutes wires the self-service endpoints. Authorization happens
// in the engine, so these routes carry no auth middleware of their own.
func RegisterVotingRoutes(r fiber.Router, h *voting.Handler) {
	r.Get("/me", h.Me)
	r.Post("/votes", h.Cast)
}
