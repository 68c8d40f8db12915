package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/lcvote/voteledger/internal/admin"
	"github.com/lcvote/voteledger/internal/auth"
	"github.com/lcvote/voteledger/internal/config"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/metrics"
	"github.com/lcvote/voteledger/internal/middleware"
	"github.com/lcvote/voteledger/internal/notification"
	"github.com/lcvote/voteledger/internal/voting"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are only used for health checks and Redis-backed middleware; Store and
// Identity are the ledger and directory to serve.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Store    ledger.Store
	Identity *identity.Service
	Notifier notification.Notifier
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil || d.Identity == nil {
		return fmt.Errorf("ledger store and identity service are required")
	}
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	var m *metrics.Metrics
	if d.Registry != nil {
		m = metrics.New(d.Registry)
	}
	tokens := auth.NewTokens(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Identify(tokens, d.Store, d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	votingSvc := voting.NewService(d.Store, d.Notifier, m, d.Logger)
	adminSvc := admin.NewService(d.Store, d.Identity, d.Notifier, m, d.Logger)
	authSvc := auth.NewService(d.Identity, tokens, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, auth.NewHandler(authSvc), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMin))
	RegisterVotingRoutes(api, voting.NewHandler(votingSvc, d.Store, d.Identity))
	RegisterAdminRoutes(api, admin.NewHandler(adminSvc))

	return nil
}
