package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/lcvote/voteledger/internal/config"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/middleware"
	"github.com/lcvote/voteledger/internal/notification"
	"github.com/lcvote/voteledger/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// Backends are the externally owned clients the server is built on. Any of
// them may be nil in development.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	Kafka *kgo.Client
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, b Backends, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	var (
		store    ledger.Store
		userRepo identity.Repository
	)
	if b.DB != nil {
		store = ledger.NewPostgresStore(b.DB)
		userRepo = identity.NewPostgresRepository(b.DB)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger")
		store = ledger.NewInMemory()
		userRepo = identity.NewMemoryRepository()
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	if b.Kafka != nil {
		notifier = notification.Multi{notifier, notification.NewKafkaNotifier(b.Kafka, cfg.KafkaLedgerTopic)}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		DB:       b.DB,
		Cache:    b.Cache,
		Logger:   logger,
		Store:    store,
		Identity: identity.NewService(userRepo),
		Notifier: notifier,
		Registry: registry,
	})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// App exposes the underlying Fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
