package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dsa-wrapper/dsa_wrapper/internal/auth"
	"github.com/dsa-wrapper/dsa_wrapper/internal/chain"
	"github.com/dsa-wrapper/dsa_wrapper/internal/config"
	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
	"github.com/dsa-wrapper/dsa_wrapper/internal/ledger"
	"github.com/dsa-wrapper/dsa_wrapper/internal/middleware"
	"github.com/dsa-wrapper/dsa_wrapper/internal/notification"
	"github.com/dsa-wrapper/dsa_wrapper/internal/wrapper"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *dsa.MemoryRegistry
	// Ledger is opened from DB when nil.
	Ledger   ledger.Ledger
	Tokens   chain.Directory
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		return fmt.Errorf("account registry is required")
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Logger != nil {
		app.Use(middleware.Audit(d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	ledgerBackend := d.Ledger
	if ledgerBackend == nil {
		openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var err error
		if ledgerBackend, err = ledger.Open(openCtx, d.DB); err != nil {
			return err
		}
	}
	// Registry state is process-local while ledger entries may persist.
	last, err := ledgerBackend.LastAccount(context.Background())
	if err != nil {
		return fmt.Errorf("read last ledger account: %w", err)
	}
	d.Registry.ReserveThrough(last)

	var challenges auth.ChallengeStore
	if d.Cache != nil {
		challenges = auth.NewRedisChallenges(d.Cache)
	} else {
		challenges = auth.NewMemoryChallenges()
	}
	authSvc := auth.NewService(d.Cfg, challenges)
	authHandler := auth.NewHandler(authSvc)

	wrapperSvc, err := wrapper.NewService(
		wrapper.Config{Owner: d.Cfg.OwnerAddress, Address: d.Cfg.WrapperAddress},
		d.Registry, d.Tokens, ledgerBackend, d.Notifier, d.Logger,
	)
	if err != nil {
		return err
	}
	wrapperHandler := wrapper.NewHandler(wrapperSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.ChallengeRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	api.Get("/owner", wrapperHandler.Owner)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterAccountRoutes(protected, d.Registry, d.Cfg.WrapperAddress, d.Logger)
	RegisterWrapperRoutes(protected, wrapperHandler)

	return nil
}
