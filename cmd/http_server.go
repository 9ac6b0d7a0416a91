package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
	"github.com/frahmantamala/subscription-billing/internal/payment"
	paymentpg "github.com/frahmantamala/subscription-billing/internal/payment/postgres"
	"github.com/frahmantamala/subscription-billing/internal/plan"
	"github.com/frahmantamala/subscription-billing/internal/subscription"
	subscriptionpg "github.com/frahmantamala/subscription-billing/internal/subscription/postgres"
	"github.com/frahmantamala/subscription-billing/internal/transport/rest"
	"github.com/frahmantamala/subscription-billing/internal/webhook"
	"github.com/frahmantamala/subscription-billing/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	EventBus       *events.EventBus
	PaymentHandler *payment.Handler
	WebhookHandler *webhook.Handler
	PlanHandler    *plan.Handler
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "gateway_mode", deps.Config.Gateway.Mode)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		// Let in-flight event handlers finish before the pool closes.
		deps.EventBus.Drain()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.Config.Server.AllowedOrigins,
		deps.PaymentHandler,
		deps.WebhookHandler,
		deps.PlanHandler,
		deps.Logger,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the pgx pool instead of opening a second one.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	creds := gateway.ResolveCredentials(config.Gateway)
	transport := gateway.NewTransport(creds, config.Gateway.CallTimeout(), appLogger)
	secureFlow := gateway.NewThreeDSFlow(creds, transport, config.Gateway.Return, appLogger)
	cardManager := gateway.NewSavedCardManager(creds, transport, appLogger)

	eventBus := events.NewEventBus(appLogger)
	registerEventHandlers(eventBus, appLogger)

	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	subscriptionRepo := subscriptionpg.NewSubscriptionRepository(gormDB)

	paymentService := payment.NewService(paymentRepo, secureFlow, cardManager, appLogger)
	reconciler := subscription.NewReconciler(paymentRepo, subscriptionRepo, eventBus, appLogger)

	verifier := webhook.NewVerifier(creds)

	return &Dependencies{
		Config:         config,
		Logger:         appLogger,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		EventBus:       eventBus,
		PaymentHandler: payment.NewHandler(paymentService, appLogger),
		WebhookHandler: webhook.NewHandler(verifier, reconciler, appLogger),
		PlanHandler:    plan.NewHandler(appLogger),
	}, nil
}

// registerEventHandlers wires the audit subscribers. Downstream consumers
// (mail, entitlement cache) would attach here.
func registerEventHandlers(bus *events.EventBus, logger *slog.Logger) {
	bus.Subscribe(events.EventTypeSubscriptionActivated, func(ctx context.Context, e events.Event) error {
		logger.Info("subscription activated",
			"event_id", e.EventID(),
			"payload", e.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, e events.Event) error {
		logger.Warn("payment failed",
			"event_id", e.EventID(),
			"payload", e.Payload())
		return nil
	})
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
