package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/planship/contentops/internal/config"
	"github.com/planship/contentops/internal/events"
	"github.com/planship/contentops/internal/lifecycle"
	"github.com/planship/contentops/internal/platform/gemini"
	"github.com/planship/contentops/internal/platform/logger"
	"github.com/planship/contentops/internal/platform/postgres"
	"github.com/planship/contentops/internal/platform/publisher"
	"github.com/planship/contentops/internal/platform/redispubsub"
	"github.com/planship/contentops/internal/worker"
)

// application holds the shared dependencies so startup and shutdown stay in
// one place.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient *redis.Client
	asynqClient *asynq.Client
	asynqServer *asynq.Server

	itemStore   *postgres.ContentItemStore
	jobLedger   *postgres.JobLedger
	coordinator *lifecycle.Coordinator
	outcomes    *events.Recorder
}

// outcomeLogger logs every reconciled job outcome for operators.
type outcomeLogger struct {
	logger *slog.Logger
}

func (h *outcomeLogger) HandleOutcome(ctx context.Context, event *events.JobOutcomeEvent) error {
	attrs := []any{
		"item_id", event.ItemID,
		"kind", event.Kind,
		"status", event.Status,
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err)
		h.logger.WarnContext(ctx, "job outcome", attrs...)
		return nil
	}
	h.logger.InfoContext(ctx, "job outcome", attrs...)
	return nil
}

// initializeApp loads configuration and wires up every component.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server.LogLevel)
	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"image_generation_enabled", cfg.Lifecycle.ImageGenerationEnabled)

	app := &application{
		config: cfg,
		logger: log,
	}

	app.db, err = openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrations(app.db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	app.asynqClient = asynq.NewClient(redisOpt)

	app.itemStore = postgres.NewContentItemStore(app.db)
	app.jobLedger = postgres.NewJobLedger(app.db, worker.NewEnqueuer(app.asynqClient))

	notifier := redispubsub.NewChannel(app.redisClient, log)

	textGen, err := gemini.NewGenerator(context.Background(), log, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	platformClient, err := publisher.NewClient(log, cfg.Publisher)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher client: %w", err)
	}

	emitter := events.NewInMemoryEmitter(log)
	app.outcomes = events.NewRecorder()
	emitter.RegisterHandler(app.outcomes)
	emitter.RegisterHandler(&outcomeLogger{logger: log.With("component", "outcome_logger")})

	app.coordinator = lifecycle.NewCoordinator(
		app.itemStore,
		app.jobLedger,
		notifier,
		emitter,
		lifecycle.Config{
			WatchTimeout:           time.Duration(cfg.Lifecycle.WatchTimeoutSeconds) * time.Second,
			ImagePollInterval:      time.Duration(cfg.Lifecycle.ImagePollIntervalSeconds) * time.Second,
			ImagePollTimeout:       time.Duration(cfg.Lifecycle.ImagePollTimeoutSeconds) * time.Second,
			ImageGenerationEnabled: cfg.Lifecycle.ImageGenerationEnabled,
		},
		log,
	)

	app.asynqServer = setupWorker(app, redisOpt, textGen, platformClient, notifier, log)

	log.Info("Application initialized successfully")
	return app, nil
}

// setupWorker builds the background job processor and its asynq server.
func setupWorker(
	app *application,
	redisOpt asynq.RedisClientOpt,
	generator *gemini.Generator,
	platformClient *publisher.Client,
	notifier *redispubsub.Channel,
	log *slog.Logger,
) *asynq.Server {
	concurrency := app.config.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"jobs": 1},
	})

	processor := worker.NewProcessor(
		app.itemStore,
		app.jobLedger,
		generator,
		generator,
		platformClient,
		notifier,
		log,
	)

	mux := asynq.NewServeMux()
	processor.Register(mux)

	go func() {
		if err := server.Run(mux); err != nil {
			log.Error("Worker server stopped", "error", err)
		}
	}()

	return server
}

// openDatabase connects to PostgreSQL and verifies the connection.
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.coordinator != nil {
		app.coordinator.Close()
	}

	if app.asynqServer != nil {
		app.asynqServer.Shutdown()
	}

	if app.asynqClient != nil {
		if err := app.asynqClient.Close(); err != nil {
			app.logger.Error("Error closing queue client", "error", err)
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
