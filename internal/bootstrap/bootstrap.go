// Package bootstrap assembles the dependency graph for both binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/resumepilot/resume-optimizer/internal/config"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
	"github.com/resumepilot/resume-optimizer/internal/core/usecase"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/engine/openrouter"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/fingerprint"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/parser"
	memoryqueue "github.com/resumepilot/resume-optimizer/internal/infrastructure/queue/memory"
	natsqueue "github.com/resumepilot/resume-optimizer/internal/infrastructure/queue/nats"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/repository/postgres"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/resilience"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/storage/localfs"
	s3storage "github.com/resumepilot/resume-optimizer/internal/infrastructure/storage/s3"
)

// App holds the shared wiring used by the api and worker binaries.
type App struct {
	Config config.Config

	DB      *sql.DB
	Resumes *postgres.ResumeRepository
	Users   *postgres.UserRepository
	Queue   ports.JobQueue
	Storage ports.ObjectStorage
	Engine  ports.OptimizationEngine

	Uploads   *usecase.UploadUseCase
	Processor *usecase.ProcessUseCase
	Reader    *usecase.ReadResumeUseCase
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	configureLogger(cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	resumes := postgres.NewResumeRepository(db)
	users := postgres.NewUserRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := buildQueue(cfg, executor)
	if err != nil {
		db.Close()
		return nil, err
	}

	storage, err := buildStorage(ctx, cfg)
	if err != nil {
		queue.Close()
		db.Close()
		return nil, err
	}

	engine := openrouter.NewWithOptions(
		cfg.EngineBaseURL,
		cfg.EngineAPIKey,
		cfg.EngineModel,
		openrouter.Options{
			Timeout:            cfg.EngineTimeout(),
			ResilienceExecutor: executor,
		},
	)

	hasher := fingerprint.New()
	fileParser := parser.New()

	uploads := usecase.NewUploadUseCase(
		resumes,
		users,
		storage,
		queue,
		fileParser,
		hasher,
		engine,
		cfg.EngineTimeout(),
		cfg.PresignTTL(),
	)
	processor := usecase.NewProcessUseCase(resumes, users, users, storage, fileParser, hasher, engine)
	reader := usecase.NewReadResumeUseCase(resumes)

	return &App{
		Config:    cfg,
		DB:        db,
		Resumes:   resumes,
		Users:     users,
		Queue:     queue,
		Storage:   storage,
		Engine:    engine,
		Uploads:   uploads,
		Processor: processor,
		Reader:    reader,
	}, nil
}

func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("close db", "error", err)
		}
	}
}

func buildQueue(cfg config.Config, executor *resilience.Executor) (ports.JobQueue, error) {
	switch cfg.QueueDriver {
	case "nats":
		queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("build nats queue: %w", err)
		}
		return queue, nil
	case "memory":
		return memoryqueue.New(cfg.QueueBuffer), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

func buildStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageDriver {
	case "s3":
		storage, err := s3storage.New(ctx, s3storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("build s3 storage: %w", err)
		}
		return storage, nil
	case "localfs":
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("build local storage: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func configureLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
