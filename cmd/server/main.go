package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzan03/SecureDrop/internal/config"
	"github.com/arzan03/SecureDrop/internal/db"
	"github.com/arzan03/SecureDrop/internal/handlers"
	"github.com/arzan03/SecureDrop/internal/logger"
	"github.com/arzan03/SecureDrop/internal/middleware"
	"github.com/arzan03/SecureDrop/internal/services"
	"github.com/arzan03/SecureDrop/internal/storage"
	"github.com/arzan03/SecureDrop/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
)

type backends struct {
	sessions services.SessionStore
	users    services.UserStore
	objects  services.ObjectStore
	checks   map[string]handlers.HealthCheck
	close    func()
}

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogFile, cfg.LogLevel)

	if envErr != nil {
		slog.Info("no .env file found, using environment variables")
	}

	if cfg.JWTSecret == "" {
		if cfg.StorageBackend != config.BackendMemory {
			slog.Error("JWT_SECRET must be set")
			os.Exit(1)
		}
		cfg.JWTSecret = uuid.NewString()
		slog.Warn("JWT_SECRET not set, using a random secret for this process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer b.close()

	transfers := services.NewTransferService(b.sessions, b.objects, services.TransferOptions{
		MaxFileSize:     cfg.MaxFileSize,
		TTL:             cfg.Expiration,
		Policy:          services.DefaultTransferOptions().Policy,
		BaseURL:         cfg.BaseURL,
		MaxCodeAttempts: services.DefaultTransferOptions().MaxCodeAttempts,
	})
	auth := services.NewAuthService(b.users, cfg.JWTSecret, cfg.TokenTTL)

	if cfg.AdminEmail != "" {
		if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("failed to create admin account", "error", err)
			os.Exit(1)
		}
	}

	cleanup := services.NewCleanupService(transfers, cfg.CleanupInterval, cfg.CleanupWorkers)
	cleanup.Start(ctx)

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    int(cfg.MaxFileSize) + 1<<20,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())
	app.Use(middleware.HTTPMetrics())

	h := handlers.New(transfers, auth, cfg.AppName, b.checks)
	handlers.SetupRoutes(app, h, cfg.RateLimitMax)

	go func() {
		slog.Info("server starting",
			"app", cfg.AppName,
			"port", cfg.Port,
			"backend", cfg.StorageBackend,
			"max_file_size", utils.FormatFileSize(cfg.MaxFileSize),
			"expiration", cfg.Expiration,
		)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	cleanup.Wait()
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		objects := storage.NewMemoryStore()
		slog.Warn("using in-memory storage, transfers will not survive a restart")
		return &backends{
			sessions: db.NewMemorySessionStore(),
			users:    db.NewMemoryUserStore(),
			objects:  objects,
			checks:   map[string]handlers.HealthCheck{"objects": objects.Ping},
			close:    func() {},
		}, nil

	case config.BackendRemote:
		database, err := db.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx, database); err != nil {
			disconnect(database.Client())
			return nil, err
		}

		objects, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			disconnect(database.Client())
			return nil, err
		}

		return &backends{
			sessions: db.NewSessionRepository(database),
			users:    db.NewUserRepository(database),
			objects:  objects,
			checks: map[string]handlers.HealthCheck{
				"mongodb": func(ctx context.Context) error { return db.Ping(ctx, database) },
				"minio":   objects.Ping,
			},
			close: func() { disconnect(database.Client()) },
		}, nil

	default:
		return nil, errors.New("unknown STORAGE_BACKEND " + cfg.StorageBackend)
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		slog.Error("failed to disconnect from mongodb", "error", err)
	}
}
