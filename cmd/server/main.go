package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/relionflow/api/internal/client"
	"github.com/relionflow/api/internal/config"
	"github.com/relionflow/api/internal/handler"
	"github.com/relionflow/api/internal/jobtype"
	"github.com/relionflow/api/internal/logging"
	"github.com/relionflow/api/internal/middleware"
	"github.com/relionflow/api/internal/service"
	"github.com/relionflow/api/internal/store"
	"github.com/relionflow/api/internal/submit"
	"github.com/relionflow/api/internal/watcher"
	ws "github.com/relionflow/api/internal/websocket"
	"github.com/relionflow/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Server.LogLevel, cfg.Server.Env, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it submissions run inline and rate
	// limiting is off.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis not available", "addr", cfg.Redis.Addr, "error", err)
		}
		defer redisClient.Close()
	}

	st, closeStore, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		log.Error("failed to open job store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	registry, err := jobtype.New()
	if err != nil {
		log.Error("failed to build job type registry", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	var archiver client.LogArchiver
	if cfg.Archive.Enabled {
		s3, err := client.NewS3Archiver(&cfg.Archive)
		if err != nil {
			log.Error("failed to create log archiver", "error", err)
			os.Exit(1)
		}
		archiver = s3
	}
	notifier := service.NewNotifier(hub, archiver, log)

	engine, err := submit.New(st, cfg.Submit,
		submit.WithLogger(log),
		submit.WithNotifier(notifier.Notify),
	)
	if err != nil {
		log.Error("invalid submission settings", "error", err)
		os.Exit(1)
	}

	var dispatcher service.Dispatcher = service.NewInlineDispatcher(engine, log)
	if redisClient != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		dispatcher = service.NewAsynqDispatcher(asynqClient)

		srv := startWorkerServer(cfg, redisOpt, engine, log)
		defer srv.Shutdown()
	}

	if cfg.Watcher.Enabled {
		w := watcher.New(st, engine, cfg.Watcher.Interval, log)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("marker watcher stopped", "error", err)
			}
		}()
	}

	// Initialize services and handlers
	projects := service.NewProjectResolver(cfg.Projects.ActiveRoot, cfg.Projects.ArchiveRoot)
	jobService := service.NewJobService(st, registry, projects, cfg.BuilderOptions(), dispatcher, engine, log)
	jobHandler := handler.NewJobHandler(jobService, validator.New())
	streamHandler := handler.NewStreamHandler(jobService, hub)
	rateLimiter := middleware.NewRateLimiter(redisClient, log)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-User-Id,X-User-Email,X-User-Name",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":   cfg.Store.Backend,
				"redis":   redisClient != nil,
				"archive": archiver != nil,
				"watcher": cfg.Watcher.Enabled,
			},
		})
	})

	// API routes
	api := app.Group("/api", middleware.Identity())
	api.Get("/jobtypes", jobHandler.Types)
	api.Get("/projects/:projectId/tree", jobHandler.Tree)

	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), jobHandler.Submit)
	jobs.Post("/validate", jobHandler.Validate)
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Post("/:jobId/cancel", jobHandler.Cancel)

	// WebSocket routes
	app.Use("/ws", streamHandler.Upgrade)
	app.Get("/ws/jobs/:jobId", streamHandler.Stream())

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info("server starting", "addr", addr, "store", cfg.Store.Backend)
	if err := app.Listen(addr); err != nil {
		log.Error("server error", "error", err)
	}
	notifier.Wait()
}

// openStore selects the job store backend.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis store requires redis.addr")
		}
		return store.NewRedis(redisClient, cfg.Store.TTL), func() {}, nil
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func startWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, engine *submit.Engine, log *slog.Logger) *asynq.Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			service.QueueSubmit: 1,
		},
		LogLevel: asynqLevel(cfg.Server.LogLevel),
	})

	submitWorker := worker.NewSubmitWorker(engine, log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeSubmit, submitWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Error("asynq worker error", "error", err)
	}
	return srv
}

func asynqLevel(level string) asynq.LogLevel {
	switch logging.ParseLevel(level) {
	case slog.LevelDebug:
		return asynq.DebugLevel
	case slog.LevelWarn:
		return asynq.WarnLevel
	case slog.LevelError:
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
