package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/streamvault/archiver/internal/backup"
	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/handler"
	"github.com/streamvault/archiver/internal/index"
	"github.com/streamvault/archiver/internal/media"
	"github.com/streamvault/archiver/internal/task"
	"github.com/streamvault/archiver/internal/worker"
	ws "github.com/streamvault/archiver/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client and inspector
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize adapters
	store := client.NewStore(&cfg.Store)
	extractor := client.NewExtractor(cfg.Binaries.YtDlp)
	ryd := client.NewRYDClient("")
	sponsorBlock := client.NewSponsorBlockClient("", "")
	probe := media.NewProbe(cfg.Binaries.FFprobe)

	// Initialize the document build pipeline
	builder := index.NewBuilder(store, extractor, ryd, sponsorBlock, probe, cfg)
	comments := index.NewComments(store, extractor, cfg.Downloads)
	engine := backup.NewEngine(store, cfg, nil)

	// Initialize task coordination
	manager := task.NewManager(redisClient)
	command := task.NewCommand(manager, asynqClient, inspector, hub)

	// Sweep in-progress records left over from a hard restart
	if err := manager.FailPending(ctx); err != nil {
		log.Printf("Warning: failed to sweep pending tasks: %v", err)
	}

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(manager, command, validate)
	backupHandler := handler.NewBackupHandler(engine, command, validate)
	videoHandler := handler.NewVideoHandler(builder, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Get("/", taskHandler.List)
	tasks.Post("/", taskHandler.Start)
	tasks.Get("/:taskId", taskHandler.Get)
	tasks.Post("/:taskId/stop", taskHandler.Stop)
	tasks.Post("/:taskId/kill", taskHandler.Kill)

	// Backup routes
	backups := api.Group("/backups")
	backups.Get("/", backupHandler.List)
	backups.Post("/", backupHandler.Create)
	backups.Post("/:filename/restore", backupHandler.Restore)

	// Video routes
	videos := api.Group("/videos")
	videos.Post("/", videoHandler.Index)
	videos.Get("/:videoId", videoHandler.Get)
	videos.Delete("/:videoId", videoHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		taskID := c.Params("taskId")
		hub.HandleConnection(c, taskID)
	}))

	// Start Asynq worker server
	go startWorkerServer(redisOpt, manager, hub, store, cfg, comments)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(redisOpt asynq.RedisClientOpt, manager *task.Manager, hub *ws.Hub, store *client.Store, cfg *config.Config, comments *index.Comments) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				task.QueueArchive: 1,
			},
		},
	)

	w := worker.NewWorker(manager, hub, store, cfg, comments)

	if err := srv.Run(w.Mux()); err != nil {
		log.Printf("Asynq worker error: %v", err)
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
