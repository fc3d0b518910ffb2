package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/app"
	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/handlers"
	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("config loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("thresholds", cfg.Screening.Thresholds))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	jobRepo := repositories.NewJobRepository(db)
	batchRepo := repositories.NewBatchRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline, err := app.NewPipeline(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("failed to initialize screening pipeline", zap.Error(err))
	}

	orchestrator := pipeline.NewOrchestrator(cfg, batchRepo, storageService, log, m)

	worker := services.NewWorker(
		batchRepo,
		orchestrator,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		log,
	)
	worker.Start(ctx)

	batchService := services.NewBatchService(jobRepo, batchRepo, storageService, orchestrator, worker, log, m)

	validate := validator.New()
	jobHandler := handlers.NewJobHandler(jobRepo, validate)
	batchHandler := handlers.NewBatchHandler(batchService, validate, cfg.Storage.MaxFileSize)
	resultHandler := handlers.NewResultHandler(batchRepo, pipeline.Indexer)

	server := fiber.New(fiber.Config{
		AppName:      "Resume Screener API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		// A batch carries many files, each up to MaxFileSize.
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 20,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := server.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/jobs", jobHandler.HandleCreate)
	api.Get("/jobs/:id", jobHandler.HandleGet)
	api.Post("/batches", batchHandler.HandleSubmit)
	api.Get("/batches/:id", resultHandler.HandleProgress)
	api.Get("/batches/:id/report", resultHandler.HandleReport)
	api.Get("/batches/:id/report.xlsx", resultHandler.HandleReportXLSX)
	api.Get("/batches/:id/search", resultHandler.HandleSearch)

	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Screener API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/jobs",
				"GET /api/v1/jobs/:id",
				"POST /api/v1/batches",
				"GET /api/v1/batches/:id",
				"GET /api/v1/batches/:id/report",
				"GET /api/v1/batches/:id/report.xlsx",
				"GET /api/v1/batches/:id/search",
				"GET /metrics",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		if err := server.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

	if err := server.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	worker.Stop()
	log.Info("server stopped")
}
