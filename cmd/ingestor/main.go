package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"news_ingestor/internal/api"
	"news_ingestor/internal/config"
	"news_ingestor/internal/enrich"
	"news_ingestor/internal/publisher"
	"news_ingestor/internal/scheduler"
	"news_ingestor/internal/service"
	"news_ingestor/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	enrichOnce := flag.Bool("enrich", false, "scrape pending article content once and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	} else {
		logger.Info("rabbitmq not configured, ingestion events disabled")
	}

	articleStore := postgres.NewArticleStore(db)
	summaryStore := postgres.NewSummaryStore(db)
	txManager := postgres.NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	enricher := enrich.New(articleStore, enrichTargets(cfg), enrich.Config{
		Limit:   cfg.Enrich.Limit,
		Delay:   cfg.Enrich.Delay,
		Timeout: cfg.Ingest.FetchTimeout,
	}, logger)

	if *enrichOnce {
		if err := enricher.Run(ctx); err != nil {
			logger.Error("enrichment interrupted", "error", err)
			os.Exit(1)
		}
		return
	}

	p, err := buildPipelines(cfg, pipelineDeps{
		articles:  articleStore,
		summaries: summaryStore,
		txManager: txManager,
		publisher: pub,
	}, logger)
	if err != nil {
		logger.Error("failed to build source pipelines", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	runner := service.NewRunner(p.runs, cfg.Schedule.MaxParallelSources, logger)

	if *once {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error("ingestion pass interrupted", "error", err)
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewServer(summaryStore, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if cfg.Enrich.Enabled {
		job, err := scheduler.NewCronJob("enrich", cfg.Enrich.Schedule, enricher, cfg.Schedule.RunTimeout, logger)
		if err != nil {
			logger.Error("failed to schedule enrichment", "error", err)
			os.Exit(1)
		}
		go func() { _ = job.Start(ctx) }()
	}

	sched := scheduler.NewScheduler(runner, cfg.Schedule.Interval, cfg.Schedule.RunTimeout, logger)

	logger.Info("starting news ingestor",
		"sources", len(p.runs),
		"interval", cfg.Schedule.Interval,
		"max_parallel_sources", cfg.Schedule.MaxParallelSources,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
