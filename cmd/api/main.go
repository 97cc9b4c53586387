package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/kb-crawler/internal/adapter/chromedp_browser"
	"github.com/user/kb-crawler/internal/adapter/postgres"
	"github.com/user/kb-crawler/internal/adapter/proxy"
	redis_adapter "github.com/user/kb-crawler/internal/adapter/redis"
	"github.com/user/kb-crawler/internal/adapter/robots"
	"github.com/user/kb-crawler/internal/adapter/rod_browser"
	"github.com/user/kb-crawler/internal/delivery/http/handler"
	"github.com/user/kb-crawler/internal/delivery/http/router"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/internal/usecase"
	"github.com/user/kb-crawler/pkg/config"
	"github.com/user/kb-crawler/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- Database Connections ---
	ctx := context.Background()

	// PostgreSQL
	dbpool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		log.Fatal("Unable to prepare database schema", zap.Error(err))
	}
	log.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Unable to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connection established")

	// --- Browser ---
	proxyManager := proxy.NewManager(cfg.BrowserProxies, cfg.UserAgent)
	var launcher repository.BrowserLauncher
	switch cfg.BrowserDriver {
	case config.DriverRod:
		launcher = rod_browser.NewLauncher(cfg.NavigationTimeout, proxyManager, log)
	default:
		launcher = chromedp_browser.NewLauncher(cfg.NavigationTimeout, proxyManager, log)
	}

	// --- Repositories ---
	crawlRunRepo := postgres.NewCrawlRunRepo(dbpool)
	crawlFailureRepo := postgres.NewCrawlFailureRepo(dbpool)
	knowledgePageRepo := postgres.NewKnowledgePageRepo(dbpool)
	ingestQueueRepo := redis_adapter.NewIngestQueueRepo(rdb)

	// --- Use Cases ---
	crawlRuns := usecase.NewCrawlRuns(crawlRunRepo, crawlFailureRepo, log)
	crawlerOpts := []usecase.CrawlerOption{usecase.WithCrawlRuns(crawlRuns)}
	if cfg.ResultCacheTTL > 0 {
		crawlerOpts = append(crawlerOpts, usecase.WithResultCache(redis_adapter.NewResultCacheRepo(rdb), cfg.ResultCacheTTL))
	}
	if cfg.RespectRobots {
		policy := robots.NewPolicy(&http.Client{Timeout: 10 * time.Second}, redis_adapter.NewRobotsCacheRepo(rdb), cfg.RobotsCacheTTL, log)
		crawlerOpts = append(crawlerOpts, usecase.WithRobotsPolicy(policy))
	}
	crawler := usecase.NewCrawlerUseCase(launcher, usecase.CrawlerConfig{
		MaxDepth:       cfg.MaxDepth,
		MaxPages:       cfg.MaxPages,
		ExtractWorkers: cfg.ExtractWorkers,
		FailurePolicy:  cfg.FailurePolicy,
		SameHostOnly:   cfg.SameHostOnly,
		Canonicalize:   cfg.CanonicalizeURLs,
		CrawlDeadline:  cfg.CrawlDeadline,
	}, log, crawlerOpts...)
	ingestion := usecase.NewIngestionUseCase(knowledgePageRepo, ingestQueueRepo, log)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(crawler, crawlRuns, ingestion, cfg.DefaultDepth, log).
		WithHealthChecks(map[string]handler.HealthCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	httpRouter := router.New(apiHandler, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.CrawlDeadline + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		}
	}()
	log.Info("Server started",
		zap.String("port", cfg.ServerPort),
		zap.String("browser_driver", cfg.BrowserDriver),
		zap.Duration("crawl_deadline", cfg.CrawlDeadline),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// In-flight crawls close their browsers when their requests finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CrawlDeadline+10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
