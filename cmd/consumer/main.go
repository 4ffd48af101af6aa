package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/crawler"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/db"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// The consumer runs crawl workers only: it drains the priority topics,
// processes each request, and upserts the result. Seeding and the status
// server live in cmd/run.
func main() {
	// Load configuration
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, _ := log.NewCslLogger()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database and store
	mysql, _ := db.NewMysql(config)
	docStore, err := store.NewMysqlStore(config, logger, mysql)
	if err != nil {
		logger.Error(ctx, "Failed to create document store: %v", err)
		os.Exit(1)
	}
	if err := docStore.Migrate(); err != nil {
		logger.Error(ctx, "Failed to migrate document store: %v", err)
		os.Exit(1)
	}

	queues := crawler.NewKafkaQueues(config, logger)
	defer queues.Close()

	graphCrawler, err := crawler.NewCrawler(logger, config, docStore, queues)
	if err != nil {
		logger.Error(ctx, "Failed to create crawler: %v", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := graphCrawler.Run(ctx); err != nil {
			logger.Error(ctx, "Crawler stopped: %v", err)
		}
	}()
	logger.Info(ctx, "Crawl consumer started successfully")

	// Wait for termination signal
	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}
