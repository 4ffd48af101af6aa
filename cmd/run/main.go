package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/crawler"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/internal/ui"
	"github.com/thep200/github-graph-crawler/pkg/db"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// loader, _ := cfg.NewMockLoader()
	loader, _ := cfg.NewViperLoader()
	logger, _ := log.NewCslLogger()

	config, err := loader.Load()
	if err != nil {
		logger.Error(ctx, "Failed to load config: %v", err)
		os.Exit(1)
	}

	mysql, _ := db.NewMysql(config)
	docStore, err := store.NewMysqlStore(config, logger, mysql)
	if err != nil {
		logger.Error(ctx, "Failed to create document store: %v", err)
		os.Exit(1)
	}

	// Migrate database
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

	// Status server
	if config.Crawler.UiPort > 0 {
		statusServer, _ := ui.NewServer(logger, config, docStore, graphCrawler, config.Crawler.UiPort)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error(ctx, "Status server stopped: %v", err)
			}
		}()
		defer statusServer.Stop(ctx)
	}

	// Seed the crawl and run the loop
	logger.Info(ctx, "Starting GitHub graph crawler from %s", config.Crawler.SeedUrl)
	if err := graphCrawler.Seed(ctx, config.Crawler.SeedType, config.Crawler.SeedUrl); err != nil {
		logger.Error(ctx, "Failed to seed crawl: %v", err)
		os.Exit(1)
	}

	go func() {
		if err := graphCrawler.Run(ctx); err != nil {
			logger.Error(ctx, "Crawler stopped: %v", err)
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()

	stats := graphCrawler.Stats()
	logger.Info(ctx, "Processed: %d, skipped: %d, requeued: %d, failed: %d",
		stats.Processed, stats.Skipped, stats.Requeued, stats.Failed)
}
