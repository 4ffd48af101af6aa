// Package api is the embeddable facade over the crawler: initialize the
// stack, start and stop a crawl, read run statistics.
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/crawler"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/db"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// CrawlStats is the running state reported to callers.
type CrawlStats struct {
	IsRunning bool          `json:"isRunning"`
	StartTime time.Time     `json:"startTime"`
	Duration  string        `json:"duration"`
	Counters  crawler.Stats `json:"counters"`
	LastError string        `json:"lastError"`
}

// CrawlerAPI wires the config, store, queues, and crawl loop together.
type CrawlerAPI struct {
	ctx          context.Context
	config       *cfg.Config
	logger       log.Logger
	mysql        *db.Mysql
	store        *store.MysqlStore
	queues       *crawler.KafkaQueues
	crawler      *crawler.Crawler
	crawling     bool
	crawlStatsMu sync.RWMutex
	crawlStats   *CrawlStats
	cancelCrawl  context.CancelFunc
}

func NewCrawlerAPI() *CrawlerAPI {
	return &CrawlerAPI{
		crawlStats: &CrawlStats{},
	}
}

// Initialize loads the config and stands up the store, queues, and crawler.
func (a *CrawlerAPI) Initialize(ctx context.Context) error {
	a.ctx = ctx

	var err error

	loader, _ := cfg.NewViperLoader()
	a.config, err = loader.Load()
	if err != nil {
		a.logger, _ = log.NewCslLogger()
		a.logger.Error(a.ctx, "Failed to load configuration: %v", err)
		return err
	}

	a.logger, err = log.NewCslLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.mysql, err = db.NewMysql(a.config)
	if err != nil {
		a.logger.Error(a.ctx, "Failed to connect to database: %v", err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	a.store, err = store.NewMysqlStore(a.config, a.logger, a.mysql)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}
	if err := a.store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate document store: %w", err)
	}

	a.queues = crawler.NewKafkaQueues(a.config, a.logger)
	a.crawler, err = crawler.NewCrawler(a.logger, a.config, a.store, a.queues)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	return nil
}

// StartCrawling seeds the configured url and runs the crawl loop in the
// background until StopCrawling or context cancellation.
func (a *CrawlerAPI) StartCrawling() (string, error) {
	a.crawlStatsMu.RLock()
	isCrawling := a.crawling
	a.crawlStatsMu.RUnlock()

	if isCrawling {
		return "Crawling is already in progress", nil
	}
	if a.crawler == nil {
		return "", errors.New("crawler is not initialized")
	}

	runCtx, cancel := context.WithCancel(a.ctx)

	a.crawlStatsMu.Lock()
	a.crawling = true
	a.cancelCrawl = cancel
	a.crawlStats = &CrawlStats{
		IsRunning: true,
		StartTime: time.Now(),
	}
	a.crawlStatsMu.Unlock()

	go func() {
		if err := a.crawler.Seed(runCtx, a.config.Crawler.SeedType, a.config.Crawler.SeedUrl); err != nil {
			a.updateCrawlStats(func(stats *CrawlStats) {
				stats.LastError = err.Error()
			})
		}
		err := a.crawler.Run(runCtx)

		a.updateCrawlStats(func(stats *CrawlStats) {
			stats.IsRunning = false
			stats.Counters = a.crawler.Stats()
			if err != nil && !errors.Is(err, context.Canceled) {
				stats.LastError = err.Error()
			}
		})

		a.crawlStatsMu.Lock()
		a.crawling = false
		a.crawlStatsMu.Unlock()
	}()

	return "Started crawling from " + a.config.Crawler.SeedUrl, nil
}

// StopCrawling cancels the running crawl loop.
func (a *CrawlerAPI) StopCrawling() (string, error) {
	a.crawlStatsMu.RLock()
	isCrawling := a.crawling
	cancel := a.cancelCrawl
	a.crawlStatsMu.RUnlock()

	if !isCrawling {
		return "No crawling is in progress", nil
	}
	if cancel != nil {
		cancel()
	}

	return "Stopping crawling process (may take some time to complete)", nil
}

// GetCrawlStats returns a snapshot of the crawl counters.
func (a *CrawlerAPI) GetCrawlStats() (*CrawlStats, error) {
	a.crawlStatsMu.RLock()
	defer a.crawlStatsMu.RUnlock()

	if a.crawlStats == nil {
		return &CrawlStats{}, nil
	}

	stats := *a.crawlStats
	if stats.IsRunning {
		stats.Duration = time.Since(stats.StartTime).String()
		stats.Counters = a.crawler.Stats()
	}

	return &stats, nil
}

func (a *CrawlerAPI) updateCrawlStats(updateFn func(*CrawlStats)) {
	a.crawlStatsMu.Lock()
	defer a.crawlStatsMu.Unlock()

	if a.crawlStats == nil {
		a.crawlStats = &CrawlStats{}
	}

	updateFn(a.crawlStats)
}

// GetDatabaseStatus checks the backing database connection.
func (a *CrawlerAPI) GetDatabaseStatus() (string, error) {
	if a.mysql == nil {
		return "Database not initialized", nil
	}

	if err := a.mysql.Ping(); err != nil {
		return "Database not connected: " + err.Error(), err
	}

	return "Database connected", nil
}
