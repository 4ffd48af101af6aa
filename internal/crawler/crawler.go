// The crawl loop: pull a request from the queues, fetch its body, hand it to
// the processor, upsert the canonical document. Worker slots bound the
// number of in-flight requests the way the v4 pipeline bounded its phases.

package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/thep200/github-graph-crawler/cfg"
	githubapi "github.com/thep200/github-graph-crawler/internal/github_api"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/processor"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/store"
	kafkapkg "github.com/thep200/github-graph-crawler/pkg/kafka"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// Stats is the running tally exposed to the api facade and the ui server.
type Stats struct {
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
	Requeued  int64 `json:"requeued"`
}

type Crawler struct {
	Logger    log.Logger
	Config    *cfg.Config
	Store     store.Store
	Processor *processor.Processor
	Caller    *githubapi.Caller
	Queues    request.Queuer

	workers      chan struct{}
	backgroundWg sync.WaitGroup

	processed int64
	skipped   int64
	failed    int64
	requeued  int64
}

func NewCrawler(logger log.Logger, config *cfg.Config, st store.Store, queues request.Queuer) (*Crawler, error) {
	proc, err := processor.NewProcessor(logger, st)
	if err != nil {
		return nil, err
	}

	maxWorkers := config.Crawler.Workers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	return &Crawler{
		Logger:    logger,
		Config:    config,
		Store:     st,
		Processor: proc,
		Caller:    githubapi.NewCaller(logger, config),
		Queues:    queues,
		workers:   make(chan struct{}, maxWorkers),
	}, nil
}

// Seed pushes the initial request at immediate priority.
func (c *Crawler) Seed(ctx context.Context, reqType, url string) error {
	seed := request.New(reqType, url)
	return c.Queues.Push(ctx, []*request.Request{seed}, request.PriorityImmediate)
}

// Run consumes the four priority topics until the context is cancelled.
func (c *Crawler) Run(ctx context.Context) error {
	topics := []string{
		c.Config.Kafka.Topics.Immediate,
		c.Config.Kafka.Topics.Soon,
		c.Config.Kafka.Topics.Normal,
		c.Config.Kafka.Topics.Later,
	}

	for _, topic := range topics {
		consumer := kafkapkg.NewConsumer(c.Config, c.Logger, topic, c.Config.Kafka.ConsumerGroup)
		consumer.RegisterHandler("request", func(data []byte) error {
			return c.HandleMessage(ctx, data)
		})

		c.backgroundWg.Add(1)
		go func(consumer *kafkapkg.Consumer, topic string) {
			defer c.backgroundWg.Done()
			if err := consumer.Start(ctx); err != nil {
				c.Logger.Error(ctx, "Consumer for %s stopped: %v", topic, err)
			}
		}(consumer, topic)
	}

	<-ctx.Done()
	c.backgroundWg.Wait()
	return nil
}

// HandleMessage decodes one queued request and runs it through a worker slot.
func (c *Crawler) HandleMessage(ctx context.Context, data []byte) error {
	req := &request.Request{}
	if err := json.Unmarshal(data, req); err != nil {
		c.Logger.Error(ctx, "Cannot decode queued request: %v", err)
		return err
	}

	c.workers <- struct{}{}
	defer func() { <-c.workers }()

	return c.HandleRequest(ctx, req)
}

// HandleRequest runs one request end to end: fetch, process, upsert. A store
// failure requeues the request at later priority for another attempt.
func (c *Crawler) HandleRequest(ctx context.Context, req *request.Request) error {
	req.Crawler = c.Queues

	if err := c.prepare(ctx, req); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			c.Logger.Error(ctx, "Store lookup failed for %s %s, requeueing: %v", req.Type, req.Url, err)
			atomic.AddInt64(&c.requeued, 1)
			return c.Queues.Push(ctx, []*request.Request{req}, request.PriorityLater)
		}
		c.Logger.Error(ctx, "Fetch failed for %s %s: %v", req.Type, req.Url, err)
		atomic.AddInt64(&c.failed, 1)
		return err
	}
	if req.Document == nil {
		// Nothing fetched and nothing stored; drop the request.
		atomic.AddInt64(&c.skipped, 1)
		return nil
	}

	doc, err := c.Processor.Process(ctx, req)
	if err != nil {
		c.Logger.Error(ctx, "Processing failed for %s %s, requeueing: %v", req.Type, req.Url, err)
		atomic.AddInt64(&c.requeued, 1)
		return c.Queues.Push(ctx, []*request.Request{req}, request.PriorityLater)
	}

	if doc == nil {
		atomic.AddInt64(&c.skipped, 1)
		return nil
	}

	if err := c.Store.Upsert(ctx, doc); err != nil {
		c.Logger.Error(ctx, "Upsert failed for %s, requeueing: %v", req.Url, err)
		atomic.AddInt64(&c.requeued, 1)
		return c.Queues.Push(ctx, []*request.Request{req}, request.PriorityLater)
	}

	atomic.AddInt64(&c.processed, 1)
	return nil
}

// prepare attaches the document body: an embedded payload as-is, otherwise a
// conditional fetch against the stored etag. A 304 reuses the stored copy.
func (c *Crawler) prepare(ctx context.Context, req *request.Request) error {
	if req.Payload != nil {
		req.Document = graph.NewDocument(req.Type, req.Url, req.Payload)
		return nil
	}

	if req.Policy.Fetch == policy.FetchNone || req.Policy.Fetch == policy.FetchStorage {
		doc, err := c.Store.Get(ctx, req.Type, req.Url)
		if err != nil {
			return err
		}
		req.Document = doc
		return nil
	}

	etag, err := c.Store.Etag(ctx, req.Type, req.Url)
	if err != nil {
		return err
	}

	result, err := c.Caller.Fetch(ctx, req.Url, etag)
	if err != nil {
		return err
	}

	req.Response = &request.Response{
		StatusCode: result.StatusCode,
		Etag:       result.Etag,
		Header:     result.Header,
	}

	if result.NotModified {
		doc, err := c.Store.Get(ctx, req.Type, req.Url)
		if err != nil {
			return err
		}
		req.Document = doc
		return nil
	}

	req.Document = graph.NewDocument(req.Type, req.Url, result.Body)
	req.Document.Meta.Etag = result.Etag
	req.Document.Meta.FetchedAt = result.FetchedAt
	return nil
}

// Stats snapshots the counters.
func (c *Crawler) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&c.processed),
		Skipped:   atomic.LoadInt64(&c.skipped),
		Failed:    atomic.LoadInt64(&c.failed),
		Requeued:  atomic.LoadInt64(&c.requeued),
	}
}

// DrainMemory runs queued requests from a memory queue until it is empty.
// Used by single-process runs and tests; Kafka deployments use Run.
func (c *Crawler) DrainMemory(ctx context.Context, queues *MemoryQueues) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		req := queues.Pop()
		if req == nil {
			return nil
		}
		if err := c.HandleRequest(ctx, req); err != nil {
			c.Logger.Warn(ctx, "Request %s %s failed: %v", req.Type, req.Url, err)
		}
	}
}
