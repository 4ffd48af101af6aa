package crawler

import (
	"context"
	"sync"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/request"
	kafkapkg "github.com/thep200/github-graph-crawler/pkg/kafka"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// KafkaQueues maps the four crawl priorities onto four Kafka topics and
// implements the queue facade the processor enqueues through.
type KafkaQueues struct {
	Config    *cfg.Config
	Logger    log.Logger
	producers map[request.Priority]*kafkapkg.Producer
}

func NewKafkaQueues(config *cfg.Config, logger log.Logger) *KafkaQueues {
	return &KafkaQueues{
		Config: config,
		Logger: logger,
		producers: map[request.Priority]*kafkapkg.Producer{
			request.PriorityImmediate: kafkapkg.NewProducer(config, logger, config.Kafka.Topics.Immediate),
			request.PrioritySoon:      kafkapkg.NewProducer(config, logger, config.Kafka.Topics.Soon),
			request.PriorityNormal:    kafkapkg.NewProducer(config, logger, config.Kafka.Topics.Normal),
			request.PriorityLater:     kafkapkg.NewProducer(config, logger, config.Kafka.Topics.Later),
		},
	}
}

func (q *KafkaQueues) Queue(ctx context.Context, req *request.Request) error {
	return q.Push(ctx, []*request.Request{req}, request.PriorityNormal)
}

func (q *KafkaQueues) Push(ctx context.Context, reqs []*request.Request, priority request.Priority) error {
	producer, ok := q.producers[priority]
	if !ok {
		producer = q.producers[request.PriorityNormal]
	}
	for _, req := range reqs {
		if err := producer.Publish(ctx, "request", req); err != nil {
			return err
		}
	}
	return nil
}

func (q *KafkaQueues) Close() error {
	var firstErr error
	for _, producer := range q.producers {
		if err := producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MemoryQueues keeps requests in process. It backs tests and single-shot
// runs where Kafka is not worth standing up.
type MemoryQueues struct {
	mu      sync.Mutex
	pending map[request.Priority][]*request.Request
}

func NewMemoryQueues() *MemoryQueues {
	return &MemoryQueues{pending: map[request.Priority][]*request.Request{}}
}

func (q *MemoryQueues) Queue(ctx context.Context, req *request.Request) error {
	return q.Push(ctx, []*request.Request{req}, request.PriorityNormal)
}

func (q *MemoryQueues) Push(ctx context.Context, reqs []*request.Request, priority request.Priority) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[priority] = append(q.pending[priority], reqs...)
	return nil
}

// Pop returns the next request in priority order, nil when empty.
func (q *MemoryQueues) Pop() *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	order := []request.Priority{
		request.PriorityImmediate,
		request.PrioritySoon,
		request.PriorityNormal,
		request.PriorityLater,
	}
	for _, priority := range order {
		if len(q.pending[priority]) > 0 {
			req := q.pending[priority][0]
			q.pending[priority] = q.pending[priority][1:]
			return req
		}
	}
	return nil
}

func (q *MemoryQueues) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, reqs := range q.pending {
		total += len(reqs)
	}
	return total
}
