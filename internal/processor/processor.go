// Package processor turns fetched GitHub payloads into canonical linked
// documents and enqueues the follow-up requests they imply. Handlers are
// looked up by request type in a registry built at startup; unknown types
// fall through with a single warning.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/thep200/github-graph-crawler/internal/finder"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// Version is stamped into _metadata.version on every processed document.
// Bump it when handler output changes so stored documents reprocess.
const Version = 12

// Handler mutates request.Document in place and queues follow-ups through
// request.Crawler. Handlers never perform I/O; the one exception is the
// events page handler, which consults the store through the finder.
type Handler func(ctx context.Context, req *request.Request) error

type Processor struct {
	Logger  log.Logger
	Store   store.Store
	Version int

	finder   *finder.Finder
	handlers map[string]Handler

	warnedMu sync.Mutex
	warned   map[string]bool
}

func NewProcessor(logger log.Logger, st store.Store) (*Processor, error) {
	eventFinder, err := finder.NewFinder(logger, st)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		Logger:  logger,
		Store:   st,
		Version: Version,
		finder:  eventFinder,
		warned:  map[string]bool{},
	}
	p.registerHandlers()
	return p, nil
}

// QueuedTypes returns the set of request types this processor can handle.
func (p *Processor) QueuedTypes() []string {
	types := make([]string, 0, len(p.handlers))
	for t := range p.handlers {
		types = append(types, t)
	}
	return types
}

// CanHandle applies the handler lookup and the freshness gate. A false
// return means the document passes through unchanged and nothing is queued.
func (p *Processor) CanHandle(ctx context.Context, req *request.Request) (bool, error) {
	if _, ok := p.handlers[req.Type]; !ok {
		p.warnUnknown(ctx, req.Type)
		return false, nil
	}

	switch req.Policy.Freshness {
	case policy.FreshAlways:
		return true, nil
	case policy.FreshMatch:
		return p.etagChanged(ctx, req)
	case policy.FreshVersion, policy.FreshMutables:
		return p.versionBehind(ctx, req)
	default:
		return true, nil
	}
}

// Process dispatches the request to its handler, fans out pagination, and
// stamps the version. On a freshness skip the document comes back unchanged.
func (p *Processor) Process(ctx context.Context, req *request.Request) (*graph.Document, error) {
	ok, err := p.CanHandle(ctx, req)
	if err != nil {
		return req.Document, err
	}
	if !ok {
		return req.Document, nil
	}

	if req.Document == nil {
		req.Document = graph.NewDocument(req.Type, req.Url, req.Payload)
	}
	if req.Document.Meta.Links == nil {
		req.Document.Meta.Links = map[string]graph.Link{}
	}

	if err := p.handlers[req.Type](ctx, req); err != nil {
		return req.Document, err
	}

	p.enqueuePages(ctx, req)

	req.Document.Meta.Version = p.Version
	req.Document.Meta.ProcessedAt = time.Now()
	if req.Response != nil && req.Response.Etag != "" {
		req.Document.Meta.Etag = req.Response.Etag
	}

	return req.Document, nil
}

// etagChanged gates match freshness: skip when the stored etag equals the
// fetched one.
func (p *Processor) etagChanged(ctx context.Context, req *request.Request) (bool, error) {
	fetched := ""
	if req.Response != nil {
		fetched = req.Response.Etag
	}
	if fetched == "" && req.Document != nil {
		fetched = req.Document.Meta.Etag
	}
	if fetched == "" {
		return true, nil
	}

	stored, err := p.Store.Etag(ctx, req.Type, req.Url)
	if err != nil {
		return false, err
	}
	return stored != fetched, nil
}

// versionBehind gates version freshness: skip once the stored document is at
// or past this processor's version.
func (p *Processor) versionBehind(ctx context.Context, req *request.Request) (bool, error) {
	storedVersion := 0
	if req.Document != nil && req.Document.Meta.Version > 0 {
		storedVersion = req.Document.Meta.Version
	} else {
		doc, err := p.Store.Get(ctx, req.Type, req.Url)
		if err != nil {
			return false, err
		}
		if doc != nil {
			storedVersion = doc.Meta.Version
		}
	}

	if storedVersion > p.Version {
		// An older processor is reading data written by a newer one.
		p.Logger.Warn(ctx, "Stored version %d of %s %s is newer than processor version %d",
			storedVersion, req.Type, req.Url, p.Version)
		return false, nil
	}
	return storedVersion < p.Version, nil
}

func (p *Processor) warnUnknown(ctx context.Context, reqType string) {
	p.warnedMu.Lock()
	defer p.warnedMu.Unlock()
	if !p.warned[reqType] {
		p.warned[reqType] = true
		p.Logger.Warn(ctx, "No handler registered for request type %s", reqType)
	}
}

// enqueue hands a follow-up to the queue, logging instead of failing the
// handler on queue trouble.
func (p *Processor) enqueue(ctx context.Context, req *request.Request, child *request.Request) {
	if child.Url == "" {
		return
	}
	if err := req.Queue(ctx, child); err != nil {
		p.Logger.Warn(ctx, "Failed to queue %s %s: %v", child.Type, child.Url, err)
	}
}
