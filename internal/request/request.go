// Package request defines the unit of crawl work: a typed url plus the
// context and traversal policy it was discovered under.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PrioritySoon      Priority = "soon"
	PriorityNormal    Priority = "normal"
	PriorityLater     Priority = "later"
)

// Queuer is the narrow queue contract the processor enqueues follow-ups
// through. The crawler backs it with Kafka; tests back it with memory.
type Queuer interface {
	Queue(ctx context.Context, req *Request) error
	Push(ctx context.Context, reqs []*Request, priority Priority) error
}

// Relation describes the emission site of a many-to-many edge so the page
// handler can emit back-links into the origin. The guid is opaque and only
// correlates the page with its enqueue.
type Relation struct {
	Origin    string  `json:"origin"`
	Qualifier urn.URN `json:"qualifier"`
	Type      string  `json:"type"`
	Guid      string  `json:"guid"`
}

// Context scopes subordinate entities under a urn prefix and carries the
// relation descriptor when the request crawls a relation page.
type Context struct {
	Qualifier urn.URN   `json:"qualifier,omitempty"`
	Relation  *Relation `json:"relation,omitempty"`
}

// Response is the slice of the HTTP exchange the processor reads: status,
// etag, and the Link header for pagination.
type Response struct {
	StatusCode int         `json:"statusCode,omitempty"`
	Etag       string      `json:"etag,omitempty"`
	Header     http.Header `json:"-"`
}

type Request struct {
	Type    string         `json:"type"`
	Url     string         `json:"url"`
	Context Context        `json:"context"`
	Policy  policy.Policy  `json:"policy"`
	Payload map[string]any `json:"payload,omitempty"`

	// Attached by the fetcher and the host, never serialized to the queue.
	Document *graph.Document `json:"-"`
	Response *Response       `json:"-"`
	Crawler  Queuer          `json:"-"`
}

// New builds an immutable-by-convention request at the default policy.
func New(reqType, url string) *Request {
	return &Request{Type: reqType, Url: StripTemplate(url), Policy: policy.Default()}
}

// Child derives a follow-up request across an edge of the given role. The
// child inherits the parent's qualifier, takes its policy from the transition
// table, and always has its url template variables stripped.
func (r *Request) Child(role policy.EdgeRole, reqType, url string) *Request {
	return &Request{
		Type:    reqType,
		Url:     StripTemplate(url),
		Context: Context{Qualifier: r.Context.Qualifier},
		Policy:  r.Policy.ChildFor(role),
		Crawler: r.Crawler,
	}
}

// ChildWithQualifier derives a follow-up scoped under an explicit qualifier.
func (r *Request) ChildWithQualifier(role policy.EdgeRole, reqType, url string, qualifier urn.URN) *Request {
	child := r.Child(role, reqType, url)
	child.Context.Qualifier = qualifier
	return child
}

// ChildRelation derives a relation-page follow-up. A fresh guid is stamped on
// every call; idempotence of the processor is modulo these.
func (r *Request) ChildRelation(origin, relType, url string, qualifier urn.URN) *Request {
	child := r.Child(policy.EdgeCollectionPage, relType, url)
	child.Context.Qualifier = qualifier
	child.Context.Relation = &Relation{
		Origin:    origin,
		Qualifier: qualifier,
		Type:      relType,
		Guid:      uuid.NewString(),
	}
	return child
}

// Queue hands a follow-up to the crawler at default priority.
func (r *Request) Queue(ctx context.Context, child *Request) error {
	if r.Crawler == nil {
		return nil
	}
	return r.Crawler.Queue(ctx, child)
}

// StripTemplate removes URI template variables from a url,
// http://x{/y} becomes http://x. Urls queued for fetching must never carry
// template spans.
func StripTemplate(url string) string {
	if !strings.ContainsRune(url, '{') {
		return url
	}
	var b strings.Builder
	depth := 0
	for _, c := range url {
		switch {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(c)
		}
	}
	return b.String()
}
