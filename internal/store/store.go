// Package store is the document store: persistent key/value by urn with a
// process-local read cache. Upserts are last-writer-wins on the self urn.
package store

import (
	"context"
	"errors"

	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

// ErrUnavailable wraps store I/O failures so callers can tell them apart
// from a plain miss and retry the request.
var ErrUnavailable = errors.New("document store unavailable")

// Summary is the listing row returned by List.
type Summary struct {
	Urn     urn.URN `json:"urn"`
	Type    string  `json:"type"`
	Url     string  `json:"url"`
	Etag    string  `json:"etag"`
	Version int     `json:"version"`
}

// Store is the document store contract. Get accepts either the canonical
// urn or the source url as key; a miss returns (nil, nil).
type Store interface {
	Get(ctx context.Context, docType, key string) (*graph.Document, error)
	Etag(ctx context.Context, docType, url string) (string, error)
	Upsert(ctx context.Context, doc *graph.Document) error
	List(ctx context.Context, docType string) ([]Summary, error)
	Delete(ctx context.Context, docType string, u urn.URN) error
	Count(ctx context.Context, docType string) (int64, error)
}
