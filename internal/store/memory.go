package store

import (
	"context"
	"sync"

	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

// Memory is the in-process store used by tests and single-shot runs. Same
// contract as the mysql store, no persistence.
type Memory struct {
	mu    sync.RWMutex
	byUrn map[string]*graph.Document
	byUrl map[string]*graph.Document

	// FailWith, when set, makes every operation return that error.
	FailWith error
}

func NewMemory() *Memory {
	return &Memory{
		byUrn: map[string]*graph.Document{},
		byUrl: map[string]*graph.Document{},
	}
}

func (m *Memory) Get(ctx context.Context, docType, key string) (*graph.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if doc, ok := m.byUrn[key]; ok {
		return doc, nil
	}
	return m.byUrl[key], nil
}

func (m *Memory) Etag(ctx context.Context, docType, url string) (string, error) {
	doc, err := m.Get(ctx, docType, url)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", nil
	}
	return doc.Meta.Etag, nil
}

func (m *Memory) Upsert(ctx context.Context, doc *graph.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	self := doc.Self().String()
	if self == "" {
		self = doc.Meta.Url
	}
	m.byUrn[self] = doc
	if doc.Meta.Url != "" {
		m.byUrl[doc.Meta.Url] = doc
	}
	return nil
}

func (m *Memory) List(ctx context.Context, docType string) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var summaries []Summary
	for key, doc := range m.byUrn {
		if doc.Meta.Type != docType {
			continue
		}
		summaries = append(summaries, Summary{
			Urn:     urn.URN(key),
			Type:    doc.Meta.Type,
			Url:     doc.Meta.Url,
			Etag:    doc.Meta.Etag,
			Version: doc.Meta.Version,
		})
	}
	return summaries, nil
}

func (m *Memory) Delete(ctx context.Context, docType string, u urn.URN) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if doc, ok := m.byUrn[u.String()]; ok {
		delete(m.byUrn, u.String())
		if doc.Meta.Url != "" {
			delete(m.byUrl, doc.Meta.Url)
		}
	}
	return nil
}

func (m *Memory) Count(ctx context.Context, docType string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	var count int64
	for _, doc := range m.byUrn {
		if docType == "" || doc.Meta.Type == docType {
			count++
		}
	}
	return count, nil
}
