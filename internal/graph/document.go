// Package graph defines the canonical document shape the processor produces:
// the raw GitHub payload plus a _metadata block whose links place the entity
// in the urn graph.
package graph

import (
	"encoding/json"
	"time"

	"github.com/thep200/github-graph-crawler/internal/urn"
)

type Metadata struct {
	Type        string          `json:"type"`
	Url         string          `json:"url"`
	Links       map[string]Link `json:"links"`
	Version     int             `json:"version"`
	Etag        string          `json:"etag,omitempty"`
	FetchedAt   time.Time       `json:"fetchedAt,omitempty"`
	ProcessedAt time.Time       `json:"processedAt,omitempty"`
	Extra       map[string]any  `json:"extra,omitempty"`
}

// Document carries the decoded payload body and the metadata the handlers
// populate. Marshaling folds the metadata back under the _metadata key so the
// stored form matches what GitHub returned plus one added field.
type Document struct {
	Body map[string]any
	Meta *Metadata
}

// NewDocument wraps a decoded payload. Links start empty; handlers fill them.
func NewDocument(docType, url string, body map[string]any) *Document {
	if body == nil {
		body = map[string]any{}
	}
	return &Document{
		Body: body,
		Meta: &Metadata{
			Type:  docType,
			Url:   url,
			Links: map[string]Link{},
		},
	}
}

// Decode round-trips the body into a typed view of the payload.
func (d *Document) Decode(v any) error {
	raw, err := json.Marshal(d.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Elements returns the wrapped page elements of a collection response.
func (d *Document) Elements() []map[string]any {
	raw, ok := d.Body["elements"].([]any)
	if !ok {
		return nil
	}
	elements := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			elements = append(elements, m)
		}
	}
	return elements
}

// Self returns the self link href, empty until the handler sets it.
func (d *Document) Self() urn.URN {
	return d.Meta.Links["self"].Href
}

func (d *Document) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(d.Body)+1)
	for k, v := range d.Body {
		merged[k] = v
	}
	merged["_metadata"] = d.Meta
	return json.Marshal(merged)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	body := map[string]any{}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	meta := &Metadata{Links: map[string]Link{}}
	if rawMeta, ok := body["_metadata"]; ok {
		raw, err := json.Marshal(rawMeta)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, meta); err != nil {
			return err
		}
		delete(body, "_metadata")
	}
	if meta.Links == nil {
		meta.Links = map[string]Link{}
	}
	d.Body = body
	d.Meta = meta
	return nil
}
