package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

func TestAddSelfAndSiblings(t *testing.T) {
	doc := NewDocument("repo", "http://foo/repo/12", map[string]any{"id": 12})
	doc.AddSelfAndSiblings(urn.URN("urn:repo:12"), urn.URN("urn:user:45:repos"))

	assert.Equal(t, Link{Type: LinkResource, Href: "urn:repo:12"}, doc.Meta.Links["self"])
	assert.Equal(t, Link{Type: LinkResource, Href: "urn:user:45:repos"}, doc.Meta.Links["siblings"])
	assert.Equal(t, urn.URN("urn:repo:12"), doc.Self())
}

func TestLinkShapes(t *testing.T) {
	doc := NewDocument("repo", "http://foo/repo/12", nil)
	doc.AddCollection("issues", urn.URN("urn:repo:12:issues"))
	doc.AddRelation("teams", urn.URN("urn:repo:12:teams:pages:*"))
	doc.AddResourceList("labels", []urn.URN{"urn:repo:12:label:1", "urn:repo:12:label:2"})

	assert.Equal(t, LinkCollection, doc.Meta.Links["issues"].Type)
	assert.Equal(t, LinkRelation, doc.Meta.Links["teams"].Type)
	assert.Len(t, doc.Meta.Links["labels"].Hrefs, 2)
}

func TestLaterWritesOverwrite(t *testing.T) {
	doc := NewDocument("repo", "http://foo/repo/12", nil)
	doc.AddResource("owner", urn.URN("urn:user:1"))
	doc.AddResource("owner", urn.URN("urn:user:2"))
	assert.Equal(t, urn.URN("urn:user:2"), doc.Meta.Links["owner"].Href)
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := NewDocument("repo", "http://foo/repo/12", map[string]any{"id": float64(12), "name": "x"})
	doc.AddSelfAndSiblings(urn.URN("urn:repo:12"), urn.URN("urn:user:45:repos"))
	doc.Meta.Version = 7
	doc.Meta.Etag = `"abc"`

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded := &Document{}
	require.NoError(t, json.Unmarshal(raw, decoded))

	assert.Equal(t, doc.Body, decoded.Body)
	assert.Equal(t, "repo", decoded.Meta.Type)
	assert.Equal(t, 7, decoded.Meta.Version)
	assert.Equal(t, urn.URN("urn:repo:12"), decoded.Self())
	assert.NotContains(t, decoded.Body, "_metadata")
}

func TestDecode(t *testing.T) {
	doc := NewDocument("repo", "http://foo/repo/12", map[string]any{"id": float64(12), "name": "x"})

	var view struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, doc.Decode(&view))
	assert.Equal(t, int64(12), view.ID)
	assert.Equal(t, "x", view.Name)
}

func TestElements(t *testing.T) {
	doc := NewDocument("orgs", "http://orgs", map[string]any{
		"elements": []any{
			map[string]any{"id": float64(1)},
			map[string]any{"id": float64(2)},
		},
	})
	assert.Len(t, doc.Elements(), 2)

	plain := NewDocument("repo", "http://repo", map[string]any{"id": float64(1)})
	assert.Nil(t, plain.Elements())
}
