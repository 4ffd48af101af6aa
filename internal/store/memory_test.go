package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

func repoDoc(id, url string) *graph.Document {
	doc := graph.NewDocument("repo", url, map[string]any{"id": id})
	doc.AddSelfAndSiblings(urn.URN("urn:repo:"+id), urn.URN("urn:repos"))
	doc.Meta.Etag = `"etag-` + id + `"`
	return doc
}

func TestMemoryUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.Upsert(ctx, repoDoc("12", "http://repo/12")))

	byUrn, err := st.Get(ctx, "repo", "urn:repo:12")
	require.NoError(t, err)
	require.NotNil(t, byUrn)

	byUrl, err := st.Get(ctx, "repo", "http://repo/12")
	require.NoError(t, err)
	require.NotNil(t, byUrl)

	// Both keys resolve to the same document.
	assert.Equal(t, byUrn, byUrl)

	miss, err := st.Get(ctx, "repo", "urn:repo:99")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestMemoryEtag(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	require.NoError(t, st.Upsert(ctx, repoDoc("12", "http://repo/12")))

	etag, err := st.Etag(ctx, "repo", "http://repo/12")
	require.NoError(t, err)
	assert.Equal(t, `"etag-12"`, etag)

	missing, err := st.Etag(ctx, "repo", "http://repo/99")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMemoryLastWriterWins(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	first := repoDoc("12", "http://repo/12")
	first.Meta.Version = 1
	require.NoError(t, st.Upsert(ctx, first))

	second := repoDoc("12", "http://repo/12")
	second.Meta.Version = 2
	require.NoError(t, st.Upsert(ctx, second))

	doc, err := st.Get(ctx, "repo", "urn:repo:12")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Meta.Version)
}

func TestMemoryListCountDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	require.NoError(t, st.Upsert(ctx, repoDoc("1", "http://repo/1")))
	require.NoError(t, st.Upsert(ctx, repoDoc("2", "http://repo/2")))

	summaries, err := st.List(ctx, "repo")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	count, err := st.Count(ctx, "repo")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, st.Delete(ctx, "repo", urn.URN("urn:repo:1")))
	count, _ = st.Count(ctx, "repo")
	assert.Equal(t, int64(1), count)

	gone, err := st.Get(ctx, "repo", "http://repo/1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryUpsertWithoutSelfFallsBackToUrl(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	doc := graph.NewDocument("WatchEvent", "http://repo/4/events/9", map[string]any{"id": "9"})
	require.NoError(t, st.Upsert(ctx, doc))

	stored, err := st.Get(ctx, "WatchEvent", "http://repo/4/events/9")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}
