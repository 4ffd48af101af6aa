package processor

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/internal/urn"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

type push struct {
	reqs     []*request.Request
	priority request.Priority
}

// recordingQueue captures enqueues instead of shipping them anywhere.
type recordingQueue struct {
	queued []*request.Request
	pushes []push
}

func (q *recordingQueue) Queue(ctx context.Context, req *request.Request) error {
	q.queued = append(q.queued, req)
	return nil
}

func (q *recordingQueue) Push(ctx context.Context, reqs []*request.Request, priority request.Priority) error {
	q.pushes = append(q.pushes, push{reqs: reqs, priority: priority})
	return nil
}

func newTestProcessor(t *testing.T) (*Processor, *store.Memory) {
	t.Helper()
	logger, _ := log.NewCslLogger()
	st := store.NewMemory()
	p, err := NewProcessor(logger, st)
	require.NoError(t, err)
	return p, st
}

func newTestRequest(reqType, url string, body map[string]any) (*request.Request, *recordingQueue) {
	req := request.New(reqType, url)
	req.Policy = policy.Policy{
		Transitivity: policy.DeepShallow,
		Freshness:    policy.FreshAlways,
		Fetch:        policy.FetchOriginStorage,
	}
	req.Document = graph.NewDocument(reqType, url, body)
	queue := &recordingQueue{}
	req.Crawler = queue
	return req, queue
}

func queuedTypes(queue *recordingQueue) []string {
	types := make([]string, 0, len(queue.queued))
	for _, req := range queue.queued {
		types = append(types, req.Type)
	}
	return types
}

func queuedUrls(queue *recordingQueue) []string {
	urls := make([]string, 0, len(queue.queued))
	for _, req := range queue.queued {
		urls = append(urls, req.Url)
	}
	return urls
}

func repoPayload() map[string]any {
	return map[string]any{
		"id":                float64(12),
		"owner":             map[string]any{"id": float64(45), "url": "http://user/45"},
		"organization":      map[string]any{"id": float64(24), "url": "http://org/24"},
		"teams_url":         "http://teams",
		"collaborators_url": "http://collaborators{/collaborator}",
		"commits_url":       "http://commits{/sha}",
		"contributors_url":  "http://contributors",
		"events_url":        "http://events",
		"issues_url":        "http://issues{/number}",
		"pulls_url":         "http://pulls{/number}",
		"subscribers_url":   "http://subscribers",
	}
}

func TestRepoProcessing(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("repo", "http://foo/repo/12", repoPayload())

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	links := doc.Meta.Links
	assert.Equal(t, urn.URN("urn:repo:12"), links["self"].Href)
	assert.Equal(t, urn.URN("urn:user:45:repos"), links["siblings"].Href)
	assert.Equal(t, urn.URN("urn:user:45"), links["owner"].Href)
	assert.Equal(t, urn.URN("urn:org:24"), links["organization"].Href)
	assert.Equal(t, graph.Link{Type: graph.LinkRelation, Href: "urn:repo:12:teams:pages:*"}, links["teams"])
	assert.Equal(t, graph.LinkRelation, links["collaborators"].Type)
	assert.Equal(t, graph.LinkRelation, links["contributors"].Type)
	assert.Equal(t, graph.LinkRelation, links["subscribers"].Type)

	assert.Equal(t,
		[]string{"user", "org", "teams", "collaborators", "contributors", "subscribers", "issues", "commits", "events"},
		queuedTypes(queue))
	assert.Equal(t,
		[]string{"http://user/45", "http://org/24", "http://teams", "http://collaborators",
			"http://contributors", "http://subscribers", "http://issues", "http://commits", "http://events"},
		queuedUrls(queue))

	// No queued url may carry template variables.
	for _, url := range queuedUrls(queue) {
		assert.NotContains(t, url, "{")
		assert.NotContains(t, url, "}")
	}

	// Relation children carry their emission descriptor.
	for _, child := range queue.queued {
		if child.Type == "teams" || child.Type == "collaborators" || child.Type == "contributors" || child.Type == "subscribers" {
			require.NotNil(t, child.Context.Relation, child.Type)
			assert.Equal(t, "repo", child.Context.Relation.Origin)
			assert.Equal(t, urn.URN("urn:repo:12"), child.Context.Relation.Qualifier)
			assert.NotEmpty(t, child.Context.Relation.Guid)
		}
	}

	assert.Equal(t, Version, doc.Meta.Version)
	assert.False(t, doc.Meta.ProcessedAt.IsZero())
}

func TestRepoProcessingIsIdempotent(t *testing.T) {
	p, _ := newTestProcessor(t)

	first, firstQueue := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	firstDoc, err := p.Process(context.Background(), first)
	require.NoError(t, err)

	second, secondQueue := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	secondDoc, err := p.Process(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, firstDoc.Meta.Links, secondDoc.Meta.Links)
	assert.Equal(t, queuedTypes(firstQueue), queuedTypes(secondQueue))
	assert.Equal(t, queuedUrls(firstQueue), queuedUrls(secondQueue))
}

func TestPullRequestEvent(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"id":    float64(12345),
		"type":  "PullRequestEvent",
		"actor": map[string]any{"id": float64(3), "url": "http://user/3"},
		"repo":  map[string]any{"id": float64(4), "url": "http://repo/4"},
		"org":   map[string]any{"id": float64(5), "url": "http://org/5"},
		"payload": map[string]any{
			"pull_request": map[string]any{"id": float64(1), "url": "http://pull_request/1"},
		},
	}
	req, queue := newTestRequest("PullRequestEvent", "http://repo/4/events/12345", body)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	links := doc.Meta.Links
	assert.Equal(t, urn.URN("urn:repo:4:PullRequestEvent:12345"), links["self"].Href)
	assert.Equal(t, urn.URN("urn:repo:4:pull_request:1"), links["pull_request"].Href)
	assert.Equal(t, urn.URN("urn:user:3"), links["actor"].Href)
	assert.Equal(t, urn.URN("urn:repo:4"), links["repo"].Href)
	assert.Equal(t, urn.URN("urn:org:5"), links["org"].Href)

	assert.Equal(t, []string{"user", "repo", "org", "pull_request"}, queuedTypes(queue))
	assert.Equal(t,
		[]string{"http://user/3", "http://repo/4", "http://org/5", "http://pull_request/1"},
		queuedUrls(queue))
}

func TestStatusEventSynthesizesCommit(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"id":      float64(6789),
		"type":    "StatusEvent",
		"actor":   map[string]any{"id": float64(3), "url": "http://user/3"},
		"repo":    map[string]any{"id": float64(4), "url": "http://repo/4"},
		"payload": map[string]any{"sha": "a1b2"},
	}
	req, queue := newTestRequest("StatusEvent", "http://repo/4/events/6789", body)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, urn.URN("urn:repo:4:commit:a1b2"), doc.Meta.Links["commit"].Href)

	// The status payload has no commit url, so no commit follow-up.
	assert.NotContains(t, queuedTypes(queue), "commit")
}

func TestCommitCommentEventSynthesizesCommitUrl(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"id":   float64(777),
		"type": "CommitCommentEvent",
		"repo": map[string]any{"id": float64(4), "url": "http://repo/4"},
		"payload": map[string]any{
			"comment": map[string]any{"id": float64(10), "url": "http://comment/10", "commit_id": "abc"},
		},
	}
	req, queue := newTestRequest("CommitCommentEvent", "http://repo/4/events/777", body)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, urn.URN("urn:repo:4:commit_comment:10"), doc.Meta.Links["comment"].Href)
	assert.Equal(t, urn.URN("urn:repo:4:commit:abc"), doc.Meta.Links["commit"].Href)

	urls := queuedUrls(queue)
	assert.Contains(t, urls, "http://repo/4/commits/abc")
}

func TestEventWithoutRepoOrOrgIsTerminal(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"id":    float64(1),
		"type":  "PublicEvent",
		"actor": map[string]any{"id": float64(3), "url": "http://user/3"},
	}
	req, queue := newTestRequest("PublicEvent", "http://events/1", body)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, doc.Meta.Links)
	assert.Empty(t, queue.queued)
	assert.Empty(t, queue.pushes)
}

func TestCollectionPageWithDeepShallowRoot(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"elements": []any{
			map[string]any{"type": "org", "url": "http://child1"},
		},
	}
	req, queue := newTestRequest("orgs", "http://test.com/orgs", body)
	req.Response = &request.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Link": []string{`<http://test.com/orgs?page=2>; rel="next", <http://test.com/orgs?page=2>; rel="last"`},
		},
	}

	_, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	// One element queued, decayed to shallow by the root collection edge.
	require.Len(t, queue.queued, 1)
	assert.Equal(t, "org", queue.queued[0].Type)
	assert.Equal(t, "http://child1", queue.queued[0].Url)
	assert.Equal(t, policy.Shallow, queue.queued[0].Policy.Transitivity)

	// One bulk page push at soon, transitivity preserved.
	require.Len(t, queue.pushes, 1)
	assert.Equal(t, request.PrioritySoon, queue.pushes[0].priority)
	require.Len(t, queue.pushes[0].reqs, 1)
	page := queue.pushes[0].reqs[0]
	assert.Equal(t, "orgs", page.Type)
	assert.Equal(t, "http://test.com/orgs?page=2&per_page=100", page.Url)
	assert.Equal(t, policy.DeepShallow, page.Policy.Transitivity)
}

func TestPaginationFanOut(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("issues", "http://test.com/issues?state=all", map[string]any{"elements": []any{}})
	req.Context.Qualifier = urn.URN("urn:repo:12")
	req.Response = &request.Response{
		Header: http.Header{
			"Link": []string{`<http://test.com/issues?state=all&page=4>; rel="next", <http://test.com/issues?state=all&page=7>; rel="last"`},
		},
	}

	_, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, queue.pushes, 1)
	assert.Equal(t, request.PrioritySoon, queue.pushes[0].priority)

	pages := queue.pushes[0].reqs
	require.Len(t, pages, 4)
	expected := []string{
		"http://test.com/issues?page=4&per_page=100&state=all",
		"http://test.com/issues?page=5&per_page=100&state=all",
		"http://test.com/issues?page=6&per_page=100&state=all",
		"http://test.com/issues?page=7&per_page=100&state=all",
	}
	for i, page := range pages {
		assert.Equal(t, "issues", page.Type)
		assert.Equal(t, expected[i], page.Url)
		assert.Equal(t, urn.URN("urn:repo:12"), page.Context.Qualifier)
	}
}

func TestBadLinkHeaderMeansNoNextPage(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("orgs", "http://test.com/orgs", map[string]any{"elements": []any{}})
	req.Response = &request.Response{
		Header: http.Header{"Link": []string{`<http://test.com/orgs?page=x>; rel="next"`}},
	}

	_, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, queue.pushes)
}

func TestVersionSkip(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	req.Policy.Freshness = policy.FreshVersion
	req.Document.Meta.Version = p.Version

	ok, err := p.CanHandle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Same(t, req.Document, doc)
	assert.Empty(t, doc.Meta.Links)
	assert.Equal(t, p.Version, doc.Meta.Version)
	assert.True(t, doc.Meta.ProcessedAt.IsZero())
	assert.Empty(t, queue.queued)
	assert.Empty(t, queue.pushes)
}

func TestNewerStoredVersionAlsoSkips(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	req.Policy.Freshness = policy.FreshVersion
	req.Document.Meta.Version = p.Version + 1

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, p.Version+1, doc.Meta.Version)
	assert.Empty(t, queue.queued)
}

func TestVersionGateReadsStoreWhenDocumentIsBare(t *testing.T) {
	p, st := newTestProcessor(t)

	stored := graph.NewDocument("repo", "http://foo/repo/12", repoPayload())
	stored.AddSelfAndSiblings(urn.URN("urn:repo:12"), urn.URN("urn:user:45:repos"))
	stored.Meta.Version = p.Version
	require.NoError(t, st.Upsert(context.Background(), stored))

	req, queue := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	req.Policy.Freshness = policy.FreshVersion

	ok, err := p.CanHandle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, queue.queued)
}

func TestMatchSkipsOnEqualEtag(t *testing.T) {
	p, st := newTestProcessor(t)

	stored := graph.NewDocument("repo", "http://foo/repo/12", repoPayload())
	stored.AddSelfAndSiblings(urn.URN("urn:repo:12"), urn.URN("urn:user:45:repos"))
	stored.Meta.Etag = `"same"`
	require.NoError(t, st.Upsert(context.Background(), stored))

	req, _ := newTestRequest("repo", "http://foo/repo/12", repoPayload())
	req.Policy.Freshness = policy.FreshMatch
	req.Response = &request.Response{Etag: `"same"`}

	ok, err := p.CanHandle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)

	req.Response.Etag = `"changed"`
	ok, err = p.CanHandle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownTypeIsNotHandled(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("mystery", "http://mystery/1", map[string]any{"id": float64(1)})

	ok, err := p.CanHandle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, doc.Meta.Links)
	assert.Empty(t, queue.queued)
}

func TestEventsPageDeduplicatesAgainstStore(t *testing.T) {
	p, st := newTestProcessor(t)

	// Event 2 is already stored under its synthetic key.
	seen := graph.NewDocument("event", "http://repo/4/events/2", map[string]any{"id": "2"})
	require.NoError(t, st.Upsert(context.Background(), seen))

	body := map[string]any{
		"elements": []any{
			map[string]any{"id": "1", "type": "WatchEvent", "repo": map[string]any{"id": float64(4), "url": "http://repo/4"}},
			map[string]any{"id": "2", "type": "WatchEvent", "repo": map[string]any{"id": float64(4), "url": "http://repo/4"}},
			map[string]any{"id": "3", "type": "ForkEvent", "repo": map[string]any{"id": float64(4), "url": "http://repo/4"}},
		},
	}
	req, queue := newTestRequest("events", "http://repo/4/events", body)
	req.Context.Qualifier = urn.URN("urn:repo:4")

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, queue.queued, 2)
	assert.Equal(t, "WatchEvent", queue.queued[0].Type)
	assert.Equal(t, "http://repo/4/events/1", queue.queued[0].Url)
	assert.NotNil(t, queue.queued[0].Payload)
	assert.Equal(t, "ForkEvent", queue.queued[1].Type)

	hrefs := doc.Meta.Links["resources"].Hrefs
	assert.Equal(t, []urn.URN{"urn:repo:4:WatchEvent:1", "urn:repo:4:ForkEvent:3"}, hrefs)
}

func TestRelationPageEmitsOriginAndBackLinks(t *testing.T) {
	p, _ := newTestProcessor(t)
	body := map[string]any{
		"elements": []any{
			map[string]any{"id": float64(7), "url": "http://user/7"},
		},
	}
	req, queue := newTestRequest("team_members", "http://team/66/members", body)
	req.Context.Qualifier = urn.URN("urn:team:66")
	req.Context.Relation = &request.Relation{
		Origin:    "team",
		Qualifier: urn.URN("urn:team:66"),
		Type:      "team_members",
		Guid:      "g-1",
	}

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, urn.URN("urn:team:66"), doc.Meta.Links["origin"].Href)
	assert.Equal(t, urn.URN("urn:team:66:team_members:pages:1"), doc.Meta.Links["self"].Href)
	assert.Equal(t, []urn.URN{"urn:user:7"}, doc.Meta.Links["resources"].Hrefs)

	require.Len(t, queue.queued, 1)
	assert.Equal(t, "user", queue.queued[0].Type)
}

func TestCommitWithoutQualifierIsTerminal(t *testing.T) {
	p, _ := newTestProcessor(t)
	req, queue := newTestRequest("commit", "http://repo/4/commits/abc", map[string]any{"sha": "abc"})

	doc, err := p.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, doc.Meta.Links)
	assert.Empty(t, queue.queued)
}
