package processor

import (
	"context"
	"net/url"
	"strconv"

	"github.com/thep200/github-graph-crawler/internal/finder"
	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
	"github.com/thep200/github-graph-crawler/internal/urn"
)

// Entity families whose urns are rooted at urn: rather than nested under a
// qualifier.
var topLevelTypes = map[string]bool{
	"org":  true,
	"user": true,
	"repo": true,
	"team": true,
}

// collection handles one page of any enumerable child collection. It links
// the page's elements, emits the origin back-link for relation pages, and
// queues one child request per element. Further pages are the dispatcher's
// job (Link header fan-out).
func (p *Processor) collection(ctx context.Context, req *request.Request) error {
	spec := collectionSpecs[req.Type]
	qualifier := req.Context.Qualifier
	relation := req.Context.Relation

	base := urn.URN("urn:" + req.Type)
	if relation != nil {
		base = urn.Collection(relation.Qualifier, relation.Type)
	} else if qualifier != "" {
		base = urn.Collection(qualifier, req.Type)
	}
	req.Document.AddResource("self", urn.Qualified(base, "pages", strconv.Itoa(pageNumber(req.Url))))

	if relation != nil {
		req.Document.AddResource("origin", relation.Qualifier)
	}

	if req.Type == "events" {
		return p.eventsPage(ctx, req, base)
	}

	role := policy.EdgeCollectionElement
	if spec.root {
		role = policy.EdgeRootCollectionElement
	}

	hrefs := make([]urn.URN, 0, len(req.Document.Elements()))
	for _, element := range req.Document.Elements() {
		elementUrl, _ := element["url"].(string)
		if elementUrl == "" {
			p.Logger.Warn(ctx, "Skipping %s element with no url at %s", req.Type, req.Url)
			continue
		}

		// Summary listings (contributors, some search shapes) may omit the
		// id; the element still crawls, its urn just waits for the full
		// payload.
		if id := elementID(element); id != "" {
			href := urn.Child(qualifier, spec.elementType, id)
			if topLevelTypes[spec.elementType] {
				href = urn.Entity(spec.elementType, id)
			}
			hrefs = append(hrefs, href)
		}

		p.enqueue(ctx, req, req.ChildWithQualifier(role, spec.elementType, elementUrl, qualifier))
	}
	req.Document.AddResourceList("resources", hrefs)

	return nil
}

// eventsPage runs the page through the event finder first so already stored
// events are neither linked nor requeued. Each fresh event is queued with
// its body attached; events have no url of their own on the API, so the
// synthetic store key doubles as the child url.
func (p *Processor) eventsPage(ctx context.Context, req *request.Request, base urn.URN) error {
	elements := req.Document.Elements()
	events := make([]finder.Event, 0, len(elements))
	for _, element := range elements {
		id := elementID(element)
		repo, _ := element["repo"].(map[string]any)
		repoUrl, _ := repo["url"].(string)
		if id == "" || repoUrl == "" {
			p.Logger.Warn(ctx, "Skipping event with no id or repo url at %s", req.Url)
			continue
		}
		events = append(events, finder.Event{ID: id, RepoUrl: repoUrl, Body: element})
	}

	fresh, err := p.finder.FindNew(ctx, events)
	if err != nil {
		return err
	}

	hrefs := make([]urn.URN, 0, len(fresh))
	for _, event := range fresh {
		eventType, _ := event.Body["type"].(string)
		repo, _ := event.Body["repo"].(map[string]any)
		repoID := elementID(repo)
		if eventType == "" || repoID == "" {
			continue
		}
		hrefs = append(hrefs, urn.Join(urn.Entity("repo", repoID), eventType, event.ID))

		child := req.ChildWithQualifier(policy.EdgeCollectionElement, eventType, event.Key(), req.Context.Qualifier)
		child.Payload = event.Body
		p.enqueue(ctx, req, child)
	}
	req.Document.AddResourceList("resources", hrefs)

	return nil
}

// elementID digs the stable identifier out of a raw element: id, then sha
// for commit-shaped entries.
func elementID(element map[string]any) string {
	if element == nil {
		return ""
	}
	switch v := element["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	if sha, ok := element["sha"].(string); ok {
		return sha
	}
	return ""
}

func pageNumber(rawUrl string) int {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return 1
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
