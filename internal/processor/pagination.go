package processor

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/thep200/github-graph-crawler/internal/policy"
	"github.com/thep200/github-graph-crawler/internal/request"
)

// enqueuePages reads the Link response header and bulk-pushes the remaining
// pages, current+1 through last, at soon priority. The page requests share
// the parent's type and context; an unparseable header means no next page.
func (p *Processor) enqueuePages(ctx context.Context, req *request.Request) {
	if req.Response == nil || req.Crawler == nil {
		return
	}
	header := req.Response.Header.Get("Link")
	if header == "" {
		return
	}

	links := parseLinkHeader(header)
	nextUrl, ok := links["next"]
	if !ok {
		return
	}

	nextPage, err := pageOf(nextUrl)
	if err != nil || nextPage < 1 {
		p.Logger.Warn(ctx, "Unparseable Link header for %s, skipping pagination: %q", req.Url, header)
		return
	}

	lastPage := nextPage
	if lastUrl, ok := links["last"]; ok {
		if n, err := pageOf(lastUrl); err == nil && n >= nextPage {
			lastPage = n
		}
	}

	pages := make([]*request.Request, 0, lastPage-nextPage+1)
	for page := nextPage; page <= lastPage; page++ {
		pageUrl, err := urlWithPage(req.Url, page)
		if err != nil {
			p.Logger.Warn(ctx, "Cannot derive page url from %s: %v", req.Url, err)
			return
		}
		pages = append(pages, &request.Request{
			Type:    req.Type,
			Url:     pageUrl,
			Context: req.Context,
			Policy:  req.Policy.ChildFor(policy.EdgeCollectionPage),
			Crawler: req.Crawler,
		})
	}

	if err := req.Crawler.Push(ctx, pages, request.PrioritySoon); err != nil {
		p.Logger.Warn(ctx, "Failed to push %d page requests for %s: %v", len(pages), req.Url, err)
	}
}

// parseLinkHeader splits a Link header into rel name to url. Grammar:
// comma-separated `<url>; rel="name"` entries.
func parseLinkHeader(header string) map[string]string {
	links := map[string]string{}
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		target = strings.Trim(target, "<>")
		for _, param := range parts[1:] {
			param = strings.TrimSpace(param)
			if rel, ok := strings.CutPrefix(param, "rel="); ok {
				links[strings.Trim(rel, `"`)] = target
			}
		}
	}
	return links
}

func pageOf(rawUrl string) (int, error) {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Query().Get("page"))
}

// urlWithPage rewrites page and per_page on the url, leaving every other
// query parameter in place. per_page is always forced to 100.
func urlWithPage(rawUrl string, page int) (string, error) {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", "100")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
