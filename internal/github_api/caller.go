// Package githubapi is the fetch layer. The caller performs one conditional
// GET per crawl request: token auth when configured, If-None-Match from the
// stored etag, rate limit headers honored, and JSON array responses wrapped
// as {"elements": [...]} so collection pages have a uniform body.

package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/limiter"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

type Caller struct {
	Logger  log.Logger
	Config  *cfg.Config
	limiter *limiter.RateLimiter
	client  *http.Client
}

// Result is what a single fetch hands back to the crawl loop.
type Result struct {
	Body        map[string]any
	StatusCode  int
	Etag        string
	Header      http.Header
	FetchedAt   time.Time
	NotModified bool
}

func NewCaller(logger log.Logger, config *cfg.Config) *Caller {
	return &Caller{
		Logger:  logger,
		Config:  config,
		limiter: limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond, time.Duration(config.GithubApi.ThrottleDelay)*time.Millisecond),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// HandleRateLimit inspects the rate limit headers and reports whether the
// caller must back off, with the wait derived from X-RateLimit-Reset.
func (c *Caller) HandleRateLimit(ctx context.Context, resp *http.Response) (bool, error) {
	rateRemaining := resp.Header.Get("X-RateLimit-Remaining")

	if resp.StatusCode == http.StatusForbidden && rateRemaining == "0" {
		resetTimeStr := resp.Header.Get("X-RateLimit-Reset")
		resetTimeInt, err := strconv.ParseInt(resetTimeStr, 10, 64)

		if err != nil {
			waitTime := time.Duration(c.Config.GithubApi.RateLimitResetMin) * time.Minute
			c.Logger.Warn(ctx, "Rate limit hit, reset time unknown, waiting %v", waitTime)
			return true, fmt.Errorf("api rate limited, waiting %v", waitTime)
		}

		resetTime := time.Unix(resetTimeInt, 0)
		waitTime := time.Until(resetTime)
		if waitTime < 0 {
			waitTime = time.Duration(c.Config.GithubApi.RateLimitResetMin) * time.Minute
		}

		c.Logger.Warn(ctx, "Rate limit hit, waiting %v until %v",
			waitTime.Round(time.Second), resetTime.Format(time.RFC3339))

		return true, fmt.Errorf("api rate limited, reset at %v", resetTime.Format(time.RFC3339))
	}

	return false, nil
}

// Fetch performs a conditional GET. A 304 comes back as NotModified with an
// empty body; the crawl loop reuses the stored document in that case.
func (c *Caller) Fetch(ctx context.Context, url, etag string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.Logger.Error(ctx, "Cannot build request for %s: %v", url, err)
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.Config.GithubApi.ApiVersion != "" {
		req.Header.Set("X-GitHub-Api-Version", c.Config.GithubApi.ApiVersion)
	}
	if c.Config.GithubApi.AccessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.Config.GithubApi.AccessToken))
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.Logger.Error(ctx, "Cannot send request to %s: %v", url, err)
		return nil, err
	}
	defer resp.Body.Close()

	isRateLimited, rateLimitErr := c.HandleRateLimit(ctx, resp)
	if isRateLimited {
		return nil, rateLimitErr
	}

	result := &Result{
		StatusCode: resp.StatusCode,
		Etag:       resp.Header.Get("ETag"),
		Header:     resp.Header,
		FetchedAt:  time.Now(),
	}

	if resp.StatusCode == http.StatusNotModified {
		result.NotModified = true
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response from %s: %v", url, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result.Body, err = WrapBody(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot decode response from %s: %w", url, err)
	}

	return result, nil
}

// WrapBody decodes a response body, folding top level arrays into an
// elements wrapper so collection handlers see one shape.
func WrapBody(raw []byte) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		return map[string]any{"elements": v}, nil
	default:
		return map[string]any{"value": v}, nil
	}
}
