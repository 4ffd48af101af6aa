// Package finder filters a page of events down to the ones the store has not
// seen. Events have no per-entity url on the API, so the store key is the
// synthetic <repo.url>/events/<id>.
package finder

import (
	"context"
	"fmt"

	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/log"
	"golang.org/x/sync/errgroup"
)

// Event is the slice of an event payload the finder needs: the stable id,
// the owning repo url, and the raw body carried through for the caller.
type Event struct {
	ID      string
	RepoUrl string
	Body    map[string]any
}

// Key is the store key an event is deduplicated under.
func (e Event) Key() string {
	return e.RepoUrl + "/events/" + e.ID
}

type Finder struct {
	Logger log.Logger
	Store  store.Store
}

func NewFinder(logger log.Logger, st store.Store) (*Finder, error) {
	return &Finder{Logger: logger, Store: st}, nil
}

// FindNew returns the input events whose key misses the store, in input
// order. Store lookups fan out concurrently; any store failure bubbles up.
func (f *Finder) FindNew(ctx context.Context, events []Event) ([]Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	seen := make([]bool, len(events))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	for i, event := range events {
		i, event := i, event
		group.Go(func() error {
			doc, err := f.Store.Get(gctx, "", event.Key())
			if err != nil {
				return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			seen[i] = doc != nil
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	fresh := make([]Event, 0, len(events))
	for i, event := range events {
		if !seen[i] {
			fresh = append(fresh, event)
		}
	}

	f.Logger.Debug(ctx, "Event finder kept %d of %d events", len(fresh), len(events))
	return fresh, nil
}
