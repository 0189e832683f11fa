package router

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/pageops/page"
)

// GetMany resolves addresses sequentially on the blocking path. Results
// arrive in input order; the first failure aborts the batch.
func (r *Router) GetMany(addrs []page.Address) ([]page.Page, error) {
	pages := make([]page.Page, len(addrs))
	for i, addr := range addrs {
		p, err := r.Get(addr)
		if err != nil {
			return nil, err
		}
		pages[i] = p
	}
	return pages, nil
}

// GetManyContext resolves addresses concurrently, one goroutine per address
// bounded by WithMaxConcurrent. Completions are buffered into an
// index-addressed slice, so output order always equals input order no matter
// which resolution finishes first. Any failure fails the whole batch; cache
// writes from successful siblings survive.
func (r *Router) GetManyContext(ctx context.Context, addrs []page.Address) ([]page.Page, error) {
	pages := make([]page.Page, len(addrs))

	g, ctx := errgroup.WithContext(ctx)
	if r.maxInFlight > 0 {
		g.SetLimit(r.maxInFlight)
	}
	for i, addr := range addrs {
		g.Go(func() error {
			p, err := r.GetContext(ctx, addr)
			if err != nil {
				return err
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// GetManyURIs is GetMany over canonical address strings.
func (r *Router) GetManyURIs(uris []string) ([]page.Page, error) {
	addrs, err := parseAll(uris)
	if err != nil {
		return nil, err
	}
	return r.GetMany(addrs)
}

// GetManyURIsContext is GetManyContext over canonical address strings.
func (r *Router) GetManyURIsContext(ctx context.Context, uris []string) ([]page.Page, error) {
	addrs, err := parseAll(uris)
	if err != nil {
		return nil, err
	}
	return r.GetManyContext(ctx, addrs)
}

// parseAll parses every URI up front so a malformed address fails the batch
// before any producer runs.
func parseAll(uris []string) ([]page.Address, error) {
	addrs := make([]page.Address, len(uris))
	for i, uri := range uris {
		addr, err := page.Parse(uri)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return addrs, nil
}
