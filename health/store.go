package health

import (
	"context"
	"time"

	"github.com/jonwraymond/pageops/page"
	"github.com/jonwraymond/pageops/store"
)

// pinger is implemented by stores with a native connectivity probe, such as
// the SQLite store.
type pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker checks the page store. A store with a native Ping is pinged;
// anything else is probed with a lookup of a reserved address, which must
// miss cleanly.
type StoreChecker struct {
	name  string
	store store.Store
	probe page.Address
}

// NewStoreChecker creates a checker for the given page store.
func NewStoreChecker(s store.Store) *StoreChecker {
	probe, _ := page.New("health", "probe", "liveness", 1)
	return &StoreChecker{name: "store", store: s, probe: probe}
}

func (c *StoreChecker) Name() string { return c.name }

// Check probes the store and reports its latency.
func (c *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()

	var err error
	if p, ok := c.store.(pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, _, err = c.store.Get(ctx, c.probe)
	}

	elapsed := time.Since(start)
	if err != nil {
		r := Unhealthy("store unreachable", err)
		r.Duration = elapsed
		return r
	}
	r := Healthy("store reachable")
	r.Duration = elapsed
	return r
}

var _ Checker = (*StoreChecker)(nil)
