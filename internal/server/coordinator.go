package server

import (
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// EnrichResult is what every caller joined on one enrichment key
// eventually receives. Shared reports whether the result was computed
// by another caller's in-flight computation.
type EnrichResult struct {
	Report *geosim.ResolutionReport
	Err    error
	Shared bool
}

// Coordinator de-duplicates in-flight enrichment computations within
// this process. Enrichment is costed and non-idempotent, so at most
// one computation may run per key at any time; every concurrent caller
// joins the same eventual result. The registry entry is removed on
// every outcome — success, failure, or abandonment — so a retry after
// a failure starts fresh, and a failure is never cached as a result.
type Coordinator struct {
	group singleflight.Group
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// CoordKey builds the de-duplication key. The force flag is part of
// the key: a cache-busting request must never be satisfied by a
// non-forced computation already in flight, and vice versa.
func CoordKey(gameID string, turn int, force bool) string {
	return fmt.Sprintf("%s|%d|%t", gameID, turn, force)
}

// Join registers fn under key if no computation is in flight, or joins
// the existing one. The returned channel delivers exactly one result.
// fn runs to completion even if every caller abandons the channel, so
// a computed report is never half-applied.
func (c *Coordinator) Join(key string, fn func() (*geosim.ResolutionReport, error)) <-chan EnrichResult {
	out := make(chan EnrichResult, 1)
	ch := c.group.DoChan(key, func() (any, error) {
		return fn()
	})
	go func() {
		res := <-ch
		var report *geosim.ResolutionReport
		if res.Val != nil {
			report = res.Val.(*geosim.ResolutionReport)
		}
		out <- EnrichResult{Report: report, Err: res.Err, Shared: res.Shared}
	}()
	return out
}
