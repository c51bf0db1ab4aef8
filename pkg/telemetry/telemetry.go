// Package telemetry tracks in-process gateway counters. No events leave the
// process; the counters surface on the health endpoint.
package telemetry

import "sync"

// Stats is a point-in-time copy of the counters.
type Stats struct {
	Analyses int64            `json:"analyses"`
	Blocked  int64            `json:"blocked"`
	ByStage  map[string]int64 `json:"by_stage"`
}

// Counters accumulates decision outcomes. Safe for concurrent use.
type Counters struct {
	mu       sync.Mutex
	analyses int64
	blocked  int64
	byStage  map[string]int64
}

// New returns empty counters.
func New() *Counters {
	return &Counters{byStage: make(map[string]int64)}
}

// Observe records one decision outcome.
func (c *Counters) Observe(stage string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyses++
	if !allowed {
		c.blocked++
	}
	c.byStage[stage]++
}

// Snapshot copies the current counters.
func (c *Counters) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	byStage := make(map[string]int64, len(c.byStage))
	for k, v := range c.byStage {
		byStage[k] = v
	}
	return Stats{Analyses: c.analyses, Blocked: c.blocked, ByStage: byStage}
}
