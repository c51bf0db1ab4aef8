package telemetry

import (
	"sync"
	"testing"
)

func TestObserveAndSnapshot(t *testing.T) {
	c := New()
	c.Observe("fast", false)
	c.Observe("fast", true)
	c.Observe("semantic", true)

	s := c.Snapshot()
	if s.Analyses != 3 {
		t.Errorf("analyses = %d, want 3", s.Analyses)
	}
	if s.Blocked != 1 {
		t.Errorf("blocked = %d, want 1", s.Blocked)
	}
	if s.ByStage["fast"] != 2 || s.ByStage["semantic"] != 1 {
		t.Errorf("by_stage = %v", s.ByStage)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.Observe("fast", true)

	s := c.Snapshot()
	s.ByStage["fast"] = 99

	if got := c.Snapshot().ByStage["fast"]; got != 1 {
		t.Errorf("snapshot mutation leaked back, count = %d", got)
	}
}

func TestConcurrentObserve(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe("fast", j%2 == 0)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Analyses != 1000 {
		t.Errorf("analyses = %d, want 1000", s.Analyses)
	}
	if s.Blocked != 500 {
		t.Errorf("blocked = %d, want 500", s.Blocked)
	}
}
