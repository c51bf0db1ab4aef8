package policy

import (
	"sync/atomic"
)

// Store publishes the active policy snapshot. Readers call Snapshot on every
// analysis so a reload never tears a request between two policies; the
// revision counter feeds cache keys so stale decisions expire on reload.
type Store struct {
	cfg atomic.Pointer[PolicyConfig]
	rev atomic.Uint64
}

// NewStore returns a Store seeded with cfg at revision 1.
func NewStore(cfg *PolicyConfig) *Store {
	s := &Store{}
	s.cfg.Store(cfg)
	s.rev.Store(1)
	return s
}

// Snapshot returns the current policy. The returned config must be treated
// as read-only.
func (s *Store) Snapshot() *PolicyConfig {
	return s.cfg.Load()
}

// Revision returns the monotonically increasing policy revision.
func (s *Store) Revision() uint64 {
	return s.rev.Load()
}

// Swap atomically installs a new policy and bumps the revision. The caller
// must have validated cfg.
func (s *Store) Swap(cfg *PolicyConfig) uint64 {
	s.cfg.Store(cfg)
	return s.rev.Add(1)
}
