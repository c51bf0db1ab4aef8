package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForRevision(t *testing.T, s *Store, want uint64) bool {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Revision() >= want {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func TestReloaderSwapsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("max_content_length: 40000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(cfg)

	r, err := NewReloader(store, path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	if err := os.WriteFile(path, []byte("max_content_length: 12345\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !waitForRevision(t, store, 2) {
		t.Fatal("policy revision never advanced after file write")
	}
	if got := store.Snapshot().MaxContentLength; got != 12345 {
		t.Errorf("max content length = %d, want 12345", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestReloaderKeepsPolicyOnInvalidWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("max_content_length: 40000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(cfg)

	r, err := NewReloader(store, path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// Thresholds out of order: reload must be rejected.
	bad := "content_classification:\n  highly_confidential: 10\n  confidential: 50\n  internal: 31\n"
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}

	// Give the debounced reload time to fire, then confirm nothing changed.
	time.Sleep(1200 * time.Millisecond)
	if store.Revision() != 1 {
		t.Errorf("revision = %d, want 1 (invalid policy must not install)", store.Revision())
	}
	if got := store.Snapshot().MaxContentLength; got != 40000 {
		t.Errorf("max content length = %d, want 40000", got)
	}
}

func TestNewReloaderMissingFile(t *testing.T) {
	if _, err := NewReloader(NewStore(Default()), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
