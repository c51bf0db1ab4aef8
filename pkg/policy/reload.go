package policy

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches the policy YAML file and hot-reloads it into a Store.
// A reload that fails validation is logged and discarded; the previous
// snapshot stays active.
type Reloader struct {
	watcher *fsnotify.Watcher
	store   *Store
	path    string
}

// NewReloader creates a file watcher for the policy file at path.
func NewReloader(store *Store, path string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("policy file %q: %w", path, err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, store: store, path: path}, nil
}

// Run watches for file changes and reloads the policy. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[POLICY] watcher error: %v", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		log.Printf("[POLICY] hot-reload rejected, keeping active policy: %v", err)
		return
	}
	rev := r.store.Swap(cfg)
	log.Printf("[POLICY] hot-reload: policy reloaded (revision %d)", rev)
}
