package harness

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the delay between health probes.
const DefaultPollInterval = 500 * time.Millisecond

// WaitForHealth polls the health endpoint until it answers 200 or the
// context expires. The system under test takes a few seconds to boot and
// seed its database, so callers should allow a generous deadline.
func WaitForHealth(ctx context.Context, healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var lastErr error
	var lastStatus int
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("service %s not ready: %w (last error: %v)", healthURL, ctx.Err(), lastErr)
			}
			return fmt.Errorf("service %s not ready: %w (last status: %d)", healthURL, ctx.Err(), lastStatus)
		case <-time.After(DefaultPollInterval):
		}
	}
}

// WaitForSeedFile blocks until path exists and was written after the given
// boot time. The seeder rewrites the identity directory on every boot, so a
// stale file from a previous run must not be trusted. The wait is
// event-driven where the parent directory exists, with a stat fallback for
// the initial state.
func WaitForSeedFile(ctx context.Context, path string, bootedAfter time.Time) error {
	fresh := func() bool {
		info, err := os.Stat(path)
		return err == nil && info.ModTime().After(bootedAfter)
	}
	if fresh() {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching for %s: %w", path, err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	// The write may have landed between the stat and the watch.
	if fresh() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("seed file %s not written: %w", path, ctx.Err())
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("seed file %s: watcher closed", path)
			}
			if event.Name == path && (event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)) && fresh() {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("seed file %s: watcher closed", path)
			}
			return fmt.Errorf("watching for %s: %w", path, err)
		}
	}
}
