package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type syncRecorder struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan []string
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{ch: make(chan []string, 10)}
}

func (r *syncRecorder) fn(ctx context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.ch <- changed
	return nil
}

func (r *syncRecorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case changed := <-r.ch:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync call")
		return nil
	}
}

func testConfig() *Config {
	return &Config{
		DebounceInterval: 50 * time.Millisecond,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func startWatcher(t *testing.T, dir string, rec *syncRecorder) context.CancelFunc {
	t.Helper()
	w, err := New(dir, rec.fn, testConfig())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(ctx); err != nil {
			t.Errorf("watcher exited: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return cancel
}

func TestWatcher_RunsInitialSync(t *testing.T) {
	rec := newSyncRecorder()
	startWatcher(t, t.TempDir(), rec)

	if changed := rec.wait(t); changed != nil {
		t.Errorf("initial sync changed = %v, want nil", changed)
	}
}

func TestWatcher_SyncsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	rec := newSyncRecorder()
	startWatcher(t, dir, rec)
	rec.wait(t) // initial sync

	if err := os.WriteFile(filepath.Join(dir, "resources.json"), []byte("[]\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	changed := rec.wait(t)
	if len(changed) != 1 || changed[0] != "resources.json" {
		t.Errorf("changed = %v, want [resources.json]", changed)
	}
}

func TestWatcher_IgnoresHashStoreAndNonJSON(t *testing.T) {
	dir := t.TempDir()
	rec := newSyncRecorder()
	startWatcher(t, dir, rec)
	rec.wait(t) // initial sync

	if err := os.WriteFile(filepath.Join(dir, "hashes.json"), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write hashes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi\n"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	select {
	case changed := <-rec.ch:
		t.Errorf("unexpected sync for %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_BatchesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	rec := newSyncRecorder()
	startWatcher(t, dir, rec)
	rec.wait(t) // initial sync

	for _, f := range []string{"codes.json", "resources.json"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("[]\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		for _, f := range rec.wait(t) {
			seen[f] = true
		}
	}
	if !seen["codes.json"] || !seen["resources.json"] {
		t.Errorf("seen = %v, want both files", seen)
	}
}

func TestWatcher_RejectsBadArguments(t *testing.T) {
	if _, err := New("", func(context.Context, []string) error { return nil }, nil); err == nil {
		t.Error("expected error for empty dataDir")
	}
	if _, err := New(t.TempDir(), nil, nil); err == nil {
		t.Error("expected error for nil syncFn")
	}
}
