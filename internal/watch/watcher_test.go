package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"keepsake/internal/testsupport"
)

func TestWatcherDispatchesAudioDrops(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{}, 1)

	watcher, err := New(cfg, func(ctx context.Context, path string) error {
		mu.Lock()
		handled = append(handled, path)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()
	watcher.SetSettleDelay(0)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go watcher.Run(ctx)

	// An ignored extension first, then a real recording.
	if err := os.WriteFile(filepath.Join(cfg.Paths.InboxDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	audioPath := filepath.Join(cfg.Paths.InboxDir, "recording.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != audioPath {
		t.Fatalf("unexpected handled set: %v", handled)
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	watcher, err := New(cfg, func(ctx context.Context, path string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- watcher.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherRejectsMissingInbox(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.InboxDir = filepath.Join(cfg.Paths.InboxDir, "does-not-exist")
	if _, err := New(cfg, func(ctx context.Context, path string) error { return nil }, nil); err == nil {
		t.Fatal("expected error for missing inbox directory")
	}
}

func TestIsAudioFile(t *testing.T) {
	cases := map[string]bool{
		"a.m4a": true, "b.MP3": true, "c.wav": true,
		"d.txt": false, "e.mp4": false, "f": false,
	}
	for path, want := range cases {
		if got := isAudioFile(path); got != want {
			t.Fatalf("isAudioFile(%q) = %v, want %v", path, got, want)
		}
	}
}
