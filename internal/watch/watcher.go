package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"keepsake/internal/config"
	"keepsake/internal/logging"
	"keepsake/internal/services"
)

// Handler processes one audio file dropped into the inbox.
type Handler func(ctx context.Context, audioPath string) error

var audioExtensions = map[string]bool{
	".m4a": true, ".mp3": true, ".wav": true, ".aac": true, ".ogg": true, ".flac": true,
}

// Watcher monitors the inbox directory and hands new recordings to the
// handler, bounded by a concurrency semaphore.
type Watcher struct {
	inboxDir    string
	handler     Handler
	logger      *slog.Logger
	watcher     *fsnotify.Watcher
	semaphore   chan struct{}
	settleDelay time.Duration
	wg          sync.WaitGroup
}

// New creates a watcher over the configured inbox directory.
func New(cfg *config.Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "new", "create fs watcher", err)
	}
	if err := fsWatcher.Add(cfg.Paths.InboxDir); err != nil {
		fsWatcher.Close()
		return nil, services.Wrap(services.ErrConfiguration, "watch", "new",
			fmt.Sprintf("watch inbox %s", cfg.Paths.InboxDir), err)
	}
	maxConcurrent := cfg.Watch.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Watcher{
		inboxDir:    cfg.Paths.InboxDir,
		handler:     handler,
		logger:      logger.With(logging.FieldComponent, "watch"),
		watcher:     fsWatcher,
		semaphore:   make(chan struct{}, maxConcurrent),
		settleDelay: 500 * time.Millisecond,
	}, nil
}

// SetSettleDelay overrides the write-settle delay (for testing).
func (w *Watcher) SetSettleDelay(delay time.Duration) {
	w.settleDelay = delay
}

// Run blocks, dispatching inbox drops until the context is canceled. In-flight
// handlers are waited for on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "watching inbox", "dir", w.inboxDir, "max_concurrent", cap(w.semaphore))

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "waiting for in-flight sessions")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return services.Wrap(services.ErrConfiguration, "watch", "run", "watcher events channel closed", nil)
			}
			if !event.Has(fsnotify.Create) || !isAudioFile(event.Name) {
				continue
			}
			w.logger.InfoContext(ctx, "new recording detected", "path", event.Name)

			// Give the writer a moment to finish before reading.
			time.Sleep(w.settleDelay)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()
					if err := w.handler(ctx, path); err != nil {
						w.logger.ErrorContext(ctx, "inbox session failed", "path", path, "error", err)
					}
				}(event.Name)
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return services.Wrap(services.ErrConfiguration, "watch", "run", "watcher errors channel closed", nil)
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Close stops filesystem monitoring.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}
