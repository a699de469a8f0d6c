package generate

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"keepsake/internal/config"
	"keepsake/internal/logging"
	"keepsake/internal/services/comfy"
	"keepsake/internal/session"
)

// MediaService is the generative-media surface the orchestrator drives. The
// production implementation is *comfy.Client.
type MediaService interface {
	UploadImage(ctx context.Context, path string) (comfy.UploadResult, error)
	Submit(ctx context.Context, graph any) (string, error)
	WaitForOutput(ctx context.Context, promptID string, timeout time.Duration) ([]comfy.Output, error)
	Download(ctx context.Context, output comfy.Output, destPath string) error
}

// Orchestrator runs the image and video generation stages for a session,
// one scene at a time, recording per-scene successes and failures.
type Orchestrator struct {
	cfg     *config.Config
	service MediaService
	logger  *slog.Logger
	seedFn  func() int64
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithSeedFunc overrides sampler seed generation (useful for tests).
func WithSeedFunc(fn func() int64) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.seedFn = fn
		}
	}
}

// NewOrchestrator constructs an orchestrator. A nil logger discards output.
func NewOrchestrator(cfg *config.Config, service MediaService, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:     cfg,
		service: service,
		logger:  logger.With(logging.FieldComponent, "generate"),
		seedFn:  func() int64 { return rand.Int64N(1 << 62) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) imageTimeout() time.Duration {
	return time.Duration(o.cfg.Comfy.ImageTimeoutSeconds) * time.Second
}

func (o *Orchestrator) videoTimeout() time.Duration {
	return time.Duration(o.cfg.Comfy.VideoTimeoutSeconds) * time.Second
}

func sceneLogger(logger *slog.Logger, sceneID string) *slog.Logger {
	return logger.With(logging.FieldSceneID, sceneID)
}

// paths is a convenience for stage methods.
func (o *Orchestrator) paths(sessionID string) session.Paths {
	return session.NewPaths(o.cfg.Paths.SessionsDir, sessionID)
}
