package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"keepsake/internal/config"
	"keepsake/internal/services"
)

// Service turns an audio recording into plain transcript text. Errors are
// fatal for the session's extraction step; no retry contract is offered here.
type Service interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// NewFromConfig selects the backend named in the configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Service, error) {
	switch cfg.Transcription.Backend {
	case "whisper":
		return NewWhisperService(cfg, logger), nil
	case "gemini":
		return NewGeminiService(cfg, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "new",
			fmt.Sprintf("unknown transcription backend %q", cfg.Transcription.Backend), nil)
	}
}
