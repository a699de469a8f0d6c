package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"keepsake/internal/config"
	"keepsake/internal/logging"
	"keepsake/internal/services"
)

// WhisperService shells out to a whisper.cpp CLI binary. The recording is
// first downmixed to the 16kHz mono WAV the models expect.
type WhisperService struct {
	cfg           *config.Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperService creates the whisper backend. A nil logger discards
// output.
func NewWhisperService(cfg *config.Config, logger *slog.Logger) *WhisperService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WhisperService{
		cfg:    cfg,
		logger: logger.With(logging.FieldComponent, "transcribe"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *WhisperService) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Transcribe extracts audio and runs the whisper CLI, returning the plain
// transcript text.
func (s *WhisperService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "whisper", "audio file not found", err)
	}

	workDir, err := os.MkdirTemp("", "keepsake-whisper-*")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "create work directory", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "audio.wav")
	if err := s.run(ctx, s.cfg.FFmpegBinary(), buildExtractArgs(audioPath, wavPath)...); err != nil {
		return "", services.Wrap(services.ErrMediaTool, "transcribe", "whisper", "extract audio", err)
	}

	outBase := filepath.Join(workDir, "transcript")
	args := buildWhisperArgs(s.cfg.Transcription, wavPath, outBase)
	s.logger.InfoContext(ctx, "running whisper", "binary", s.cfg.Transcription.WhisperBinary, "language", s.cfg.Transcription.Language)
	if err := s.run(ctx, s.cfg.Transcription.WhisperBinary, args...); err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "whisper", "run whisper", err)
	}

	text, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "whisper", "read transcript output", err)
	}
	transcript := strings.TrimSpace(string(text))
	if transcript == "" {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "whisper", "whisper produced empty transcript", nil)
	}
	return transcript, nil
}

// buildExtractArgs downmixes the recording to 16kHz mono PCM.
func buildExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-i", source,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dest,
	}
}

func buildWhisperArgs(cfg config.Transcription, wavPath, outBase string) []string {
	args := []string{
		"-m", cfg.WhisperModel,
		"-f", wavPath,
		"-l", cfg.Language,
		"-otxt",
		"-of", outBase,
		"-np",
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}
	return args
}

func (s *WhisperService) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
