package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"keepsake/internal/config"
	"keepsake/internal/logging"
	"keepsake/internal/services"
)

const geminiPrompt = "이 오디오는 여러 사람이 나누는 대화 녹음입니다. " +
	"전체 대화를 들리는 그대로 받아쓰기 해주세요. 요약하거나 해석하지 말고, " +
	"말한 내용만 순서대로 출력하세요."

// GeminiService transcribes audio through the Gemini API by sending the
// recording inline with a dictation instruction.
type GeminiService struct {
	cfg       *config.Config
	logger    *slog.Logger
	newClient func(ctx context.Context, apiKey string) (geminiModel, error)
}

// geminiModel is the narrow surface of the genai client this service uses.
type geminiModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content) (string, error)
}

type genaiModel struct {
	client *genai.Client
}

func (m genaiModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	result, err := m.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response")
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// NewGeminiService creates the Gemini backend. A nil logger discards output.
func NewGeminiService(cfg *config.Config, logger *slog.Logger) *GeminiService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GeminiService{
		cfg:    cfg,
		logger: logger.With(logging.FieldComponent, "transcribe"),
		newClient: func(ctx context.Context, apiKey string) (geminiModel, error) {
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  apiKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, err
			}
			return genaiModel{client: client}, nil
		},
	}
}

// WithClientFactory sets a custom client factory (for testing).
func (s *GeminiService) WithClientFactory(factory func(ctx context.Context, apiKey string) (geminiModel, error)) {
	s.newClient = factory
}

// Transcribe sends the audio inline and returns the dictated text.
func (s *GeminiService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if s.cfg.Transcription.GeminiAPIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "transcribe", "gemini", "gemini api key not configured", nil)
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "gemini", "read audio file", err)
	}

	client, err := s.newClient(ctx, s.cfg.Transcription.GeminiAPIKey)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "gemini", "create client", err)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: audioMIMEType(audioPath), Data: data}},
			{Text: geminiPrompt},
		},
	}}

	s.logger.InfoContext(ctx, "transcribing with gemini", "model", s.cfg.Transcription.GeminiModel, "bytes", len(data))
	text, err := client.GenerateContent(ctx, s.cfg.Transcription.GeminiModel, contents)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "gemini", "generate content", err)
	}
	transcript := strings.TrimSpace(text)
	if transcript == "" {
		return "", services.Wrap(services.ErrExternalService, "transcribe", "gemini", "empty transcript", nil)
	}
	return transcript, nil
}

func audioMIMEType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return "audio/mpeg"
}
