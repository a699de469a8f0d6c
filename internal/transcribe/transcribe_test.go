package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/genai"

	"keepsake/internal/services"
	"keepsake/internal/testsupport"
)

func TestWhisperTranscribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	audioPath := filepath.Join(t.TempDir(), "recording.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	var commands [][]string
	service := NewWhisperService(cfg, nil)
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		commands = append(commands, append([]string{name}, args...))
		if name == cfg.Transcription.WhisperBinary {
			outBase := args[indexOf(args, "-of")+1]
			return os.WriteFile(outBase+".txt", []byte("우리 서울에서 만났잖아\n"), 0o644)
		}
		return nil
	})

	text, err := service.Transcribe(t.Context(), audioPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "우리 서울에서 만났잖아" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if len(commands) != 2 {
		t.Fatalf("expected ffmpeg then whisper, got %d commands", len(commands))
	}
	ffmpegArgs := strings.Join(commands[0], " ")
	if !strings.Contains(ffmpegArgs, "-ar 16000") || !strings.Contains(ffmpegArgs, "-ac 1") {
		t.Fatalf("ffmpeg downmix args wrong: %s", ffmpegArgs)
	}
	whisperArgs := strings.Join(commands[1], " ")
	if !strings.Contains(whisperArgs, "-l ko") || !strings.Contains(whisperArgs, "-otxt") {
		t.Fatalf("whisper args wrong: %s", whisperArgs)
	}
}

func TestWhisperMissingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewWhisperService(cfg, nil)
	_, err := service.Transcribe(t.Context(), filepath.Join(t.TempDir(), "missing.m4a"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWhisperCommandFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	audioPath := filepath.Join(t.TempDir(), "recording.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	service := NewWhisperService(cfg, nil)
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	})
	if _, err := service.Transcribe(t.Context(), audioPath); !errors.Is(err, services.ErrMediaTool) {
		t.Fatalf("expected media tool error, got %v", err)
	}
}

type fakeGemini struct {
	text string
	err  error
	got  []*genai.Content
}

func (f *fakeGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	f.got = contents
	return f.text, f.err
}

func TestGeminiTranscribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.GeminiAPIKey = "key"
	audioPath := filepath.Join(t.TempDir(), "recording.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeGemini{text: " 받아쓴 내용 \n"}
	service := NewGeminiService(cfg, nil)
	service.WithClientFactory(func(ctx context.Context, apiKey string) (geminiModel, error) {
		if apiKey != "key" {
			t.Errorf("wrong api key %q", apiKey)
		}
		return fake, nil
	})

	text, err := service.Transcribe(t.Context(), audioPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "받아쓴 내용" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if len(fake.got) != 1 || len(fake.got[0].Parts) != 2 {
		t.Fatalf("unexpected content shape: %+v", fake.got)
	}
	blob := fake.got[0].Parts[0].InlineData
	if blob == nil || string(blob.Data) != "mp3-bytes" || !strings.HasPrefix(blob.MIMEType, "audio/") {
		t.Fatalf("audio not sent inline: %+v", blob)
	}
}

func TestGeminiMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.GeminiAPIKey = ""
	service := NewGeminiService(cfg, nil)
	if _, err := service.Transcribe(t.Context(), "x.mp3"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Backend = "whisper"
	if _, err := NewFromConfig(cfg, nil); err != nil {
		t.Fatalf("whisper backend: %v", err)
	}
	cfg.Transcription.Backend = "gemini"
	if _, err := NewFromConfig(cfg, nil); err != nil {
		t.Fatalf("gemini backend: %v", err)
	}
	cfg.Transcription.Backend = "bogus"
	if _, err := NewFromConfig(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatal("expected configuration error")
	}
}

func indexOf(args []string, flag string) int {
	for i, arg := range args {
		if arg == flag {
			return i
		}
	}
	return -1
}
