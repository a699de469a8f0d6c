package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	SessionsDir string `toml:"sessions_dir"`
	LogDir      string `toml:"log_dir"`
	InboxDir    string `toml:"inbox_dir"`
	WorkflowDir string `toml:"workflow_dir"`
}

// LLM contains connection settings for the text-generation collaborator.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Comfy contains connection and timing settings for the generative-media
// service that executes workflow graphs.
type Comfy struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	// OutputURL is an optional static base URL for generated files, used as a
	// download fallback when the view endpoint is unavailable.
	OutputURL           string `toml:"output_url"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	ImageTimeoutSeconds int    `toml:"image_timeout_seconds"`
	VideoTimeoutSeconds int    `toml:"video_timeout_seconds"`
	// ImageWorkflow and VideoWorkflow name the template files under
	// paths.workflow_dir.
	ImageWorkflow string `toml:"image_workflow"`
	VideoWorkflow string `toml:"video_workflow"`
}

// Transcription contains speech-to-text settings.
type Transcription struct {
	// Backend selects the collaborator: "whisper" (local CLI) or "gemini".
	Backend       string `toml:"backend"`
	Language      string `toml:"language"`
	WhisperBinary string `toml:"whisper_binary"`
	WhisperModel  string `toml:"whisper_model"`
	Threads       int    `toml:"threads"`
	GeminiAPIKey  string `toml:"gemini_api_key"`
	GeminiModel   string `toml:"gemini_model"`
}

// Assembly contains settings for intro/outro synthesis and concatenation.
type Assembly struct {
	IntroSeconds float64 `toml:"intro_seconds"`
	ZoomStart    float64 `toml:"zoom_start"`
	ZoomEnd      float64 `toml:"zoom_end"`
}

// Watch contains inbox watcher settings.
type Watch struct {
	Enabled       bool `toml:"enabled"`
	MaxConcurrent int  `toml:"max_concurrent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Keepsake.
//
// Configuration sections by subsystem:
//   - Paths: session, log, inbox, and workflow-template directories
//   - LLM: text-generation collaborator used for scene extraction
//   - Comfy: node-graph generation service (upload, submit, poll, download)
//   - Transcription: speech-to-text backend selection and settings
//   - Assembly: intro/outro zoom parameters
//   - Watch: inbox auto-ingestion
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Comfy         Comfy         `toml:"comfy"`
	Transcription Transcription `toml:"transcription"`
	Assembly      Assembly      `toml:"assembly"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/keepsake/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("keepsake.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SessionsDir, c.Paths.LogDir, c.Paths.WorkflowDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Paths.InboxDir) != "" {
		if err := os.MkdirAll(c.Paths.InboxDir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", c.Paths.InboxDir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for clip synthesis and
// concatenation.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// ImageWorkflowPath returns the absolute path of the image-stage template.
func (c *Config) ImageWorkflowPath() string {
	return filepath.Join(c.Paths.WorkflowDir, c.Comfy.ImageWorkflow)
}

// VideoWorkflowPath returns the absolute path of the video-stage template.
func (c *Config) VideoWorkflowPath() string {
	return filepath.Join(c.Paths.WorkflowDir, c.Comfy.VideoWorkflow)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
