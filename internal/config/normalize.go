package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeComfy()
	c.normalizeTranscription()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		c.Paths.SessionsDir = defaultSessionsDir
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkflowDir) == "" {
		c.Paths.WorkflowDir = defaultWorkflowDir
	}
	if c.Paths.WorkflowDir, err = expandPath(c.Paths.WorkflowDir); err != nil {
		return fmt.Errorf("paths.workflow_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeComfy() {
	if c.Comfy.APIKey == "" {
		if value, ok := os.LookupEnv("COMFY_API_KEY"); ok {
			c.Comfy.APIKey = strings.TrimSpace(value)
		}
	}
	c.Comfy.URL = strings.TrimRight(strings.TrimSpace(c.Comfy.URL), "/")
	if c.Comfy.URL == "" {
		c.Comfy.URL = defaultComfyURL
	}
	c.Comfy.OutputURL = strings.TrimRight(strings.TrimSpace(c.Comfy.OutputURL), "/")
	if c.Comfy.PollIntervalSeconds <= 0 {
		c.Comfy.PollIntervalSeconds = defaultPollInterval
	}
	if c.Comfy.ImageTimeoutSeconds <= 0 {
		c.Comfy.ImageTimeoutSeconds = defaultImageTimeout
	}
	if c.Comfy.VideoTimeoutSeconds <= 0 {
		c.Comfy.VideoTimeoutSeconds = defaultVideoTimeout
	}
	if strings.TrimSpace(c.Comfy.ImageWorkflow) == "" {
		c.Comfy.ImageWorkflow = defaultImageWorkflow
	}
	if strings.TrimSpace(c.Comfy.VideoWorkflow) == "" {
		c.Comfy.VideoWorkflow = defaultVideoWorkflow
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultSTTBackend
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultSTTLanguage
	}
	if strings.TrimSpace(c.Transcription.WhisperBinary) == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}
	if c.Transcription.Threads <= 0 {
		c.Transcription.Threads = defaultSTTThreads
	}
	if c.Transcription.GeminiAPIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Transcription.GeminiAPIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Transcription.GeminiModel) == "" {
		c.Transcription.GeminiModel = defaultGeminiModel
	}
}

func (c *Config) normalizeAssembly() {
	if c.Assembly.IntroSeconds <= 0 {
		c.Assembly.IntroSeconds = defaultIntroSeconds
	}
	if c.Assembly.ZoomStart <= 0 {
		c.Assembly.ZoomStart = defaultZoomStart
	}
	if c.Assembly.ZoomEnd <= 0 {
		c.Assembly.ZoomEnd = defaultZoomEnd
	}
	if c.Watch.MaxConcurrent <= 0 {
		c.Watch.MaxConcurrent = defaultWatchParallel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
