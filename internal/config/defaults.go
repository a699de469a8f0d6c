package config

const (
	defaultSessionsDir   = "~/.local/share/keepsake/sessions"
	defaultLogDir        = "~/.local/share/keepsake/logs"
	defaultInboxDir      = "~/.local/share/keepsake/inbox"
	defaultWorkflowDir   = "~/.config/keepsake/workflows"
	defaultLLMBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel      = "google/gemini-3-flash-preview"
	defaultLLMReferer    = "https://github.com/five82/keepsake"
	defaultLLMTitle      = "Keepsake Scene Extractor"
	defaultLLMTimeout    = 60
	defaultComfyURL      = "http://127.0.0.1:8188"
	defaultPollInterval  = 2
	defaultImageTimeout  = 120
	defaultVideoTimeout  = 600
	defaultImageWorkflow = "m2m_image.json"
	defaultVideoWorkflow = "m2m_video.json"
	defaultSTTBackend    = "whisper"
	defaultSTTLanguage   = "ko"
	defaultWhisperBinary = "whisper-cli"
	defaultSTTThreads    = 4
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultIntroSeconds  = 3.0
	defaultZoomStart     = 1.0
	defaultZoomEnd       = 1.2
	defaultWatchParallel = 1
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SessionsDir: defaultSessionsDir,
			LogDir:      defaultLogDir,
			InboxDir:    defaultInboxDir,
			WorkflowDir: defaultWorkflowDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Comfy: Comfy{
			URL:                 defaultComfyURL,
			PollIntervalSeconds: defaultPollInterval,
			ImageTimeoutSeconds: defaultImageTimeout,
			VideoTimeoutSeconds: defaultVideoTimeout,
			ImageWorkflow:       defaultImageWorkflow,
			VideoWorkflow:       defaultVideoWorkflow,
		},
		Transcription: Transcription{
			Backend:       defaultSTTBackend,
			Language:      defaultSTTLanguage,
			WhisperBinary: defaultWhisperBinary,
			Threads:       defaultSTTThreads,
			GeminiModel:   defaultGeminiModel,
		},
		Assembly: Assembly{
			IntroSeconds: defaultIntroSeconds,
			ZoomStart:    defaultZoomStart,
			ZoomEnd:      defaultZoomEnd,
		},
		Watch: Watch{
			MaxConcurrent: defaultWatchParallel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
