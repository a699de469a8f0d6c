package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateComfy(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateComfy() error {
	if err := ensurePositiveMap(map[string]int{
		"comfy.poll_interval_seconds": c.Comfy.PollIntervalSeconds,
		"comfy.image_timeout_seconds": c.Comfy.ImageTimeoutSeconds,
		"comfy.video_timeout_seconds": c.Comfy.VideoTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Comfy.ImageTimeoutSeconds < c.Comfy.PollIntervalSeconds {
		return errors.New("comfy.image_timeout_seconds must not be smaller than comfy.poll_interval_seconds")
	}
	if c.Comfy.VideoTimeoutSeconds < c.Comfy.PollIntervalSeconds {
		return errors.New("comfy.video_timeout_seconds must not be smaller than comfy.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case "whisper", "gemini":
		return nil
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q (expected whisper or gemini)", c.Transcription.Backend)
	}
}

func (c *Config) validateAssembly() error {
	if c.Assembly.ZoomEnd < c.Assembly.ZoomStart {
		return errors.New("assembly.zoom_end must not be smaller than assembly.zoom_start")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
