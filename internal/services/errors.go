package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks missing or inconsistent session inputs (no scenes
	// file, no owner crop, bad participant labels).
	ErrValidation = errors.New("validation error")
	// ErrParse marks a collaborator response that does not match the expected
	// structure.
	ErrParse = errors.New("parse error")
	// ErrExternalService marks a non-success response from a collaborator call.
	ErrExternalService = errors.New("external service error")
	// ErrTimeout marks a polling window that elapsed without output.
	ErrTimeout = errors.New("timeout")
	// ErrMediaTool marks a non-zero exit from ffmpeg/ffprobe during clip
	// synthesis or concatenation.
	ErrMediaTool = errors.New("media tool error")
	// ErrConfiguration marks unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageFatal reports whether an error should abort the whole stage instead of
// being recorded against a single scene. Setup problems (bad inputs, bad
// config) are fatal; collaborator failures and timeouts are per-scene.
func StageFatal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
