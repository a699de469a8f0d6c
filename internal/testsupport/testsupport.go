// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"keepsake/internal/config"
)

// NewConfig returns a validated configuration rooted in the test's temp
// directory, with placeholder credentials so validation passes.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Paths.SessionsDir = filepath.Join(root, "sessions")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.InboxDir = filepath.Join(root, "inbox")
	cfg.Paths.WorkflowDir = filepath.Join(root, "workflows")
	cfg.LLM.APIKey = "test-llm-key"
	cfg.Comfy.APIKey = "test-comfy-key"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	// EnsureDirectories only creates the inbox when watch mode is enabled;
	// tests expect the fixture inbox to exist regardless.
	if err := os.MkdirAll(cfg.Paths.InboxDir, 0o755); err != nil {
		t.Fatalf("create inbox: %v", err)
	}
	return &cfg
}

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
