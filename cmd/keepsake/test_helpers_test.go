package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	path := filepath.Join(root, "config.toml")
	contents := fmt.Sprintf(`[paths]
sessions_dir = %q
log_dir = %q
inbox_dir = %q
workflow_dir = %q
`,
		filepath.Join(root, "sessions"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "inbox"),
		filepath.Join(root, "workflows"),
	)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
