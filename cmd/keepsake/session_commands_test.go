package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	configPath := writeCLIConfig(t)

	audioPath := filepath.Join(t.TempDir(), "reunion.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	out, err := runCLI(t, configPath, "session", "new", "--title", "Reunion", "--audio", audioPath)
	if err != nil {
		t.Fatalf("session new: %v", err)
	}
	requireContains(t, out, "Created session")

	var sessionID string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Created session ") {
			sessionID = strings.TrimPrefix(line, "Created session ")
		}
	}
	if sessionID == "" {
		t.Fatalf("no session id in output:\n%s", out)
	}

	out, err = runCLI(t, configPath, "session", "list")
	if err != nil {
		t.Fatalf("session list: %v", err)
	}
	requireContains(t, out, "Reunion")
	requireContains(t, out, "pending")

	out, err = runCLI(t, configPath, "session", "show", sessionID)
	if err != nil {
		t.Fatalf("session show: %v", err)
	}
	requireContains(t, out, "Status:   pending")
	requireContains(t, out, "[ ] Transcript")

	out, err = runCLI(t, configPath, "session", "remove", sessionID)
	if err != nil {
		t.Fatalf("session remove: %v", err)
	}
	requireContains(t, out, "Removed session")

	out, err = runCLI(t, configPath, "session", "list")
	if err != nil {
		t.Fatalf("session list after remove: %v", err)
	}
	requireContains(t, out, "No sessions.")
}

func TestSessionNewRequiresAudio(t *testing.T) {
	configPath := writeCLIConfig(t)

	if _, err := runCLI(t, configPath, "session", "new", "--title", "No Audio"); err == nil {
		t.Fatal("expected error without --audio")
	}
}

func TestTranscribeUnknownSession(t *testing.T) {
	configPath := writeCLIConfig(t)

	if _, err := runCLI(t, configPath, "transcribe", "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
