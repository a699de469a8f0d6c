package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	configPath := writeCLIConfig(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, configPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, configPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
