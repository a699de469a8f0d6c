package services_test

import (
	"errors"
	"strings"
	"testing"

	"keepsake/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "generate", "submit", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generate", "submit", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToExternal(t *testing.T) {
	err := services.Wrap(nil, "comfy", "upload", "", errors.New("io"))
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got %v", err)
	}
}

func TestStageFatal(t *testing.T) {
	fatal := services.Wrap(services.ErrValidation, "generate", "prepare", "no owner crop", nil)
	if !services.StageFatal(fatal) {
		t.Fatalf("expected validation error to be stage fatal: %v", fatal)
	}
	perScene := services.Wrap(services.ErrTimeout, "generate", "poll", "no output", nil)
	if services.StageFatal(perScene) {
		t.Fatalf("expected timeout to be per-scene: %v", perScene)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := t.Context()
	ctx = services.WithSessionID(ctx, "abc-123")
	ctx = services.WithStage(ctx, "image")
	ctx = services.WithSceneID(ctx, "12_01")

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "abc-123" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "image" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if scene, ok := services.SceneIDFromContext(ctx); !ok || scene != "12_01" {
		t.Fatalf("unexpected scene id: %v %v", scene, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithStage(t.Context(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
