package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	stageKey     contextKey = "stage"
	sceneIDKey   contextKey = "scene_id"
)

// WithSessionID annotates context with the session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSceneID annotates context with the scene currently being processed.
func WithSceneID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sceneIDKey, id)
}

// SceneIDFromContext extracts the scene identifier if present.
func SceneIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sceneIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
