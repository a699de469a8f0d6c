// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and scene IDs for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     stage-fatal setup problems or recordable per-scene errors.
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// uniform across the pipeline.
package services
