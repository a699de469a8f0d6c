// Package main hosts the keepsake CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline stage
// runs: session registration, transcription, scene extraction, two-stage media
// generation, and final assembly, plus inbox watching and configuration
// scaffolding. It centralizes configuration resolution, session locking, and
// structured logging setup so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
