// Package session defines the memory-video job model, its on-disk directory
// layout, the SQLite-backed registry the CLI operates on, and the advisory
// per-session lock that serializes pipeline stages across processes.
package session
