// Package config loads, normalizes, and validates the TOML configuration that
// drives the Keepsake pipeline: session directories, collaborator endpoints,
// polling and timeout windows, and assembly parameters.
package config
