// Package llm wraps an OpenRouter-style chat completion API used as the
// text-generation collaborator for scene extraction. Requests are JSON-mode
// with temperature 0; transient failures are retried with bounded exponential
// backoff honoring Retry-After.
package llm
