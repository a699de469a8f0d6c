// Package watch monitors the inbox directory and starts a session for each
// recording dropped into it.
package watch
