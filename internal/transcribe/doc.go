// Package transcribe converts session recordings into transcript text. Two
// backends are available: a local whisper.cpp CLI and the Gemini API with
// inline audio.
package transcribe
