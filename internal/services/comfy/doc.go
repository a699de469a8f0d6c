// Package comfy implements the HTTP client for a ComfyUI server: multipart
// image uploads, prompt submission with extra_data api key passthrough,
// history polling, and output downloads with a static-URL fallback.
package comfy
