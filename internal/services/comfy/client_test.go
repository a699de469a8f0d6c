package comfy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestUploadImage(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "owner.png")
	if err := os.WriteFile(imagePath, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "owner.png" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("unexpected file contents %q", data)
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "owner.png", "subfolder": "uploads"})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	result, err := client.UploadImage(t.Context(), imagePath)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if result.ServerPath() != "uploads/owner.png" {
		t.Fatalf("unexpected server path %q", result.ServerPath())
	}
}

func TestSubmitIncludesAPIKey(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prompt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"prompt_id": "p-123"})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, APIKey: "secret"})
	graph := map[string]any{"1": map[string]any{"class_type": "LoadImage"}}
	promptID, err := client.Submit(t.Context(), graph)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if promptID != "p-123" {
		t.Fatalf("unexpected prompt id %q", promptID)
	}
	extra, ok := gotBody["extra_data"].(map[string]any)
	if !ok || extra["api_key_comfy_org"] != "secret" {
		t.Fatalf("api key not forwarded: %v", gotBody["extra_data"])
	}
	if _, ok := gotBody["prompt"]; !ok {
		t.Fatal("prompt missing from payload")
	}
}

func TestSubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "invalid prompt"}})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	if _, err := client.Submit(t.Context(), map[string]any{}); err == nil {
		t.Fatal("expected error when prompt_id missing")
	}
}

func TestWaitForOutputPollsUntilDone(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"p-1":{"outputs":{"9":{"images":[{"filename":"scene_00001_.png","subfolder":"","type":"output"}]}}}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, PollInterval: time.Millisecond}, WithSleeper(noSleep))
	outputs, err := client.WaitForOutput(t.Context(), "p-1", time.Minute)
	if err != nil {
		t.Fatalf("WaitForOutput: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Filename != "scene_00001_.png" {
		t.Fatalf("unexpected outputs %+v", outputs)
	}
	if outputs[0].Kind != "images" {
		t.Fatalf("unexpected kind %q", outputs[0].Kind)
	}
}

func TestWaitForOutputTimeoutReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, PollInterval: time.Millisecond}, WithSleeper(noSleep))
	outputs, err := client.WaitForOutput(t.Context(), "p-2", 0)
	if err != nil {
		t.Fatalf("WaitForOutput: %v", err)
	}
	if outputs != nil {
		t.Fatalf("expected empty outputs on timeout, got %+v", outputs)
	}
}

func TestHistoryCollectsVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history/p-3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"p-3":{"outputs":{"12":{"videos":[{"filename":"s1_00001_.mp4","subfolder":"video","type":"output"}],"metadata":[{"filename":"ignored"}]}}}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	outputs, err := client.History(t.Context(), "p-3")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}
	if outputs[0].Kind != "videos" || outputs[0].Subfolder != "video" {
		t.Fatalf("unexpected output %+v", outputs[0])
	}
}

func TestDownloadViewEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/view" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("filename") != "a.png" || r.URL.Query().Get("type") != "output" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte("image-data"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out", "a.png")
	client := NewClient(Config{URL: server.URL})
	if err := client.Download(t.Context(), Output{Filename: "a.png"}, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-data" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestDownloadFallsBackToOutputURL(t *testing.T) {
	var fallbackHit atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/outputs/b.mp4", func(w http.ResponseWriter, r *http.Request) {
		fallbackHit.Store(true)
		w.Write([]byte("video-data"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "b.mp4")
	client := NewClient(Config{URL: server.URL, OutputURL: server.URL + "/outputs"})
	if err := client.Download(t.Context(), Output{Filename: "b.mp4"}, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !fallbackHit.Load() {
		t.Fatal("expected fallback URL to be used")
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "video-data" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestDownloadFallbackKeepsSubfolder(t *testing.T) {
	var fallbackHit atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/outputs/video/c.mp4", func(w http.ResponseWriter, r *http.Request) {
		fallbackHit.Store(true)
		w.Write([]byte("video-data"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "c.mp4")
	client := NewClient(Config{URL: server.URL, OutputURL: server.URL + "/outputs"})
	output := Output{Filename: "c.mp4", Subfolder: "video", Type: "output"}
	if err := client.Download(t.Context(), output, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !fallbackHit.Load() {
		t.Fatal("expected subfolder fallback URL to be used")
	}
}
