package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keepsake/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the connection settings for a ComfyUI server.
type Config struct {
	URL          string
	APIKey       string
	OutputURL    string
	PollInterval time.Duration
}

// Client talks to a ComfyUI server over its HTTP API: image uploads, prompt
// submission, history polling, and output downloads.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a client for the given server configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			URL:          strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
			APIKey:       strings.TrimSpace(cfg.APIKey),
			OutputURL:    strings.TrimRight(strings.TrimSpace(cfg.OutputURL), "/"),
			PollInterval: cfg.PollInterval,
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		sleeper:    sleepContext,
	}
	if client.cfg.PollInterval <= 0 {
		client.cfg.PollInterval = 2 * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UploadResult identifies an uploaded input image on the server.
type UploadResult struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
}

// ServerPath is the reference string a LoadImage node expects.
func (u UploadResult) ServerPath() string {
	if u.Subfolder != "" {
		return u.Subfolder + "/" + u.Name
	}
	return u.Name
}

// UploadImage posts a local image file to the server's input store.
func (c *Client) UploadImage(ctx context.Context, path string) (UploadResult, error) {
	var result UploadResult
	file, err := os.Open(path)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "open image", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "build form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "copy image", err)
	}
	if err := writer.Close(); err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/upload/image", &buf)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "new request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "upload image", err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, services.Wrap(services.ErrParse, "comfy", "upload", "decode upload response", err)
	}
	if result.Name == "" {
		return result, services.Wrap(services.ErrExternalService, "comfy", "upload", "server returned no image name", nil)
	}
	return result, nil
}

// Submit queues a workflow graph for execution and returns the prompt id.
// The api key, when configured, rides along in extra_data the way the hosted
// node packs expect it.
func (c *Client) Submit(ctx context.Context, graph any) (string, error) {
	payload := map[string]any{"prompt": graph}
	if c.cfg.APIKey != "" {
		payload["extra_data"] = map[string]any{"api_key_comfy_org": c.cfg.APIKey}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrParse, "comfy", "submit", "encode prompt", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/prompt", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "comfy", "submit", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "comfy", "submit", "submit prompt", err)
	}
	var decoded struct {
		PromptID string `json:"prompt_id"`
		Error    any    `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrParse, "comfy", "submit", "decode submit response", err)
	}
	if decoded.PromptID == "" {
		return "", services.Wrap(services.ErrExternalService, "comfy", "submit",
			fmt.Sprintf("server rejected prompt: %s", strings.TrimSpace(string(body))), nil)
	}
	return decoded.PromptID, nil
}

// Output describes a single generated file recorded in the server history.
type Output struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
	Kind      string `json:"-"`
}

// History fetches the recorded outputs for a prompt. An empty slice with a
// nil error means the prompt has not finished yet.
func (c *Client) History(ctx context.Context, promptID string) ([]Output, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "comfy", "history", "new request", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "comfy", "history", "fetch history", err)
	}
	outputs, err := decodeHistoryOutputs(body, promptID)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "comfy", "history", "decode history", err)
	}
	return outputs, nil
}

func decodeHistoryOutputs(body []byte, promptID string) ([]Output, error) {
	var history map[string]struct {
		Outputs map[string]map[string]json.RawMessage `json:"outputs"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, err
	}
	entry, ok := history[promptID]
	if !ok {
		return nil, nil
	}
	var outputs []Output
	for _, node := range entry.Outputs {
		for kind, raw := range node {
			switch kind {
			case "images", "videos", "gifs":
			default:
				continue
			}
			var files []Output
			if err := json.Unmarshal(raw, &files); err != nil {
				continue
			}
			for _, file := range files {
				if file.Filename == "" {
					continue
				}
				file.Kind = kind
				outputs = append(outputs, file)
			}
		}
	}
	return outputs, nil
}

// WaitForOutput polls the history until the prompt produces outputs or the
// timeout elapses. A timeout is reported as an empty result with a nil error
// so callers can record the scene as pending rather than failed.
func (c *Client) WaitForOutput(ctx context.Context, promptID string, timeout time.Duration) ([]Output, error) {
	deadline := time.Now().Add(timeout)
	for {
		outputs, err := c.History(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if len(outputs) > 0 {
			return outputs, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		if err := c.sleeper(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

// Download fetches a generated output to the destination path. It tries the
// /view endpoint first and falls back to the static output URL when one is
// configured.
func (c *Client) Download(ctx context.Context, output Output, destPath string) error {
	viewURL := c.cfg.URL + "/view?" + url.Values{
		"filename":  {output.Filename},
		"subfolder": {output.Subfolder},
		"type":      {outputType(output)},
	}.Encode()

	if err := c.downloadTo(ctx, viewURL, destPath); err != nil {
		if c.cfg.OutputURL == "" {
			return services.Wrap(services.ErrExternalService, "comfy", "download", "fetch output", err)
		}
		fallback := c.cfg.OutputURL + "/" + output.Filename
		if output.Subfolder != "" {
			fallback = c.cfg.OutputURL + "/" + output.Subfolder + "/" + output.Filename
		}
		if fbErr := c.downloadTo(ctx, fallback, destPath); fbErr != nil {
			return services.Wrap(services.ErrExternalService, "comfy", "download", "fetch output",
				errors.Join(err, fbErr))
		}
	}
	return nil
}

func outputType(output Output) string {
	if output.Type != "" {
		return output.Type
	}
	return "output"
}

func (c *Client) downloadTo(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("http %d from %s", resp.StatusCode, rawURL)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".comfy-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, destPath)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
