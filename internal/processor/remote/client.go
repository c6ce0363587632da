// Package remote drives the external document-processing service
// through its stateful session protocol: start a task, attach staged
// files by path, process with tool parameters, download the result.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

var (
	// ErrMissingCredentials means the service keys are not configured.
	// It is raised before any file is staged.
	ErrMissingCredentials = errors.New("document service credentials are not configured")

	// ErrSessionStart means the service rejected opening a new task.
	ErrSessionStart = errors.New("failed to start document service session")

	// ErrProcessing means the service failed at the attach, process or
	// download step.
	ErrProcessing = errors.New("document service processing failed")
)

// Config carries the service endpoint and the two credential values.
// It is threaded in at construction so the client is testable with
// fake credentials against a fake server.
type Config struct {
	BaseURL   string
	PublicKey string
	SecretKey string
	Timeout   time.Duration
}

// Client is a thin REST client for the document service. It holds no
// per-request state; sessions do.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// auth exchanges the credential pair for a bearer token.
func (c *Client) auth(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"public_key": c.cfg.PublicKey,
		"secret_key": c.cfg.SecretKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// startTask opens a new task of the given type and returns its id.
func (c *Client) startTask(ctx context.Context, token, tool string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/start/"+tool, nil)
	if err != nil {
		return "", fmt.Errorf("create start request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var out struct {
		Task string `json:"task"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Task, nil
}

// uploadFile sends one staged file to the task and returns the name the
// service stored it under.
func (c *Client) uploadFile(ctx context.Context, token, task, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("task", task); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	part, err := mw.CreateFormFile("file", path)
	if err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy staged file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ServerFilename string `json:"server_filename"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.ServerFilename, nil
}

// process submits the tool parameters for the attached files.
func (c *Client) process(ctx context.Context, token, task, tool string, files []attachedFile, params map[string]string) error {
	payload := map[string]interface{}{
		"task":  task,
		"tool":  tool,
		"files": files,
	}
	for k, v := range params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create process request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req, nil)
}

// download retrieves the processed result bytes for the task.
func (c *Client) download(ctx context.Context, token, task string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/download/"+task, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serviceError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return data, nil
}

// doJSON executes the request and decodes a JSON body into out when
// out is non-nil. Non-2xx responses become a service error carrying the
// service's message when the body has one.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// serviceError extracts the service's own message when the error body
// is JSON, falling back to the HTTP status.
func serviceError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return fmt.Errorf("service responded %d: %s", resp.StatusCode, body.Message)
		}
		if body.Error != "" {
			return fmt.Errorf("service responded %d: %s", resp.StatusCode, body.Error)
		}
	}
	return fmt.Errorf("service responded %d", resp.StatusCode)
}
