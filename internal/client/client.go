// Package client talks to a running docqa server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/docqa/internal/api"
	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/retriever"
)

// DefaultBaseURL is where the server listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8000"

// StatusError is a non-success response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name string
	Data io.Reader
}

// Client is a docqa HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the server at baseURL. A nil httpClient uses a
// client with a five minute timeout, since uploads wait for indexing.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Upload sends files as one multipart batch. A 422 response still carries
// the per-file failures and is returned without error.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (*api.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, statusError(resp)
	}
	var out api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out, nil
}

// UploadPaths reads the named files and uploads them as one batch.
func (c *Client) UploadPaths(ctx context.Context, paths ...string) (*api.UploadResponse, error) {
	files := make([]UploadFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, UploadFile{Name: filepath.Base(p), Data: bytes.NewReader(data)})
	}
	return c.Upload(ctx, files)
}

// Documents lists uploaded documents. Any failure degrades to an empty list.
func (c *Client) Documents(ctx context.Context) []catalog.Document {
	var out api.DocumentsResponse
	if err := c.getJSON(ctx, "/documents", &out); err != nil {
		c.logger.Warn("Listing documents failed", "error", err)
		return []catalog.Document{}
	}
	if out.Documents == nil {
		return []catalog.Document{}
	}
	return out.Documents
}

// Query asks a question across all documents except exclude. Transport
// failures degrade to an empty response; rejections by the server (such as
// an empty query) are returned as a *StatusError.
func (c *Client) Query(ctx context.Context, query string, exclude []string) (*api.QueryResponse, error) {
	empty := &api.QueryResponse{Answers: []retriever.Item{}}

	payload, err := json.Marshal(api.QueryRequest{Query: query, ExcludeDocs: exclude})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Query failed", "error", err)
		return empty, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var out api.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("Decoding query response failed", "error", err)
		return empty, nil
	}
	if out.Answers == nil {
		out.Answers = []retriever.Item{}
	}
	return &out, nil
}

// Health reports the server's health payload.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func statusError(resp *http.Response) error {
	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
