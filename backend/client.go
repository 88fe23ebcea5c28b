// Package backend is the HTTP client for the sheet-ingestion backend.
//
// It covers the endpoints the upload controller consumes (clients, upload,
// status) plus the diagnostic endpoints exposed by the backend (health,
// client connection test, column mapping). Non-2xx responses are returned
// as *StatusError; transport failures wrap ErrUnreachable.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/justapithecus/sheetdrop/iox"
	"github.com/justapithecus/sheetdrop/types"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:5000"

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// Endpoint paths.
const (
	PathClients        = "/api/clients"
	PathUpload         = "/api/upload"
	PathStatus         = "/api/status"
	PathHealth         = "/api/health"
	PathTestConnection = "/api/test-client-connection"
	PathColumnMapping  = "/api/column-mapping"
)

// maxErrorBody bounds how much of an error response body is decoded.
const maxErrorBody = 64 << 10

// ErrUnreachable indicates the backend could not be reached at all
// (connection refused, DNS failure, timeout before a response).
var ErrUnreachable = errors.New("backend unreachable")

// StatusError is returned for non-2xx HTTP responses.
// Message carries the backend-supplied "error" (or "message") text when present.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:5000 (required).
	BaseURL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Client talks to the backend over HTTP.
type Client struct {
	config Config
	base   *url.URL
	client *http.Client
}

// New creates a backend client from the given config.
// Returns an error if the base URL is empty or not absolute.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend client requires a base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend client: invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend client: base URL %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config: cfg,
		base:   base,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListClients returns the clients the backend can upload to.
func (c *Client) ListClients(ctx context.Context) (types.ClientList, error) {
	var resp types.ClientsResponse
	if err := c.getJSON(ctx, PathClients, &resp); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	if resp.Clients == nil {
		return types.ClientList{}, nil
	}
	return resp.Clients, nil
}

// Submit uploads the file for the given client as multipart form data
// (fields "file" and "client_id") and returns the processing id.
func (c *Client) Submit(ctx context.Context, clientID string, file types.FileDescriptor) (string, error) {
	if file.Open == nil {
		return "", fmt.Errorf("submit %s: file has no content", file.Name)
	}
	content, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("submit %s: open: %w", file.Name, err)
	}
	defer iox.DiscardClose(content)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = types.CSVMediaType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("submit %s: create part: %w", file.Name, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("submit %s: read: %w", file.Name, err)
	}
	if err := mw.WriteField("client_id", clientID); err != nil {
		return "", fmt.Errorf("submit %s: write client_id: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("submit %s: close multipart: %w", file.Name, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathUpload, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ack types.SubmitResponse
	if err := c.do(req, &ack); err != nil {
		return "", err
	}
	if ack.ProcessingID == "" {
		return "", errors.New("submit: acknowledgment is missing processing_id")
	}
	return ack.ProcessingID, nil
}

// Status fetches the processing status for a processing id.
func (c *Client) Status(ctx context.Context, processingID string) (*types.StatusResponse, error) {
	var resp types.StatusResponse
	if err := c.getJSON(ctx, PathStatus+"/"+url.PathEscape(processingID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health checks whether the backend is running.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, PathHealth, &resp); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &resp, nil
}

// ConnectionResponse is the body of GET /api/test-client-connection/{id}.
type ConnectionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TestClientConnection asks the backend to verify it can reach the client's sheet.
func (c *Client) TestClientConnection(ctx context.Context, clientID string) (*ConnectionResponse, error) {
	var resp ConnectionResponse
	if err := c.getJSON(ctx, PathTestConnection+"/"+url.PathEscape(clientID), &resp); err != nil {
		return nil, fmt.Errorf("test connection %s: %w", clientID, err)
	}
	return &resp, nil
}

// ColumnMapping describes how CSV columns map onto a client's sheet.
type ColumnMapping struct {
	ClientName             string            `json:"client_name" yaml:"client_name"`
	SheetName              string            `json:"sheet_name" yaml:"sheet_name"`
	SheetHeaders           []string          `json:"sheet_headers" yaml:"sheet_headers"`
	CSVMapping             map[string]string `json:"csv_mapping" yaml:"csv_mapping"`
	DuplicateCheckFields   []string          `json:"duplicate_check_fields" yaml:"duplicate_check_fields"`
	DuplicateHandling      string            `json:"duplicate_handling" yaml:"duplicate_handling"`
	DuplicateMinMatchScore float64           `json:"duplicate_min_match_score" yaml:"duplicate_min_match_score"`
}

// ColumnMapping fetches the column mapping for a client.
func (c *Client) ColumnMapping(ctx context.Context, clientID string) (*ColumnMapping, error) {
	var envelope struct {
		Status string         `json:"status"`
		Data   *ColumnMapping `json:"data"`
	}
	if err := c.getJSON(ctx, PathColumnMapping+"/"+url.PathEscape(clientID), &envelope); err != nil {
		return nil, fmt.Errorf("column mapping %s: %w", clientID, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("column mapping %s: response has no data", clientID)
	}
	return envelope.Data, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do performs the request and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		// A canceled caller context is not an unreachable backend.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
		}
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, req.Method, req.URL.Path, err)
	}
	defer iox.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// decodeStatusError builds a StatusError, taking the message from an
// {"error": ...} body, falling back to {"message": ...}.
func decodeStatusError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body)

	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
