package pixverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for PixVerse client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is provided.
	ErrAPIKeyRequired = errors.New("pixverse: API key is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("pixverse: task ID is required")
	// ErrNoTaskIDReturned is returned when the create response contains no task ID.
	ErrNoTaskIDReturned = errors.New("pixverse: create failed: no task ID returned")
)

// TransportError wraps network-level failures (connection refused, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pixverse: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps failures reported by the PixVerse API itself:
// a non-2xx status, an error payload, or a malformed response body.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pixverse: upstream status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pixverse: upstream: %s", e.Message)
}

// Client defines the interface for interacting with the PixVerse API.
type Client interface {
	// CreateTask submits a new generation task and returns the upstream task ID.
	CreateTask(ctx context.Context, req CreateTaskRequest) (CreateTaskResponse, error)

	// TaskStatus checks the status of a task. Read-only upstream.
	TaskStatus(ctx context.Context, taskID string) (TaskStatusResponse, error)

	// TaskResult fetches the result payload of a completed task.
	TaskResult(ctx context.Context, taskID string) (TaskResultResponse, error)

	// CancelTask asks the upstream to cancel a task, best-effort.
	CancelTask(ctx context.Context, taskID string) (bool, error)
}

// HTTPClient is the HTTP implementation of the PixVerse Client interface.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the PixVerse API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithTimeout bounds each outbound call.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient.Timeout = d
	}
}

// NewClient creates a new PixVerse HTTP client.
// Retry policy belongs to the caller: every call here is a single attempt
// with a bounded timeout.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    "https://app-api.pixverse.ai/openapi/v2",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// CreateTask submits a new generation task and returns the upstream task ID.
func (c *HTTPClient) CreateTask(ctx context.Context, req CreateTaskRequest) (CreateTaskResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return CreateTaskResponse{}, fmt.Errorf("pixverse: marshal request: %w", err)
	}

	var resp CreateTaskResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/video/generate", bodyBytes, &resp); err != nil {
		return CreateTaskResponse{}, err
	}

	if resp.Error != "" {
		return CreateTaskResponse{}, &UpstreamError{Message: resp.Error}
	}
	if resp.TaskID == "" {
		return CreateTaskResponse{}, ErrNoTaskIDReturned
	}

	return resp, nil
}

// TaskStatus checks the status of a task.
func (c *HTTPClient) TaskStatus(ctx context.Context, taskID string) (TaskStatusResponse, error) {
	if taskID == "" {
		return TaskStatusResponse{}, ErrTaskIDRequired
	}

	var resp TaskStatusResponse
	url := fmt.Sprintf("%s/video/status/%s", c.baseURL, taskID)
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return TaskStatusResponse{}, err
	}

	return resp, nil
}

// TaskResult fetches the result payload of a completed task.
func (c *HTTPClient) TaskResult(ctx context.Context, taskID string) (TaskResultResponse, error) {
	if taskID == "" {
		return TaskResultResponse{}, ErrTaskIDRequired
	}

	var resp TaskResultResponse
	url := fmt.Sprintf("%s/video/result/%s", c.baseURL, taskID)
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return TaskResultResponse{}, err
	}

	return resp, nil
}

// CancelTask asks the upstream to cancel a task.
func (c *HTTPClient) CancelTask(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, ErrTaskIDRequired
	}

	var resp cancelResponse
	url := fmt.Sprintf("%s/video/cancel/%s", c.baseURL, taskID)
	if err := c.doRequest(ctx, http.MethodPost, url, nil, &resp); err != nil {
		return false, err
	}

	return resp.Success, nil
}

// doRequest performs a single HTTP request against the PixVerse API.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("pixverse: create request: %w", err)
	}

	req.Header.Set("API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &UpstreamError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
		}
	}

	return nil
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsUpstream reports whether err was reported by the PixVerse API itself.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
