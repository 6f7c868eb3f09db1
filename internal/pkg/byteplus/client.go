package byteplus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Task status values reported by the Ark content-generation API.
const (
	TaskQueued    = "queued"
	TaskRunning   = "running"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
)

var (
	// ErrUnavailable marks transport-level failures (timeout, connection refused).
	// Callers treat these as transient and retry on the next poll tick.
	ErrUnavailable = errors.New("byteplus unavailable")

	// ErrRejected marks requests the provider refused (4xx).
	ErrRejected = errors.New("byteplus rejected request")
)

// Client is an HTTP client for the BytePlus Ark content-generation task API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// TaskRequest describes one generation submission.
type TaskRequest struct {
	Prompt      string
	Resolution  string // hd | fhd | 4k
	Duration    int    // seconds
	Ratio       string // e.g. 16:9
	CameraFixed bool
}

// TaskStatus is the provider's view of an outstanding task.
type TaskStatus struct {
	ID           string
	Status       string
	VideoURL     string
	LastFrameURL string
	Duration     int // seconds, populated on success
	ErrorMessage string
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type createTaskRequest struct {
	Model           string        `json:"model"`
	Content         []contentItem `json:"content"`
	ReturnLastFrame bool          `json:"return_last_frame"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

type taskResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Content struct {
		VideoURL     string `json:"video_url"`
		LastFrameURL string `json:"last_frame_url"`
	} `json:"content"`
	Usage struct {
		Duration int `json:"duration"`
	} `json:"usage"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a new Ark task API client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// commandText serializes render parameters into the provider's text-command
// format appended to the prompt.
func (r TaskRequest) commandText() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Prompt))

	b.WriteString(" --resolution ")
	b.WriteString(arkResolution(r.Resolution))

	duration := r.Duration
	if duration <= 0 {
		duration = 10
	}
	fmt.Fprintf(&b, " --duration %d", duration)

	if r.Ratio != "" {
		b.WriteString(" --ratio ")
		b.WriteString(r.Ratio)
	}
	if r.CameraFixed {
		b.WriteString(" --camerafixed true")
	}

	return b.String()
}

func arkResolution(resolution string) string {
	switch resolution {
	case "fhd":
		return "1080p"
	case "4k":
		return "2160p"
	default:
		return "720p"
	}
}

// SubmitTask submits a generation request and returns the provider task id.
func (c *Client) SubmitTask(ctx context.Context, req TaskRequest) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("byteplus config error: api key is empty")
	}

	payload, err := json.Marshal(createTaskRequest{
		Model:           c.model,
		Content:         []contentItem{{Type: "text", Text: req.commandText()}},
		ReturnLastFrame: true,
	})
	if err != nil {
		return "", fmt.Errorf("byteplus submit request error: %w", err)
	}

	var out createTaskResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v3/contents/generations/tasks", payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("byteplus submit: empty task id in response")
	}

	return out.ID, nil
}

// GetTask queries the status of a submitted task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskStatus, error) {
	if taskID == "" {
		return nil, fmt.Errorf("byteplus query error: task id is empty")
	}

	var out taskResponse
	path := "/api/v3/contents/generations/tasks/" + url.PathEscape(taskID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &TaskStatus{
		ID:           out.ID,
		Status:       out.Status,
		VideoURL:     out.Content.VideoURL,
		LastFrameURL: out.Content.LastFrameURL,
		Duration:     out.Usage.Duration,
		ErrorMessage: out.Error.Message,
	}, nil
}

// Download fetches generated media from the signed URL the provider returned.
// The caller owns the returned body.
func (c *Client) Download(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("byteplus download request error: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyRequestError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: download status=%d", ErrUnavailable, resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("byteplus request error: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("byteplus response decode error: %w", err)
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status=%d body=%s", ErrRejected, resp.StatusCode, truncate(raw, 512))
	default:
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, truncate(raw, 512))
	}
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: timeout: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
