package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

// Client talks to the verification service over HTTP and implements
// interfaces.Verifier. All calls are synchronous; nothing polls in the
// background.
type Client struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewClient builds a client for the service at cfg.BaseURL. A nil httpClient
// gets a default with cfg.Timeout applied.
func NewClient(cfg *Config, logger logging.Logger, httpClient *http.Client) (interfaces.Verifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Create component-scoped logger
	componentLogger := logger.With(logging.Field{Key: "component", Value: "api"})

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	componentLogger.Info("created api client",
		logging.Field{Key: "base_url", Value: cfg.BaseURL})

	return &Client{
		cfg:    *cfg,
		client: httpClient,
		logger: componentLogger,
	}, nil
}

// SubmitVerification submits one verification job in global or dev mode.
func (c *Client) SubmitVerification(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("SubmitVerification: nil request")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("SubmitVerification: %w", err)
	}

	c.logger.Info("submitting verification",
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "mode", Value: string(req.EffectiveMode())})

	var out model.VerifyResponse
	present, err := c.doJSON(ctx, http.MethodPost, "/api/v1/verify", req, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// SubmitBatch submits every URL in req as an independent global job and
// reports per-URL outcomes. The request must carry URLs, not URL.
func (c *Client) SubmitBatch(ctx context.Context, req *model.VerifyRequest) (*model.BatchResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("SubmitBatch: nil request")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("SubmitBatch: %w", err)
	}
	if req.EffectiveMode() != model.ModeBatch {
		return nil, fmt.Errorf("SubmitBatch: request has no url list")
	}

	c.logger.Info("submitting batch",
		logging.Field{Key: "urls", Value: len(req.URLs)})

	var out model.BatchResponse
	present, err := c.doJSON(ctx, http.MethodPost, "/api/v1/verify", req, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// GetJob fetches the lifecycle snapshot for a job: status, per-region
// results and progress. Region entries carry status but no vitals.
func (c *Client) GetJob(ctx context.Context, jobID string) (*model.JobSnapshot, error) {
	if jobID == "" {
		return nil, fmt.Errorf("GetJob: empty job id")
	}

	var out model.JobSnapshot
	present, err := c.doJSON(ctx, http.MethodGet, "/api/v1/job/"+url.PathEscape(jobID), nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// GetJobDetails fetches the full snapshot including vitals, state labels and
// screenshot URLs. A 2xx response with an empty or null body means the
// server has nothing yet and yields (nil, nil).
func (c *Client) GetJobDetails(ctx context.Context, jobID string) (*model.JobSnapshot, error) {
	if jobID == "" {
		return nil, fmt.Errorf("GetJobDetails: empty job id")
	}

	var out model.JobSnapshot
	present, err := c.doJSON(ctx, http.MethodGet, "/api/v1/job/"+url.PathEscape(jobID)+"/details", nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// GetStatus fetches service health, the region roster and the caller's
// remaining scan quota.
func (c *Client) GetStatus(ctx context.Context) (*model.StatusResponse, error) {
	var out model.StatusResponse
	present, err := c.doJSON(ctx, http.MethodGet, "/api/v1/status", nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// ListScans fetches a window of past scans from the legacy offset endpoint.
func (c *Client) ListScans(ctx context.Context, limit, offset int) (*model.ScanListResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/scans"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out model.ScanListResponse
	present, err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// QueryHistory fetches one page from the filtered history endpoint. The
// response metadata is authoritative; the server may clamp limit.
func (c *Client) QueryHistory(ctx context.Context, filters model.HistoryFilters, page, limit int) (*model.HistoryResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if filters.Status != "" {
		q.Set("status", filters.Status)
	}
	if filters.Continent != "" {
		q.Set("continent", filters.Continent)
	}
	if filters.URLContains != "" {
		q.Set("url", filters.URLContains)
	}
	if !filters.From.IsZero() {
		q.Set("from", filters.From.UTC().Format(time.RFC3339))
	}
	if !filters.To.IsZero() {
		q.Set("to", filters.To.UTC().Format(time.RFC3339))
	}
	if filters.TeamID != "" {
		q.Set("teamId", filters.TeamID)
	}
	path := "/api/v1/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out model.HistoryResponse
	present, err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() error {
	c.logger.Info("closing api client")
	c.client.CloseIdleConnections()
	return nil
}

// doJSON performs one round trip and decodes a 2xx JSON body into out. The
// returned bool is false when the body was empty or the literal null, which
// callers surface as an absent value rather than an error. GET requests
// never carry a body; body is only encoded for mutating methods.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) (bool, error) {
	if c.cfg.APIKey == "" {
		return false, ErrNoAPIKey
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var bodyReader io.Reader
	if body != nil && method != http.MethodGet {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.cfg.APIKey)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending api request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "path", Value: path})

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return false, &TimeoutError{URL: endpoint, Err: err}
		}
		c.logger.Warn("api request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "path", Value: path},
			logging.Field{Key: "error", Value: err.Error()})
		return false, fmt.Errorf("http do: %w", err)
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, newAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return true, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

// newAPIError turns a non-2xx response into an *APIError, preferring the
// server's own error field over the generic status text.
func newAPIError(status int, raw []byte) *APIError {
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Error != "" {
		return &APIError{StatusCode: status, Message: wire.Error}
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}
