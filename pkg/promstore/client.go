package promstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API paths on the remote store.
const (
	pathCatalog         = "/api/v1/label/__name__/values"
	pathQuery           = "/api/v1/query"
	pathDeleteSeries    = "/api/v1/admin/tsdb/delete_series"
	pathCleanTombstones = "/api/v1/admin/tsdb/clean_tombstones"
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// Config contains configuration for the remote store client.
type Config struct {
	// BaseURL is the remote store's base URL, e.g. "http://localhost:9090".
	BaseURL string

	// Timeout is the per-call timeout. Default: 30s.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:9090",
		Timeout: 30 * time.Second,
	}
}

// Client talks to a single Prometheus-compatible remote store instance.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a remote store client with connection pooling and a
// per-call timeout.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: slog.Default().With("component", "promstore"),
	}
}

// apiResponse is the standard Prometheus API envelope.
type apiResponse struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
}

// Catalog fetches all known metric names from the remote store. The
// catalog is fetched fresh on every call; the engine does not cache it.
func (c *Client) Catalog(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "catalog", c.baseURL+pathCatalog)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{Op: "catalog", Cause: fmt.Errorf("decode response: %w", err)}
	}
	if envelope.Status != "success" {
		return nil, &TransportError{Op: "catalog",
			Cause: fmt.Errorf("remote store reported %q: %s", envelope.Status, envelope.Error)}
	}

	var names []string
	if err := json.Unmarshal(envelope.Data, &names); err != nil {
		return nil, &TransportError{Op: "catalog", Cause: fmt.Errorf("decode catalog: %w", err)}
	}

	return names, nil
}

// Query executes an instant query. The engine uses it for connectivity
// checks and counting diagnostics; the raw data payload is returned for
// the caller to interpret.
func (c *Client) Query(ctx context.Context, expr string) (json.RawMessage, error) {
	u := c.baseURL + pathQuery + "?query=" + url.QueryEscape(expr)

	body, err := c.get(ctx, "query", u)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{Op: "query", Cause: fmt.Errorf("decode response: %w", err)}
	}
	if envelope.Status != "success" {
		return nil, &TransportError{Op: "query",
			Cause: fmt.Errorf("remote store reported %q: %s", envelope.Status, envelope.Error)}
	}

	return envelope.Data, nil
}

// CheckConnection probes the remote store with a trivial instant query.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, err := c.Query(ctx, "up")
	return err
}

// DeleteSeries deletes all samples for the given match selector within
// the [start, end] epoch-seconds range. The remote store acknowledges
// with a no-content success status.
func (c *Client) DeleteSeries(ctx context.Context, selector string, start, end int64) error {
	params := url.Values{}
	params.Set("match[]", selector)
	params.Set("start", strconv.FormatInt(start, 10))
	params.Set("end", strconv.FormatInt(end, 10))

	u := c.baseURL + pathDeleteSeries + "?" + params.Encode()

	_, err := c.post(ctx, "delete_series", u)
	return err
}

// CleanTombstones asks the remote store to compact away deleted series.
// Best-effort housekeeping; callers log failures and move on.
func (c *Client) CleanTombstones(ctx context.Context) error {
	_, err := c.post(ctx, "clean_tombstones", c.baseURL+pathCleanTombstones)
	return err
}

// get performs a GET and returns the response body for 2xx responses.
func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, u)
}

// post performs a POST and returns the response body for 2xx responses.
func (c *Client) post(ctx context.Context, op, u string) ([]byte, error) {
	return c.do(ctx, op, http.MethodPost, u)
}

// do performs one HTTP round trip and classifies the outcome.
func (c *Client) do(ctx context.Context, op, method, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Cause: err}
	}

	c.logger.Debug("remote store call", "op", op, "method", method, "url", u)

	resp, err := c.client.Do(req)
	if err != nil {
		// The client's own timeout and context deadlines both surface
		// here; report them as the distinct timeout class.
		if ctx.Err() != nil || isTimeout(err) {
			return nil, &TimeoutError{Op: op, Timeout: c.timeout}
		}
		return nil, &TransportError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := string(body)
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(detail)}
	}

	return body, nil
}

// isTimeout reports whether a transport error was a timeout.
func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }

	for e := err; e != nil; {
		if t, ok := e.(timeouter); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return false
}
