package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/primordia/pkg/evaldto"
	"github.com/valyala/fasthttp"
)

// Client talks to a primordia server. GET requests are retried on transport
// errors and 5xx replies; POST requests are sent once.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithHTTPClient replaces the transport, e.g. to dial an in-memory listener.
func WithHTTPClient(h *fasthttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*evaldto.HealthResponse, error) {
	var out evaldto.HealthResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/healthz", "", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate posts a scenario document (YAML or JSON).
func (c *Client) Evaluate(ctx context.Context, doc []byte) (*evaldto.EvaluateResponse, error) {
	var out evaldto.EvaluateResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/v1/evaluate", "application/yaml", doc, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveState(ctx context.Context, doc []byte) (*evaldto.SaveStateResponse, error) {
	var out evaldto.SaveStateResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/v1/states", "application/yaml", doc, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StateEvaluation(ctx context.Context, stateID string) (*evaldto.EvaluateResponse, error) {
	var out evaldto.EvaluateResponse
	path := "/v1/states/" + url.PathEscape(stateID) + "/evaluation"
	if err := c.do(ctx, fasthttp.MethodGet, path, "", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordGame(ctx context.Context, req evaldto.RecordGameRequest) (*evaldto.RecordGameResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out evaldto.RecordGameResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/v1/games", "application/json", payload, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BookSetup(ctx context.Context, faction, listHash, opponent string) (*evaldto.BookSetupResponse, error) {
	q := url.Values{}
	q.Set("faction", faction)
	q.Set("opponent", opponent)
	if listHash != "" {
		q.Set("list_hash", listHash)
	}
	var out evaldto.BookSetupResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/v1/book?"+q.Encode(), "", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render returns the PNG bytes for a scenario document.
func (c *Client) Render(ctx context.Context, doc []byte, title string) ([]byte, error) {
	path := "/v1/render"
	if title != "" {
		path += "?" + url.Values{"title": {title}}.Encode()
	}
	var out []byte
	if err := c.do(ctx, fasthttp.MethodPost, path, "application/yaml", doc, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends one request. A *[]byte out receives the raw body; any other out
// is decoded as JSON. Non-2xx replies are returned as evaldto.DomainError
// when the server sent one.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if body != nil {
		req.SetBody(body)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = decodeError(status, resp.Body())
			if !shouldRetry(status, lastErr) {
				return lastErr
			}
		} else {
			return decodeBody(resp.Body(), out)
		}

		if attempt == attempts {
			break
		}
		if err := c.sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeBody(body []byte, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*v = append([]byte(nil), body...)
		return nil
	default:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func decodeError(status int, body []byte) error {
	var er evaldto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != "" {
		return er.Error
	}
	return fmt.Errorf("primordia api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

// shouldRetry trusts the server's Retryable flag when it sent one.
func shouldRetry(status int, err error) bool {
	var de evaldto.DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return shouldRetryStatus(status)
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
