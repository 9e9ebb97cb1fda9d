package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Delivery option headers understood by the provider API.
const (
	headerRetries         = "X-Relay-Retries"
	headerDelay           = "X-Relay-Delay"
	headerCallback        = "X-Relay-Callback"
	headerFailureCallback = "X-Relay-Failure-Callback"
	headerCron            = "X-Relay-Cron"
	headerScheduleID      = "X-Relay-Schedule-Id"
)

// APIError represents a non-2xx response from the provider API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: request failed (%d): %s", e.StatusCode, e.Message)
}

// HTTPClient talks to the provider's REST API. Transient failures (transport
// errors, 5xx) are retried with exponential backoff and jitter; 4xx responses
// fail immediately. An outbound rate limiter keeps bursts of enqueues within
// the provider's API limits.
type HTTPClient struct {
	baseURL     string
	token       string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithRetry sets the number of retries after the first attempt and the base
// backoff between attempts.
func WithRetry(maxRetries int, baseBackoff time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.maxRetries = maxRetries
		c.baseBackoff = baseBackoff
	}
}

// WithRateLimit bounds outbound calls to the provider API.
func WithRateLimit(limit rate.Limit, burst int) HTTPOption {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewHTTPClient creates a provider client against the given API base URL,
// authenticating with the given bearer token.
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		token:       token,
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(50), 100),
		maxRetries:  3,
		baseBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish submits a message for push delivery to req.URL.
func (c *HTTPClient) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	endpoint := fmt.Sprintf("%s/v1/publish/%s", c.baseURL, url.QueryEscape(req.URL))

	headers := http.Header{}
	headers.Set(headerRetries, strconv.Itoa(req.Retries))
	if req.Delay > 0 {
		headers.Set(headerDelay, strconv.Itoa(int(req.Delay.Seconds())))
	}
	if req.Callback != "" {
		headers.Set(headerCallback, req.Callback)
	}
	if req.FailureCallback != "" {
		headers.Set(headerFailureCallback, req.FailureCallback)
	}

	respBody, err := c.do(ctx, endpoint, headers, req.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("provider: failed to parse publish response: %w", err)
	}

	return &PublishResult{MessageID: result.MessageID}, nil
}

// CreateSchedule registers a recurring delivery. The provider upserts on the
// schedule ID, so re-registering the same schedule updates it in place.
func (c *HTTPClient) CreateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	endpoint := fmt.Sprintf("%s/v1/schedules/%s", c.baseURL, url.QueryEscape(req.Destination))

	headers := http.Header{}
	headers.Set(headerCron, req.Cron)
	if req.ScheduleID != "" {
		headers.Set(headerScheduleID, req.ScheduleID)
	}

	respBody, err := c.do(ctx, endpoint, headers, req.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		ScheduleID string `json:"schedule_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("provider: failed to parse schedule response: %w", err)
	}

	return &ScheduleResult{ScheduleID: result.ScheduleID}, nil
}

// do POSTs body to endpoint, retrying transient failures. The request is
// rebuilt each attempt because the body reader is consumed.
func (c *HTTPClient) do(ctx context.Context, endpoint string, headers http.Header, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("provider: rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * (1 << (attempt - 1))
			jitter := time.Duration(rand.Int64N(int64(backoff)/2 + 1))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("provider: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		for key, values := range headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return respBody, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client errors will not heal on retry.
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		default:
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
	}

	return nil, fmt.Errorf("provider: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
