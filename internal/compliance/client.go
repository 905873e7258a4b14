package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	dErrors "drs/pkg/domain-errors"
)

// Client calls the core compliance service. Transport-level retries (gateway
// errors, connection failures) happen here with capped exponential backoff;
// the aggregator's round-based retry over unprocessed batches is a separate
// layer on top.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts uint64
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMaxAttempts(n uint64) ClientOption {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("core base url is required")
	}
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BatchCheck fetches compliance records for up to one batch of IMEIs.
func (c *Client) BatchCheck(ctx context.Context, imeis []string) (*BatchResponse, error) {
	body, err := json.Marshal(BatchRequest{
		IMEIs:                     imeis,
		IncludeRegistrationStatus: true,
		IncludeStolenStatus:       true,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode batch request")
	}

	operation := func() (*BatchResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/imei-batch", bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Connection errors are retryable.
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var out BatchResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return nil, backoff.Permanent(err)
			}
			return &out, nil
		case retryableStatus(resp.StatusCode):
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("core service returned %d", resp.StatusCode)
		default:
			io.Copy(io.Discard, resp.Body)
			return nil, backoff.Permanent(fmt.Errorf("core service returned %d", resp.StatusCode))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxAttempts-1), ctx)
	out, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		c.logger.WarnContext(ctx, "batch compliance call failed",
			"batch_size", len(imeis),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "batch compliance call failed")
	}
	return out, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
