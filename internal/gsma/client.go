package gsma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "drs/pkg/domain-errors"
)

// Client fetches TAC records from the core service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("core base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// Lookup fetches the GSMA record for a TAC. A TAC the core service does not
// know returns (nil, nil).
func (c *Client) Lookup(ctx context.Context, tac string) (*Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tac/"+tac, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build tac request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "tac lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("core service returned %d", resp.StatusCode))
	}

	var out tacResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode tac response")
	}
	return out.GSMA, nil
}
