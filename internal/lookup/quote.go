package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Quote is one entry of the quote collection, used both for the
// suggestion dialog and the manual "create quote" flow.
type Quote struct {
	ID     string `json:"id"`
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// QuoteClient talks to the quote lookup service.
type QuoteClient struct {
	baseURL string
	client  *http.Client
	retry   RetryConfig
}

// NewQuoteClient creates a client for the given base URL.
func NewQuoteClient(baseURL string, timeout time.Duration) *QuoteClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
	}
}

// ListAll fetches the full quote collection.
func (c *QuoteClient) ListAll(ctx context.Context) ([]Quote, error) {
	u := fmt.Sprintf("%s/quotes", c.baseURL)
	body, err := withRetry(ctx, "quotes", c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &HTTPError{Service: "quotes", StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	var out []Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ServiceError{Service: "quotes", Operation: "decode", Err: err}
	}
	return out, nil
}

// Create submits a new quote from the manual dialog. An empty quote
// text is a validation failure local to the dialog.
func (c *QuoteClient) Create(ctx context.Context, q Quote) error {
	if q.Quote == "" {
		return &ServiceError{Service: "quotes", Operation: "create",
			Err: fmt.Errorf("quote text is required")}
	}

	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/quotes", c.baseURL), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Service: "quotes", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
