package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/medhayu/grantha/internal/glossary"
)

// GlossaryClient fetches the term list of the active glossary
// selection.
type GlossaryClient struct {
	baseURL string
	client  *http.Client
	retry   RetryConfig
}

// NewGlossaryClient creates a client for the given base URL.
func NewGlossaryClient(baseURL string, timeout time.Duration) *GlossaryClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GlossaryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
	}
}

// Terms fetches the terms of one glossary.
func (c *GlossaryClient) Terms(ctx context.Context, glossaryID string) ([]glossary.Term, error) {
	u := fmt.Sprintf("%s/glossaries/%s/terms", c.baseURL, url.PathEscape(glossaryID))
	body, err := withRetry(ctx, "glossary", c.retry, func(ctx context.Context) ([]byte, error) {
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

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &HTTPError{Service: "glossary", StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	var out []glossary.Term
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ServiceError{Service: "glossary", Operation: "decode", Err: err}
	}
	return out, nil
}
