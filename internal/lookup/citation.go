package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medhayu/grantha/internal/cache"
)

// CitationRecord is a resolved external reference.
type CitationRecord struct {
	RefID       string `json:"refId"`
	Sanskrit    string `json:"sanskrit"`
	Translation string `json:"translation"`
	Source      string `json:"source"`
	Location    string `json:"location"`
}

// CitationPreview is one search result row.
type CitationPreview struct {
	RefID   string `json:"refId"`
	Preview string `json:"preview"`
}

// CitationClient talks to the citation lookup service.
type CitationClient struct {
	baseURL string
	client  *http.Client
	retry   RetryConfig
}

// NewCitationClient creates a client for the given base URL.
func NewCitationClient(baseURL string, timeout time.Duration) *CitationClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CitationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
	}
}

// Resolve fetches the full record for a refId. Missing references
// return ErrNotFound, which callers treat as a silent fallback, never a
// fault.
func (c *CitationClient) Resolve(ctx context.Context, refID string) (*CitationRecord, error) {
	u := fmt.Sprintf("%s/citations/%s", c.baseURL, url.PathEscape(refID))
	body, err := withRetry(ctx, "citations", c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	var rec CitationRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, &ServiceError{Service: "citations", Operation: "decode", Err: err}
	}
	if rec.RefID == "" {
		rec.RefID = refID
	}
	return &rec, nil
}

// Search returns candidate references for a query, truncated to limit.
func (c *CitationClient) Search(ctx context.Context, query string, limit int) ([]CitationPreview, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	u := fmt.Sprintf("%s/citations?%s", c.baseURL, q.Encode())

	body, err := withRetry(ctx, "citations", c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	var out []CitationPreview
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ServiceError{Service: "citations", Operation: "decode", Err: err}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *CitationClient) get(ctx context.Context, u string) ([]byte, error) {
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
		return nil, &HTTPError{Service: "citations", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return io.ReadAll(resp.Body)
}

// CachedResolver caches resolutions for one tooltip instance. Each
// tooltip owns its own resolver; the cache is deliberately not shared
// globally.
type CachedResolver struct {
	client *CitationClient
	cache  *cache.Memory
	ttl    time.Duration
}

// NewCachedResolver wraps a client with a per-instance cache.
func NewCachedResolver(client *CitationClient, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{client: client, cache: cache.NewMemory(), ttl: ttl}
}

// Resolve returns the cached record or fetches it.
func (r *CachedResolver) Resolve(ctx context.Context, refID string) (*CitationRecord, error) {
	if v, ok := r.cache.Get(refID); ok {
		return v.(*CitationRecord), nil
	}
	rec, err := r.client.Resolve(ctx, refID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(refID, rec, r.ttl)
	return rec, nil
}

// Close stops the cache's cleanup loop.
func (r *CachedResolver) Close() {
	r.cache.Stop()
}
