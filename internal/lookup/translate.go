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

// TranslationClient talks to the translation service. Translation is
// invoked per block on demand; a failure leaves the original content
// displayed.
type TranslationClient struct {
	baseURL string
	client  *http.Client
}

// NewTranslationClient creates a client for the given base URL.
func NewTranslationClient(baseURL string, timeout time.Duration) *TranslationClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TranslationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	HTML string `json:"html"`
	Lang string `json:"lang"`
}

type translateResponse struct {
	HTML string `json:"html"`
}

// Translate converts a block's markup to the target language, keeping
// embedded markup intact. On any failure the caller keeps the original.
func (c *TranslationClient) Translate(ctx context.Context, html, targetLang string) (string, error) {
	data, err := json.Marshal(translateRequest{HTML: html, Lang: targetLang})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/translate", c.baseURL), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{Service: "translate", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out translateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ServiceError{Service: "translate", Operation: "decode", Err: err}
	}
	return out.HTML, nil
}
