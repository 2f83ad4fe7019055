// Package translator talks to the third-party translation proxy and caches
// its answers.
package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/validation"
)

// maxResponseSize caps how much of an upstream body is read.
const maxResponseSize = 1 << 20

// Client calls GET {baseURL}?text=&from=&to= on the proxy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. An empty apiKey sends no X-API-Key header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type response struct {
	Translations []domain.Translation `json:"translations"`
}

// Translate returns the proxy's candidates for text. Every failure wraps
// domain.ErrUpstream.
func (c *Client) Translate(ctx context.Context, text string, from, to validation.Language) ([]domain.Translation, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing translator url: %v", domain.ErrUpstream, err)
	}
	q := u.Query()
	q.Set("text", text)
	q.Set("from", string(from))
	q.Set("to", string(to))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: translator returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrUpstream, err)
	}
	if out.Translations == nil {
		out.Translations = []domain.Translation{}
	}
	return out.Translations, nil
}
