package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TorBoxClient verifies cache status against the TorBox API. The
// protocol is stateless: one lookup call per hash, nothing is created
// remotely and nothing needs cleanup.
type TorBoxClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	auth       authGate
}

var _ Provider = (*TorBoxClient)(nil)

// NewTorBoxClient creates a new TorBox API client.
func NewTorBoxClient(apiKey string, opts ClientOptions) *TorBoxClient {
	c := &TorBoxClient{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.torbox.app/v1/api",
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	return c
}

// Name returns the provider identifier.
func (c *TorBoxClient) Name() string {
	return "torbox"
}

func init() {
	RegisterProvider("torbox", func(apiKey string, opts ClientOptions) Provider {
		return NewTorBoxClient(apiKey, opts)
	})
}

// torboxCheckResponse is the per-hash lookup response.
type torboxCheckResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Cached bool   `json:"cached"`
		Name   string `json:"name,omitempty"`
		Size   int64  `json:"size,omitempty"`
	} `json:"data"`
}

// CheckCache looks each hash up independently. A transport error or a
// non-success response maps that single hash to false; the remaining
// hashes are still checked.
func (c *TorBoxClient) CheckCache(ctx context.Context, hashes []string) (map[string]bool, error) {
	verdicts := make(map[string]bool, len(hashes))
	if !c.auth.ok() {
		return verdicts, nil
	}

	for _, hash := range hashes {
		if ctx.Err() != nil {
			return verdicts, nil
		}
		canonical := strings.ToUpper(hash)
		cached, err := c.checkOne(ctx, hash)
		if err != nil {
			log.Printf("[torbox] cache check for %s failed: %v", canonical, err)
			verdicts[canonical] = false
			if !c.auth.ok() {
				return verdicts, nil
			}
			continue
		}
		verdicts[canonical] = cached
	}
	return verdicts, nil
}

func (c *TorBoxClient) checkOne(ctx context.Context, hash string) (bool, error) {
	endpoint := fmt.Sprintf("%s/torrents/checkcached?hash=%s&format=object", c.baseURL, url.QueryEscape(strings.ToLower(hash)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("check request failed: %w", err)
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		c.auth.disable(c.Name())
		return false, fmt.Errorf("torbox authentication failed: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("check returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read check response: %w", err)
	}
	var result torboxCheckResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("decode check response: %w (body: %s)", err, preview(body))
	}
	if !result.Success {
		return false, nil
	}
	return result.Data.Cached, nil
}
