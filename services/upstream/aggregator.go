package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streamrelay/config"
	"streamrelay/models"
)

// AggregatorClient lists candidates from a private aggregator service.
// Unlike Torrentio the aggregator knows its own cache state, so its
// candidates arrive pre-marked; entries it is still fetching carry a
// pending glyph in the name and isCached false.
type AggregatorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Lister = (*AggregatorClient)(nil)

func NewAggregatorClient(cfg config.AggregatorSettings, client *http.Client) *AggregatorClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &AggregatorClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: client,
	}
}

func (a *AggregatorClient) Name() string {
	return "aggregator"
}

type aggregatorStream struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"sizeBytes"`
	Cached      bool   `json:"cached"`
}

type aggregatorResponse struct {
	Streams []aggregatorStream `json:"streams"`
}

func (a *AggregatorClient) ListStreams(ctx context.Context, mediaType, mediaID string) ([]models.StreamCandidate, error) {
	endpoint := fmt.Sprintf("%s/streams/%s/%s", a.baseURL, url.PathEscape(mediaType), url.PathEscape(mediaID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("aggregator %s returned %d: %s", mediaID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload aggregatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode aggregator response: %w", err)
	}

	candidates := make([]models.StreamCandidate, 0, len(payload.Streams))
	for _, s := range payload.Streams {
		if strings.TrimSpace(s.URL) == "" {
			continue
		}
		candidates = append(candidates, models.StreamCandidate{
			SourceURL:   s.URL,
			DisplayName: strings.TrimSpace(s.Name),
			Description: strings.TrimSpace(s.Description),
			Filename:    strings.TrimSpace(s.Filename),
			SizeBytes:   s.SizeBytes,
			IsCached:    s.Cached,
		})
	}
	return candidates, nil
}
