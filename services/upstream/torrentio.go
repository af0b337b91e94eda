package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"streamrelay/config"
	"streamrelay/models"
)

const torrentioDefaultBaseURL = "https://torrentio.strem.fun"

// TorrentioClient lists releases from a Torrentio-shaped add-on. The
// interesting fields (size, seeders, source name) are embedded as
// glyph-prefixed lines in each stream's title text.
type TorrentioClient struct {
	baseURL    string
	options    string // URL path options (e.g. "sort=qualitysize|qualityfilter=480p,scr,cam")
	httpClient *http.Client
}

var _ Lister = (*TorrentioClient)(nil)

// NewTorrentioClient constructs a client with sane defaults.
func NewTorrentioClient(cfg config.TorrentioSettings, client *http.Client) *TorrentioClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := torrentioDefaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &TorrentioClient{
		baseURL:    baseURL,
		options:    strings.TrimSpace(cfg.Options),
		httpClient: client,
	}
}

func (t *TorrentioClient) Name() string {
	return "torrentio"
}

type torrentioResponse struct {
	Streams []struct {
		Name          string `json:"name"`
		Title         string `json:"title"`
		InfoHash      string `json:"infoHash"`
		URL           string `json:"url"`
		BehaviorHints struct {
			Filename  string `json:"filename"`
			VideoSize int64  `json:"videoSize"`
		} `json:"behaviorHints"`
	} `json:"streams"`
}

var torrentioSizePattern = regexp.MustCompile(`💾\s*([\d.,]+)\s*([KMGTP]?B)`)

// ListStreams fetches the stream list for one media id. Streams without
// an info hash or a direct URL cannot be played and are skipped.
func (t *TorrentioClient) ListStreams(ctx context.Context, mediaType, mediaID string) ([]models.StreamCandidate, error) {
	// Format: baseURL/[options/]stream/mediaType/id.json
	var endpoint string
	if t.options != "" {
		endpoint = fmt.Sprintf("%s/%s/stream/%s/%s.json", t.baseURL, t.options, mediaType, url.PathEscape(mediaID))
	} else {
		endpoint = fmt.Sprintf("%s/stream/%s/%s.json", t.baseURL, mediaType, url.PathEscape(mediaID))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	addBrowserHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("torrentio %s returned %d: %s", mediaID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload torrentioResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode torrentio response: %w", err)
	}

	candidates := make([]models.StreamCandidate, 0, len(payload.Streams))
	for _, stream := range payload.Streams {
		infoHash := strings.TrimSpace(stream.InfoHash)
		sourceURL := strings.TrimSpace(stream.URL)
		if sourceURL == "" {
			if infoHash == "" {
				continue
			}
			sourceURL = buildMagnet(infoHash)
		}

		title := strings.TrimSpace(stream.Title)
		sizeBytes := stream.BehaviorHints.VideoSize
		if sizeBytes == 0 {
			sizeBytes = parseGlyphSize(title)
		}
		filename := strings.TrimSpace(stream.BehaviorHints.Filename)
		if filename == "" {
			filename = firstLine(title)
		}

		candidates = append(candidates, models.StreamCandidate{
			SourceURL:   sourceURL,
			DisplayName: strings.TrimSpace(stream.Name),
			Description: title,
			Filename:    filename,
			SizeBytes:   sizeBytes,
		})
	}
	return candidates, nil
}

func buildMagnet(infoHash string) string {
	return "magnet:?xt=urn:btih:" + strings.ToUpper(infoHash)
}

// parseGlyphSize reads the 💾-prefixed size line out of the title text.
func parseGlyphSize(raw string) int64 {
	match := torrentioSizePattern.FindStringSubmatch(raw)
	if len(match) != 3 {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	multipliers := map[string]float64{
		"B":  1,
		"KB": 1 << 10,
		"MB": 1 << 20,
		"GB": 1 << 30,
		"TB": 1 << 40,
		"PB": 1 << 50,
	}
	mult, ok := multipliers[strings.ToUpper(match[2])]
	if !ok {
		return 0
	}
	return int64(value * mult)
}

func firstLine(raw string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	return strings.TrimSpace(line)
}
