package debrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// AllDebridClient verifies cache status against the AllDebrid API.
// Like Real-Debrid the protocol starts with one batch magnet upload,
// but magnet statuses can only be polled one job at a time, so each
// unresolved job gets its own backoff loop. Every uploaded magnet is
// deleted afterwards regardless of outcome.
type AllDebridClient struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	agent        string
	pollAttempts uint
	pollBase     time.Duration
	auth         authGate
}

var _ Provider = (*AllDebridClient)(nil)

// NewAllDebridClient creates a new AllDebrid API client.
func NewAllDebridClient(apiKey string, opts ClientOptions) *AllDebridClient {
	c := &AllDebridClient{
		apiKey:       strings.TrimSpace(apiKey),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      "https://api.alldebrid.com/v4",
		agent:        "streamrelay",
		pollAttempts: 5,
		pollBase:     time.Second,
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	if opts.PollMaxAttempts > 0 {
		c.pollAttempts = uint(opts.PollMaxAttempts)
	}
	if opts.PollBaseInterval > 0 {
		c.pollBase = opts.PollBaseInterval
	}
	return c
}

// Name returns the provider identifier.
func (c *AllDebridClient) Name() string {
	return "alldebrid"
}

func init() {
	RegisterProvider("alldebrid", func(apiKey string, opts ClientOptions) Provider {
		return NewAllDebridClient(apiKey, opts)
	})
}

// allDebridResponse is the generic API response wrapper.
type allDebridResponse[T any] struct {
	Status string `json:"status"` // "success" or "error"
	Data   T      `json:"data,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// allDebridMagnet represents one magnet in the upload response.
type allDebridMagnet struct {
	Magnet string `json:"magnet,omitempty"`
	ID     int    `json:"id,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Ready  bool   `json:"ready,omitempty"`
}

// allDebridMagnetUploadData wraps the magnet array response.
type allDebridMagnetUploadData struct {
	Magnets []allDebridMagnet `json:"magnets"`
}

// allDebridStatus represents the per-magnet status response.
type allDebridStatus struct {
	ID         int    `json:"id"`
	Hash       string `json:"hash,omitempty"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// allDebridStatusData wraps the status response.
type allDebridStatusData struct {
	Magnets allDebridStatus `json:"magnets"`
}

// AllDebrid status codes.
const (
	allDebridStatusInQueue     = 0
	allDebridStatusDownloading = 1
	allDebridStatusReady       = 4
	// Codes 5 and up are terminal failures (upload fail, unpack error,
	// file too big, deleted on hoster, ...).
	allDebridStatusFirstError = 5
)

// CheckCache uploads all hashes as one magnet batch, polls each
// not-yet-ready magnet individually and reports a verdict per
// acknowledged hash. Every uploaded magnet is deleted afterwards.
func (c *AllDebridClient) CheckCache(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 || !c.auth.ok() {
		return map[string]bool{}, nil
	}

	magnets, err := c.uploadMagnets(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("alldebrid submit: %w", err)
	}
	if len(magnets) == 0 {
		return map[string]bool{}, nil
	}

	jobIDs := make([]int, 0, len(magnets))
	verdicts := make(map[string]bool, len(magnets))
	type pendingJob struct {
		id   int
		hash string
	}
	var pending []pendingJob

	for _, magnet := range magnets {
		hash := strings.ToUpper(magnet.Hash)
		jobIDs = append(jobIDs, magnet.ID)
		if magnet.Ready {
			verdicts[hash] = true
			continue
		}
		verdicts[hash] = false
		pending = append(pending, pendingJob{id: magnet.ID, hash: hash})
	}

	defer func() {
		ids := append([]int(nil), jobIDs...)
		go c.cleanup(ids)
	}()

	// Status must be polled per job, but the whole pending set shares
	// one backoff budget; per-job budgets would make verification time
	// grow linearly with the number of unready magnets.
	pollCtx, cancel := context.WithTimeout(ctx, c.pollBudget())
	defer cancel()
	for _, job := range pending {
		if pollCtx.Err() != nil || !c.auth.ok() {
			break
		}
		ready, err := c.pollMagnet(pollCtx, job.id)
		if err != nil {
			log.Printf("[alldebrid] poll for magnet %d gave up: %v", job.id, err)
			continue
		}
		verdicts[job.hash] = ready
	}

	return verdicts, nil
}

// pollBudget is one job's full exponential backoff span, doubled to
// leave room for request round-trips.
func (c *AllDebridClient) pollBudget() time.Duration {
	budget := c.pollBase
	delay := c.pollBase
	for i := uint(1); i < c.pollAttempts; i++ {
		budget += delay
		delay *= 2
	}
	return budget * 2
}

// uploadMagnets registers all hashes in a single magnet upload call.
func (c *AllDebridClient) uploadMagnets(ctx context.Context, hashes []string) ([]allDebridMagnet, error) {
	formData := url.Values{}
	formData.Set("agent", c.agent)
	for _, hash := range hashes {
		formData.Add("magnets[]", "magnet:?xt=urn:btih:"+strings.ToLower(hash))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/magnet/upload", strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		c.auth.disable(c.Name())
		return nil, fmt.Errorf("alldebrid authentication failed: invalid API key")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	var result allDebridResponse[allDebridMagnetUploadData]
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w (body: %s)", err, preview(body))
	}
	if result.Status != "success" {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = result.Error.Message
		}
		return nil, fmt.Errorf("magnet upload failed: %s", errMsg)
	}
	return result.Data.Magnets, nil
}

// pollMagnet polls one magnet until it is ready, terminally failed or
// the backoff budget runs out.
func (c *AllDebridClient) pollMagnet(ctx context.Context, magnetID int) (bool, error) {
	ready := false
	err := retry.Do(
		func() error {
			if !c.auth.ok() {
				return retry.Unrecoverable(errors.New("provider disabled"))
			}
			status, err := c.fetchStatus(ctx, magnetID)
			if err != nil {
				log.Printf("[alldebrid] status poll for magnet %d failed: %v", magnetID, err)
				return errJobsPending
			}
			switch {
			case status.StatusCode == allDebridStatusReady:
				ready = true
				return nil
			case status.StatusCode >= allDebridStatusFirstError:
				return retry.Unrecoverable(fmt.Errorf("terminal status %q (%d)", status.Status, status.StatusCode))
			default:
				return errJobsPending
			}
		},
		retry.Context(ctx),
		retry.Attempts(c.pollAttempts),
		retry.Delay(c.pollBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil && !ready {
		return false, err
	}
	return ready, nil
}

func (c *AllDebridClient) fetchStatus(ctx context.Context, magnetID int) (*allDebridStatus, error) {
	endpoint := fmt.Sprintf("%s/magnet/status?agent=%s&id=%d", c.baseURL, url.QueryEscape(c.agent), magnetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		c.auth.disable(c.Name())
		return nil, fmt.Errorf("alldebrid authentication failed: invalid API key")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	var result allDebridResponse[allDebridStatusData]
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode status response: %w (body: %s)", err, preview(body))
	}
	if result.Status != "success" {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = result.Error.Message
		}
		return nil, fmt.Errorf("magnet status failed: %s", errMsg)
	}
	return &result.Data.Magnets, nil
}

// cleanup deletes every uploaded magnet on its own context; failures
// are logged and ignored.
func (c *AllDebridClient) cleanup(magnetIDs []int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range magnetIDs {
		formData := url.Values{}
		formData.Set("agent", c.agent)
		formData.Set("id", strconv.Itoa(id))

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/magnet/delete", strings.NewReader(formData.Encode()))
		if err != nil {
			log.Printf("[alldebrid] build delete request for magnet %d: %v", id, err)
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.doRequest(req)
		if err != nil {
			log.Printf("[alldebrid] delete magnet %d failed: %v", id, err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("[alldebrid] delete magnet %d returned %d", id, resp.StatusCode)
		}
	}
}

func (c *AllDebridClient) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}
