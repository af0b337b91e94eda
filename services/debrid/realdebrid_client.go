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
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// RealDebridClient verifies cache status against the Real-Debrid API.
// The protocol is batch-shaped: all hashes are registered in one
// request, the returned job IDs are polled together with exponential
// backoff, and every registered job is deleted afterwards regardless
// of outcome — leaving jobs behind is a remote-side resource leak.
type RealDebridClient struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	pollAttempts uint
	pollBase     time.Duration
	auth         authGate
}

var _ Provider = (*RealDebridClient)(nil)

// NewRealDebridClient creates a new Real-Debrid API client.
func NewRealDebridClient(apiKey string, opts ClientOptions) *RealDebridClient {
	c := &RealDebridClient{
		apiKey:       strings.TrimSpace(apiKey),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      "https://api.real-debrid.com/rest/1.0",
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
func (c *RealDebridClient) Name() string {
	return "realdebrid"
}

func init() {
	RegisterProvider("realdebrid", func(apiKey string, opts ClientOptions) Provider {
		return NewRealDebridClient(apiKey, opts)
	})
}

// rdJob is one registered torrent job in the batch-add response.
type rdJob struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// rdStatus is one entry of the batched status response.
type rdStatus struct {
	ID       string  `json:"id"`
	Hash     string  `json:"hash"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

var rdTerminalStatuses = map[string]bool{
	"magnet_error": true,
	"error":        true,
	"virus":        true,
	"dead":         true,
}

var errJobsPending = errors.New("jobs still pending")

// CheckCache registers all hashes as one batch, polls the job statuses
// with exponential backoff and reports a verdict per registered hash.
// Hashes the provider never acknowledged stay absent from the result.
func (c *RealDebridClient) CheckCache(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 || !c.auth.ok() {
		return map[string]bool{}, nil
	}

	jobs, err := c.submitBatch(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("realdebrid submit: %w", err)
	}
	if len(jobs) == 0 {
		return map[string]bool{}, nil
	}

	jobIDs := make([]string, 0, len(jobs))
	hashByJob := make(map[string]string, len(jobs))
	verdicts := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		hash := strings.ToUpper(job.Hash)
		jobIDs = append(jobIDs, job.ID)
		hashByJob[job.ID] = hash
		verdicts[hash] = false
	}

	// Registered jobs must always be released, even when the poll loop
	// is cancelled by the request deadline. Cleanup runs detached so it
	// never delays the response.
	defer func() {
		ids := append([]string(nil), jobIDs...)
		go c.cleanup(ids)
	}()

	pending := make(map[string]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		pending[id] = struct{}{}
	}

	pollErr := retry.Do(
		func() error {
			if !c.auth.ok() {
				return retry.Unrecoverable(errors.New("provider disabled"))
			}
			statuses, err := c.fetchStatuses(ctx, jobIDs)
			if err != nil {
				// Individual poll failures are skipped, not escalated.
				log.Printf("[realdebrid] status poll failed: %v", err)
				return errJobsPending
			}
			for _, st := range statuses {
				if _, waiting := pending[st.ID]; !waiting {
					continue
				}
				hash := hashByJob[st.ID]
				switch {
				case st.Status == "downloaded" || st.Progress >= 100:
					verdicts[hash] = true
					delete(pending, st.ID)
				case rdTerminalStatuses[st.Status]:
					delete(pending, st.ID)
				}
			}
			if len(pending) == 0 {
				return nil
			}
			return errJobsPending
		},
		retry.Context(ctx),
		retry.Attempts(c.pollAttempts),
		retry.Delay(c.pollBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if pollErr != nil {
		log.Printf("[realdebrid] poll finished with %d unresolved job(s): %v", len(pending), pollErr)
	}

	return verdicts, nil
}

// submitBatch registers all hashes in one request and returns the
// provider's job handles. A transport failure aborts the whole batch.
func (c *RealDebridClient) submitBatch(ctx context.Context, hashes []string) ([]rdJob, error) {
	formData := url.Values{}
	for _, hash := range hashes {
		formData.Add("magnets[]", "magnet:?xt=urn:btih:"+strings.ToLower(hash))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/torrents/addBatch", strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build batch add request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("batch add request failed: %w", err)
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		c.auth.disable(c.Name())
		return nil, fmt.Errorf("realdebrid authentication failed: invalid API key")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("batch add returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read batch add response: %w", err)
	}
	var jobs []rdJob
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, fmt.Errorf("decode batch add response: %w (body: %s)", err, preview(body))
	}
	return jobs, nil
}

// fetchStatuses polls the status of all job IDs in one call.
func (c *RealDebridClient) fetchStatuses(ctx context.Context, jobIDs []string) ([]rdStatus, error) {
	endpoint := fmt.Sprintf("%s/torrents/status?ids=%s", c.baseURL, url.QueryEscape(strings.Join(jobIDs, ",")))
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
		return nil, fmt.Errorf("realdebrid authentication failed: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	var statuses []rdStatus
	if err := json.Unmarshal(body, &statuses); err != nil {
		return nil, fmt.Errorf("decode status response: %w (body: %s)", err, preview(body))
	}
	return statuses, nil
}

// cleanup deletes every registered job. It runs on its own context so
// a cancelled request cannot leave jobs behind; failures are logged
// and ignored.
func (c *RealDebridClient) cleanup(jobIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range jobIDs {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/torrents/delete/"+url.PathEscape(id), nil)
		if err != nil {
			log.Printf("[realdebrid] build delete request for job %s: %v", id, err)
			continue
		}
		resp, err := c.doRequest(req)
		if err != nil {
			log.Printf("[realdebrid] delete job %s failed: %v", id, err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("[realdebrid] delete job %s returned %d", id, resp.StatusCode)
		}
	}
}

func (c *RealDebridClient) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

func preview(body []byte) string {
	const maxPreview = 200
	s := string(body)
	if len(s) > maxPreview {
		return s[:maxPreview] + "..."
	}
	return s
}
