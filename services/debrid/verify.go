package debrid

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"streamrelay/config"
	"streamrelay/models"
)

// pendingGlyph marks candidates an upstream listed as not yet
// available; it is stripped once verification promotes them.
const pendingGlyph = "⏳"

// Engine orchestrates the cache-verification workflow: it fans the
// distinct content hashes of uncached candidates out to all configured
// providers, merges their verdicts in a fixed precedence order and
// falls back to a passive URL probe for candidates that stay
// unresolved.
type Engine struct {
	providers        []Provider
	overallTimeout   time.Duration
	maxVerified      int
	maxUncachedBytes int64
	probeEnabled     bool
	probeTimeout     time.Duration
	probeWorkers     int
	probeClient      *http.Client
}

// NewEngine builds an engine over the given providers. Provider slice
// order is the merge precedence: a later provider overwrites earlier
// verdicts for the same hash.
func NewEngine(cfg config.DebridSettings, providers []Provider) *Engine {
	probeTimeout := time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	workers := cfg.ProbeWorkers
	if workers <= 0 {
		workers = 8
	}
	maxVerified := cfg.MaxVerifiedResults
	if maxVerified <= 0 {
		maxVerified = 20
	}
	return &Engine{
		providers:        providers,
		overallTimeout:   time.Duration(cfg.OverallTimeoutSeconds) * time.Second,
		maxVerified:      maxVerified,
		maxUncachedBytes: int64(cfg.MaxUncachedSizeGB * float64(1<<30)),
		probeEnabled:     cfg.ProbeFallback,
		probeTimeout:     probeTimeout,
		probeWorkers:     workers,
		probeClient:      &http.Client{Timeout: probeTimeout},
	}
}

// ProvidersFromSettings constructs the enabled provider clients in the
// configured precedence order.
func ProvidersFromSettings(cfg config.DebridSettings) []Provider {
	opts := ClientOptions{
		PollMaxAttempts:  cfg.PollMaxAttempts,
		PollBaseInterval: time.Duration(cfg.PollBaseIntervalSec * float64(time.Second)),
	}
	var providers []Provider
	for _, p := range cfg.EnabledProviders() {
		client, ok := GetProvider(p.Name, p.APIKey, opts)
		if !ok {
			log.Printf("[verify] unknown debrid provider %q, skipping", p.Name)
			continue
		}
		providers = append(providers, client)
	}
	return providers
}

// Verify partitions candidates into already-cached and uncached,
// resolves the uncached ones against the providers (plus probe
// fallback) and returns the cached partition followed by the newly
// verified one, the latter capped and in input order.
func (e *Engine) Verify(ctx context.Context, candidates []models.StreamCandidate) []models.StreamCandidate {
	var cached, uncached []models.StreamCandidate
	for _, c := range candidates {
		if c.IsCached {
			cached = append(cached, c)
		} else {
			uncached = append(uncached, c)
		}
	}
	if len(uncached) == 0 {
		return cached
	}

	// The whole pass runs under one deadline; provider poll loops and
	// probes cannot stretch a request past it. Client-side cleanup is
	// detached and survives the cutoff.
	if e.overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.overallTimeout)
		defer cancel()
	}

	verdicts := e.checkProviders(ctx, distinctHashes(uncached))

	admitted := make([]bool, len(uncached))
	var probeIdx []int
	for i := range uncached {
		hash := ExtractContentHash(uncached[i].SourceURL)
		if hash != "" && verdicts[hash] {
			promote(&uncached[i])
			// Size cap applies only here; the probe branch below
			// admits regardless of size.
			if e.maxUncachedBytes <= 0 || uncached[i].SizeBytes <= e.maxUncachedBytes {
				admitted[i] = true
			}
			continue
		}
		if e.probeEnabled {
			probeIdx = append(probeIdx, i)
		}
	}

	if len(probeIdx) > 0 && ctx.Err() == nil {
		p := pool.New().WithMaxGoroutines(e.probeWorkers)
		for _, i := range probeIdx {
			i := i
			p.Go(func() {
				if e.probe(ctx, uncached[i].SourceURL) {
					promote(&uncached[i])
					admitted[i] = true
				}
			})
		}
		p.Wait()
	}

	verified := make([]models.StreamCandidate, 0, e.maxVerified)
	for i, c := range uncached {
		if !admitted[i] {
			continue
		}
		verified = append(verified, c)
		if len(verified) >= e.maxVerified {
			break
		}
	}

	log.Printf("[verify] %d pre-cached, %d of %d uncached promoted (probe fallback: %t)",
		len(cached), len(verified), len(uncached), e.probeEnabled)
	return append(cached, verified...)
}

// checkProviders runs every provider concurrently and merges their
// verdict maps sequentially in provider order. Each provider writes
// only its own slot, so the merge needs no locking; a provider error
// contributes nothing rather than marking its hashes false.
func (e *Engine) checkProviders(ctx context.Context, hashes []string) map[string]bool {
	merged := make(map[string]bool)
	if len(hashes) == 0 || len(e.providers) == 0 {
		return merged
	}

	results := make([]map[string]bool, len(e.providers))
	var wg conc.WaitGroup
	for i, provider := range e.providers {
		i, provider := i, provider
		wg.Go(func() {
			verdicts, err := provider.CheckCache(ctx, hashes)
			if err != nil {
				log.Printf("[verify] provider %s failed, treating as unknown: %v", provider.Name(), err)
				return
			}
			results[i] = verdicts
		})
	}
	wg.Wait()

	for _, verdicts := range results {
		for hash, ok := range verdicts {
			merged[strings.ToUpper(hash)] = ok
		}
	}
	return merged
}

// probe issues a lightweight existence check against the candidate's
// own URL. Any failure drops the candidate silently.
func (e *Engine) probe(ctx context.Context, sourceURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, sourceURL, nil)
	if err != nil {
		return false
	}
	resp, err := e.probeClient.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode < 400
}

func promote(c *models.StreamCandidate) {
	c.IsCached = true
	c.DisplayName = strings.TrimSpace(strings.ReplaceAll(c.DisplayName, pendingGlyph, ""))
}

func distinctHashes(candidates []models.StreamCandidate) []string {
	seen := make(map[string]struct{})
	var hashes []string
	for _, c := range candidates {
		hash := ExtractContentHash(c.SourceURL)
		if hash == "" {
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}
	return hashes
}
