package debrid

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Provider reports which content hashes are instantly playable on a
// remote debrid host. Implementations wrap one provider API each and
// hide its protocol shape behind this single capability.
type Provider interface {
	Name() string
	// CheckCache returns a verdict per hash. A missing key means the
	// provider could not determine the status; callers must treat the
	// absence as unknown, never as false.
	CheckCache(ctx context.Context, hashes []string) (map[string]bool, error)
}

// ClientOptions tunes a provider client. Zero values fall back to the
// client's defaults; tests override BaseURL and HTTPClient.
type ClientOptions struct {
	BaseURL          string
	HTTPClient       *http.Client
	PollMaxAttempts  int
	PollBaseInterval time.Duration
}

// Factory builds a provider client from an API key.
type Factory func(apiKey string, opts ClientOptions) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider makes a provider constructible by name. Called from
// each client's init.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// GetProvider constructs a registered provider by name.
func GetProvider(name, apiKey string, opts ClientOptions) (Provider, bool) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(apiKey, opts), true
}

var contentHashPattern = regexp.MustCompile(`(?i)[0-9a-f]{40}`)

// ExtractContentHash pulls the 40-hex content hash out of a source
// locator, canonicalized to upper case. Returns "" when the locator
// carries no hash; such candidates cannot be cache-verified.
func ExtractContentHash(sourceURL string) string {
	return strings.ToUpper(contentHashPattern.FindString(sourceURL))
}

// authGate is the per-client authorization state: initialized enabled,
// flipped to disabled on a 401/403 and never auto-recovered. A
// disabled client short-circuits to an empty (unknown) result.
type authGate struct {
	disabled atomic.Bool
}

func (g *authGate) ok() bool {
	return !g.disabled.Load()
}

func (g *authGate) disable(provider string) {
	if g.disabled.CompareAndSwap(false, true) {
		log.Printf("[%s] authorization failed, disabling provider for the rest of the process", provider)
	}
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
