package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server     ServerSettings     `json:"server"`
	Upstreams  UpstreamSettings   `json:"upstreams"`
	Debrid     DebridSettings     `json:"debrid"`
	Filtering  FilterSettings     `json:"filtering"`
	Decoration DecorationSettings `json:"decoration"`
	Ranking    RankingSettings    `json:"ranking"`
	Log        LogConfig          `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// UpstreamSettings configures the stream-listing sources.
type UpstreamSettings struct {
	Torrentio  TorrentioSettings  `json:"torrentio"`
	Aggregator AggregatorSettings `json:"aggregator"`
}

type TorrentioSettings struct {
	BaseURL string `json:"baseUrl"`
	Options string `json:"options"` // URL path options (e.g. "sort=qualitysize|qualityfilter=480p,scr,cam")
	Enabled bool   `json:"enabled"`
}

type AggregatorSettings struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
	Enabled bool   `json:"enabled"`
}

// DebridSettings configures the cache-verification providers.
type DebridSettings struct {
	// ProviderOrder fixes the merge precedence for cache verdicts: a
	// provider later in this list overwrites earlier verdicts for the
	// same hash. This is a policy choice, not an iteration accident.
	ProviderOrder []string                 `json:"providerOrder"`
	Providers     []DebridProviderSettings `json:"providers"`

	// OverallTimeoutSeconds bounds one request's entire verification
	// pass, provider poll loops and probes included. Client cleanup is
	// detached and keeps running past this deadline.
	OverallTimeoutSeconds int `json:"overallTimeoutSeconds"`

	// MaxVerifiedResults caps how many uncached candidates promoted to
	// playable are kept per request. Promoted results are speculative,
	// so the cap is intentionally low.
	MaxVerifiedResults int `json:"maxVerifiedResults"`

	// MaxUncachedSizeGB bounds the size of candidates admitted on a
	// provider verdict (0 = no limit). The probe-fallback branch does
	// not apply this cap.
	MaxUncachedSizeGB float64 `json:"maxUncachedSizeGb"`

	// ProbeFallback enables a lightweight HEAD probe against a
	// candidate's own URL when provider verdicts are inconclusive.
	ProbeFallback       bool `json:"probeFallback"`
	ProbeTimeoutSeconds int  `json:"probeTimeoutSeconds"`
	ProbeWorkers        int  `json:"probeWorkers"`

	PollMaxAttempts     int     `json:"pollMaxAttempts"`
	PollBaseIntervalSec float64 `json:"pollBaseIntervalSec"`
}

type DebridProviderSettings struct {
	Name    string `json:"name"`
	APIKey  string `json:"apiKey"`
	Enabled bool   `json:"enabled"`
}

// FilterSettings controls relevance filtering.
type FilterSettings struct {
	// FuzzyThreshold is the minimum 0-100 partial-match score between
	// the requested title and a candidate's text blob.
	FuzzyThreshold int `json:"fuzzyThreshold"`

	// PreferredLanguages is the allow-list of lowercase 2-3 letter
	// language tokens ("en", "eng", "fr", "vf", ...).
	PreferredLanguages []string `json:"preferredLanguages"`

	// KeepMultiLanguage keeps candidates tagged multi-language even
	// when no preferred token matches. Off by default.
	KeepMultiLanguage bool `json:"keepMultiLanguage"`
}

// ServiceMarker maps a textual service indicator to a short display tag.
type ServiceMarker struct {
	Match  string `json:"match"`
	Marker string `json:"marker"`
}

// DecorationSettings controls display-name annotation.
type DecorationSettings struct {
	// ServiceMarkers is scanned in order; the first entry whose Match
	// appears in the candidate blob wins.
	ServiceMarkers []ServiceMarker `json:"serviceMarkers"`
}

// RankingSettings controls the final ordering.
type RankingSettings struct {
	MaxResults int `json:"maxResults"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install. Provider
// API keys are always empty here; credentials only ever enter through
// the settings file.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7000},
		Upstreams: UpstreamSettings{
			Torrentio:  TorrentioSettings{BaseURL: "https://torrentio.strem.fun", Enabled: true},
			Aggregator: AggregatorSettings{BaseURL: "", Enabled: false},
		},
		Debrid: DebridSettings{
			ProviderOrder:         []string{"realdebrid", "torbox", "alldebrid"},
			Providers:             []DebridProviderSettings{},
			OverallTimeoutSeconds: 60,
			MaxVerifiedResults:    20,
			MaxUncachedSizeGB:     25,
			ProbeFallback:         true,
			ProbeTimeoutSeconds:   5,
			ProbeWorkers:          8,
			PollMaxAttempts:       5,
			PollBaseIntervalSec:   1,
		},
		Filtering: FilterSettings{
			FuzzyThreshold:     70,
			PreferredLanguages: []string{"en", "eng"},
		},
		Decoration: DecorationSettings{
			ServiceMarkers: []ServiceMarker{
				{Match: "aggregator", Marker: "[AGG]"},
				{Match: "torrentio", Marker: "[TIO]"},
				{Match: "realdebrid", Marker: "[RD+]"},
				{Match: "alldebrid", Marker: "[AD+]"},
			},
		},
		Ranking: RankingSettings{MaxResults: 60},
		Log: LogConfig{
			File:       "cache/logs/streamrelay.log",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// EnabledProviders returns the configured providers that are enabled
// and carry an API key, in merge-precedence order.
func (d DebridSettings) EnabledProviders() []DebridProviderSettings {
	byName := make(map[string]DebridProviderSettings, len(d.Providers))
	for _, p := range d.Providers {
		if p.Enabled && p.APIKey != "" {
			byName[p.Name] = p
		}
	}
	ordered := make([]DebridProviderSettings, 0, len(byName))
	for _, name := range d.ProviderOrder {
		if p, ok := byName[name]; ok {
			ordered = append(ordered, p)
			delete(byName, name)
		}
	}
	// Providers missing from the order list still run, after the
	// ordered ones, so a config typo cannot silently drop a provider.
	for _, p := range d.Providers {
		if q, ok := byName[p.Name]; ok {
			ordered = append(ordered, q)
			delete(byName, p.Name)
		}
	}
	return ordered
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the settings file from disk, creating it with defaults if
// missing. Zero-valued tuning knobs are backfilled so older config
// files keep working after upgrades.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	defaults := DefaultSettings()
	if s.Filtering.FuzzyThreshold == 0 {
		s.Filtering.FuzzyThreshold = defaults.Filtering.FuzzyThreshold
	}
	if len(s.Debrid.ProviderOrder) == 0 {
		s.Debrid.ProviderOrder = defaults.Debrid.ProviderOrder
	}
	if s.Debrid.MaxVerifiedResults == 0 {
		s.Debrid.MaxVerifiedResults = defaults.Debrid.MaxVerifiedResults
	}
	if s.Debrid.OverallTimeoutSeconds == 0 {
		s.Debrid.OverallTimeoutSeconds = defaults.Debrid.OverallTimeoutSeconds
	}
	if s.Debrid.ProbeTimeoutSeconds == 0 {
		s.Debrid.ProbeTimeoutSeconds = defaults.Debrid.ProbeTimeoutSeconds
	}
	if s.Debrid.ProbeWorkers == 0 {
		s.Debrid.ProbeWorkers = defaults.Debrid.ProbeWorkers
	}
	if s.Debrid.PollMaxAttempts == 0 {
		s.Debrid.PollMaxAttempts = defaults.Debrid.PollMaxAttempts
	}
	if s.Debrid.PollBaseIntervalSec == 0 {
		s.Debrid.PollBaseIntervalSec = defaults.Debrid.PollBaseIntervalSec
	}
	if s.Ranking.MaxResults == 0 {
		s.Ranking.MaxResults = defaults.Ranking.MaxResults
	}
	if s.Upstreams.Torrentio.BaseURL == "" {
		s.Upstreams.Torrentio.BaseURL = defaults.Upstreams.Torrentio.BaseURL
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
