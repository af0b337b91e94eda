package stream

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"streamrelay/config"
	"streamrelay/models"
)

// seederPatterns are the labeled-number forms seen in release text;
// the first one that matches supplies the seeder count.
var seederPatterns = []*regexp.Regexp{
	regexp.MustCompile(`👤\s*(\d+)`),
	regexp.MustCompile(`\b(\d+)\s*seed(?:er)?s?\b`),
	regexp.MustCompile(`\bseeds?:\s*(\d+)`),
}

// curationMarkers flag releases an upstream curator singled out.
var curationMarkers = []string{"👑", "⭐", "recommended"}

type resolutionTier struct {
	token string
	tier  float64
}

// Checked in priority order; the first token present in the blob wins
// even when several appear.
var resolutionTiers = []resolutionTier{
	{"2160p", 0}, {"4k", 0},
	{"1440p", 1},
	{"1080p", 2},
	{"720p", 3},
}

type qualityTier struct {
	token string
	tier  float64
}

// Both specific web forms must precede the bare "web", since the scan
// is a plain substring match.
var qualityTiers = []qualityTier{
	{"remux", 0},
	{"bluray", 1}, {"blu-ray", 1}, {"bdrip", 1},
	{"web-dl", 2}, {"webdl", 2},
	{"webrip", 3}, {"web", 3},
	{"hdtv", 4},
	{"telesync", 5},
}

// Ranker orders the final candidate list by a nine-key ascending
// tuple: cache status, completion signal, resolution tier, quality
// tier, curation, origin tier, language match, then negative size and
// negative seeders as continuous tie-breakers. Ties after all nine
// keys keep input order.
type Ranker struct {
	preferred  map[string]struct{}
	maxResults int
}

func NewRanker(cfg config.RankingSettings, filtering config.FilterSettings) *Ranker {
	preferred := make(map[string]struct{}, len(filtering.PreferredLanguages))
	for _, lang := range filtering.PreferredLanguages {
		preferred[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 60
	}
	return &Ranker{preferred: preferred, maxResults: maxResults}
}

// Rank sorts candidates best-first and truncates to the configured
// maximum.
func (r *Ranker) Rank(in []models.StreamCandidate) []models.StreamCandidate {
	keys := make([][9]float64, len(in))
	for i, c := range in {
		keys[i] = r.sortKey(c)
	}
	indexes := make([]int, len(in))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		ka, kb := keys[indexes[a]], keys[indexes[b]]
		for i := range ka {
			if ka[i] != kb[i] {
				return ka[i] < kb[i]
			}
		}
		return false
	})

	limit := len(indexes)
	if limit > r.maxResults {
		limit = r.maxResults
	}
	out := make([]models.StreamCandidate, 0, limit)
	for _, idx := range indexes[:limit] {
		out = append(out, in[idx])
	}
	return out
}

func (r *Ranker) sortKey(c models.StreamCandidate) [9]float64 {
	blob := c.Blob()
	return [9]float64{
		boolKey(c.IsCached),
		boolKey(c.IsCached || strings.Contains(blob, "complete") || strings.Contains(blob, "100%")),
		scanTier(blob, resolutionTiers, 4),
		scanQuality(blob),
		boolKey(containsAny(blob, curationMarkers)),
		originTier(blob),
		boolKey(r.languageHit(blob)),
		-float64(c.SizeBytes) / float64(1<<30),
		-float64(parseSeeders(blob)),
	}
}

// boolKey maps "good" to 0 so it sorts first.
func boolKey(good bool) float64 {
	if good {
		return 0
	}
	return 1
}

func scanTier(blob string, tiers []resolutionTier, worst float64) float64 {
	for _, t := range tiers {
		if strings.Contains(blob, t.token) {
			return t.tier
		}
	}
	return worst
}

func scanQuality(blob string) float64 {
	for _, t := range qualityTiers {
		if strings.Contains(blob, t.token) {
			return t.tier
		}
	}
	return 6
}

// originTier prefers the aggregator's own store, then the two debrid
// brands, using the service markers the decorator appended.
func originTier(blob string) float64 {
	switch {
	case strings.Contains(blob, "[agg]") || strings.Contains(blob, "aggregator"):
		return 0
	case strings.Contains(blob, "[rd+]") || strings.Contains(blob, "realdebrid"):
		return 1
	case strings.Contains(blob, "[ad+]") || strings.Contains(blob, "alldebrid"):
		return 2
	default:
		return 3
	}
}

func (r *Ranker) languageHit(blob string) bool {
	for _, token := range languageTokenPattern.FindAllString(blob, -1) {
		if _, ok := r.preferred[token]; ok {
			return true
		}
	}
	return false
}

func containsAny(blob string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(blob, m) {
			return true
		}
	}
	return false
}

func parseSeeders(blob string) int {
	for _, p := range seederPatterns {
		if m := p.FindStringSubmatch(blob); len(m) == 2 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
