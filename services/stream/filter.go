package stream

import (
	"log"
	"regexp"
	"strings"

	"streamrelay/config"
	"streamrelay/models"
	"streamrelay/utils/similarity"
)

// languageTokenPattern picks the short alphabetic tokens release names
// use for language tags ("en", "eng", "vf", "ita", ...).
var languageTokenPattern = regexp.MustCompile(`\b[a-z]{2,3}\b`)

// Filter drops candidates that do not look like the requested title or
// carry no preferred-language signal.
type Filter struct {
	threshold         int
	preferred         map[string]struct{}
	keepMultiLanguage bool
}

func NewFilter(cfg config.FilterSettings) *Filter {
	preferred := make(map[string]struct{}, len(cfg.PreferredLanguages))
	for _, lang := range cfg.PreferredLanguages {
		preferred[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = 70
	}
	return &Filter{
		threshold:         threshold,
		preferred:         preferred,
		keepMultiLanguage: cfg.KeepMultiLanguage,
	}
}

// Apply returns the candidates relevant to title, order preserved. An
// empty title skips the fuzzy check and filters on language only.
func (f *Filter) Apply(title string, in []models.StreamCandidate) []models.StreamCandidate {
	out := make([]models.StreamCandidate, 0, len(in))
	for _, c := range in {
		blob := c.Blob()
		if title != "" && similarity.PartialRatio(title, blob) < f.threshold {
			continue
		}
		if !f.languageMatch(blob) {
			continue
		}
		out = append(out, c)
	}
	if len(out) < len(in) {
		log.Printf("[filter] kept %d of %d candidates for %q", len(out), len(in), title)
	}
	return out
}

// languageMatch reports whether the blob carries at least one preferred
// language token. Blobs with no language tokens at all are rejected;
// claiming a language match the release never stated would be a guess.
func (f *Filter) languageMatch(blob string) bool {
	tokens := languageTokenPattern.FindAllString(blob, -1)
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if _, ok := f.preferred[token]; ok {
			return true
		}
	}
	if f.keepMultiLanguage && strings.Contains(blob, "multi") {
		return true
	}
	return false
}
