package stream

import (
	"fmt"
	"regexp"
	"strings"

	"streamrelay/config"
	"streamrelay/models"
)

// placeholderPattern matches unresolved template fragments some
// upstreams leave in display names ("{quality}", "{resolution}").
var placeholderPattern = regexp.MustCompile(`\{[^}]*\}`)

// languageFlags maps language tokens to a flag glyph with a text
// fallback for clients that cannot render the emoji.
var languageFlags = []struct {
	tokens []string
	glyph  string
}{
	{tokens: []string{"en", "eng"}, glyph: "🇬🇧/EN"},
	{tokens: []string{"fr", "vf", "fre"}, glyph: "🇫🇷/FR"},
	{tokens: []string{"de", "ger"}, glyph: "🇩🇪/DE"},
	{tokens: []string{"es", "spa"}, glyph: "🇪🇸/ES"},
	{tokens: []string{"it", "ita"}, glyph: "🇮🇹/IT"},
	{tokens: []string{"ja", "jpn"}, glyph: "🇯🇵/JA"},
}

// audioVocabulary is scanned in order; the first marker found in the
// blob is the one appended. Longer variants come before their prefixes.
var audioVocabulary = []string{
	"atmos",
	"truehd",
	"dts-hd",
	"dts",
	"eac3",
	"ddp",
	"dd+",
	"ac3",
	"flac",
	"aac",
	"opus",
	"7.1",
	"5.1",
}

var (
	resolutionPattern = regexp.MustCompile(`(?i)\b(2160p|4k|1440p|1080p|720p|480p)\b`)
	qualityPattern    = regexp.MustCompile(`(?i)\b(remux|blu-?ray|bdrip|web-?dl|webrip|hdtv|telesync)\b`)
)

// Decorator annotates surviving candidates for display: a service
// marker, language flags and an audio tag, plus a wholesale rewrite of
// names that still carry template placeholders. All appends are
// guarded, so decorating an already-decorated candidate changes
// nothing.
type Decorator struct {
	markers []config.ServiceMarker
}

func NewDecorator(cfg config.DecorationSettings) *Decorator {
	return &Decorator{markers: cfg.ServiceMarkers}
}

// Decorate mutates the candidate's display name in place.
func (d *Decorator) Decorate(c *models.StreamCandidate) {
	if placeholderPattern.MatchString(c.DisplayName) {
		c.DisplayName = rewriteName(c)
	}

	blob := c.Blob()
	if marker := d.serviceMarker(blob); marker != "" && !strings.Contains(c.DisplayName, marker) {
		c.DisplayName += " " + marker
	}
	for _, flag := range flagsFor(blob) {
		if !strings.Contains(c.DisplayName, flag) {
			c.DisplayName += " " + flag
		}
	}
	if audio := audioTag(blob); audio != "" && !strings.Contains(c.DisplayName, audio) {
		c.DisplayName += " " + audio
	}
}

// serviceMarker returns the marker of the first configured service
// whose match string appears in the blob.
func (d *Decorator) serviceMarker(blob string) string {
	for _, m := range d.markers {
		if m.Match != "" && strings.Contains(blob, strings.ToLower(m.Match)) {
			return m.Marker
		}
	}
	return ""
}

func flagsFor(blob string) []string {
	tokens := languageTokenPattern.FindAllString(blob, -1)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}
	var flags []string
	for _, entry := range languageFlags {
		for _, t := range entry.tokens {
			if _, ok := tokenSet[t]; ok {
				flags = append(flags, entry.glyph)
				break
			}
		}
	}
	return flags
}

func audioTag(blob string) string {
	for _, marker := range audioVocabulary {
		if strings.Contains(blob, marker) {
			return "[" + strings.ToUpper(marker) + "]"
		}
	}
	return ""
}

// rewriteName replaces a templated display name outright with a
// best-effort quality/resolution summary scanned from the candidate's
// text. The original name is not recoverable afterwards.
func rewriteName(c *models.StreamCandidate) string {
	scan := c.Description + " " + c.DisplayName

	quality := "Unknown quality"
	if m := qualityPattern.FindString(scan); m != "" {
		quality = strings.ToUpper(m)
	}
	resolution := "Unknown resolution"
	if m := resolutionPattern.FindString(scan); m != "" {
		resolution = strings.ToLower(m)
	}
	return fmt.Sprintf("%s %s", quality, resolution)
}
