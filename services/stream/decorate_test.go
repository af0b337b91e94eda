package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"streamrelay/config"
	"streamrelay/models"
)

func defaultDecorator() *Decorator {
	return NewDecorator(config.DecorationSettings{
		ServiceMarkers: []config.ServiceMarker{
			{Match: "aggregator", Marker: "[AGG]"},
			{Match: "torrentio", Marker: "[TIO]"},
			{Match: "realdebrid", Marker: "[RD+]"},
		},
	})
}

func TestDecorateAppendsServiceMarkerFirstMatchWins(t *testing.T) {
	c := models.StreamCandidate{
		DisplayName: "Movie 1080p",
		Description: "via realdebrid through aggregator",
	}
	defaultDecorator().Decorate(&c)
	assert.Contains(t, c.DisplayName, "[AGG]")
	assert.NotContains(t, c.DisplayName, "[RD+]")
}

func TestDecorateAppendsLanguageFlagsAndAudio(t *testing.T) {
	c := models.StreamCandidate{
		DisplayName: "Movie 1080p",
		Description: "eng ita dts-hd 5.1",
	}
	defaultDecorator().Decorate(&c)
	assert.Contains(t, c.DisplayName, "🇬🇧/EN")
	assert.Contains(t, c.DisplayName, "🇮🇹/IT")
	assert.Contains(t, c.DisplayName, "[DTS-HD]")
	// Only one audio tag, the first vocabulary hit.
	assert.NotContains(t, c.DisplayName, "[5.1]")
}

func TestDecorateIsIdempotent(t *testing.T) {
	c := models.StreamCandidate{
		DisplayName: "Movie 1080p",
		Description: "torrentio eng atmos",
	}
	d := defaultDecorator()
	d.Decorate(&c)
	once := c.DisplayName
	d.Decorate(&c)
	assert.Equal(t, once, c.DisplayName, "re-decoration must not duplicate tags")
}

func TestDecorateRewritesPlaceholderName(t *testing.T) {
	c := models.StreamCandidate{
		DisplayName: "{quality} stream",
		Description: "The.Movie.2023.2160p.REMUX.mkv",
	}
	defaultDecorator().Decorate(&c)
	assert.Contains(t, c.DisplayName, "REMUX")
	assert.Contains(t, c.DisplayName, "2160p")
	assert.NotContains(t, c.DisplayName, "{")
}

func TestDecorateRewriteFallsBackToUnknown(t *testing.T) {
	c := models.StreamCandidate{
		DisplayName: "{template}",
		Description: "no recognizable signals here",
	}
	defaultDecorator().Decorate(&c)
	assert.Contains(t, c.DisplayName, "Unknown quality")
	assert.Contains(t, c.DisplayName, "Unknown resolution")
}
