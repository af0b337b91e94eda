package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrelay/config"
	"streamrelay/models"
)

func defaultRanker() *Ranker {
	return NewRanker(
		config.RankingSettings{MaxResults: 60},
		config.FilterSettings{PreferredLanguages: []string{"en", "eng"}},
	)
}

func TestRankCachedBeforeUncached(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Uncached 2160p remux", IsCached: false},
		{DisplayName: "Cached 720p telesync", IsCached: true},
	}
	out := defaultRanker().Rank(in)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsCached)
}

func TestRankResolutionTier(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Movie 720p", IsCached: true},
		{DisplayName: "Movie 2160p", IsCached: true},
		{DisplayName: "Movie 1080p", IsCached: true},
		{DisplayName: "Movie 1440p", IsCached: true},
	}
	out := defaultRanker().Rank(in)
	require.Len(t, out, 4)
	assert.Contains(t, out[0].DisplayName, "2160p")
	assert.Contains(t, out[1].DisplayName, "1440p")
	assert.Contains(t, out[2].DisplayName, "1080p")
	assert.Contains(t, out[3].DisplayName, "720p")
}

func TestRankFirstResolutionTokenWins(t *testing.T) {
	// "2160p" beats the also-present "720p" because priority order,
	// not position in the text, decides the tier.
	in := []models.StreamCandidate{
		{DisplayName: "Movie 720p upscaled to 2160p", IsCached: true},
		{DisplayName: "Movie 1080p", IsCached: true},
	}
	out := defaultRanker().Rank(in)
	assert.Contains(t, out[0].DisplayName, "2160p")
}

func TestRankQualityTier(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Movie 1080p webrip", IsCached: true},
		{DisplayName: "Movie 1080p remux", IsCached: true},
		{DisplayName: "Movie 1080p web-dl", IsCached: true},
		{DisplayName: "Movie 1080p bluray", IsCached: true},
	}
	out := defaultRanker().Rank(in)
	require.Len(t, out, 4)
	assert.Contains(t, out[0].DisplayName, "remux")
	assert.Contains(t, out[1].DisplayName, "bluray")
	assert.Contains(t, out[2].DisplayName, "web-dl")
	assert.Contains(t, out[3].DisplayName, "webrip")
}

func TestRankLargerSizeWinsTies(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Movie 1080p bluray eng", IsCached: true, SizeBytes: 2 << 30},
		{DisplayName: "Movie 1080p bluray eng", IsCached: true, SizeBytes: 8 << 30},
	}
	out := defaultRanker().Rank(in)
	assert.Equal(t, int64(8<<30), out[0].SizeBytes)
}

func TestRankSeedersBreakFinalTies(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Movie 1080p bluray eng", Description: "👤 12", IsCached: true, SizeBytes: 4 << 30},
		{DisplayName: "Movie 1080p bluray eng", Description: "👤 340", IsCached: true, SizeBytes: 4 << 30},
	}
	out := defaultRanker().Rank(in)
	assert.Contains(t, out[0].Description, "340")
}

func TestRankCompletionSignal(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Movie 1080p bluray"},
		{DisplayName: "Movie 1080p bluray COMPLETE"},
	}
	out := defaultRanker().Rank(in)
	assert.Contains(t, out[0].DisplayName, "COMPLETE")
}

func TestRankStableTruncation(t *testing.T) {
	r := NewRanker(config.RankingSettings{MaxResults: 3}, config.FilterSettings{})
	var in []models.StreamCandidate
	for i := 0; i < 10; i++ {
		in = append(in, models.StreamCandidate{DisplayName: fmt.Sprintf("Movie %d 1080p bluray", i), IsCached: true})
	}
	out := r.Rank(in)
	require.Len(t, out, 3)
	for i, c := range out {
		assert.Equal(t, fmt.Sprintf("Movie %d 1080p bluray", i), c.DisplayName, "equal keys must keep input order")
	}
}

func TestParseSeedersLabeledPatterns(t *testing.T) {
	assert.Equal(t, 87, parseSeeders("movie 👤 87 blob"))
	assert.Equal(t, 42, parseSeeders("movie 42 seeders"))
	assert.Equal(t, 7, parseSeeders("seeds: 7"))
	assert.Equal(t, 0, parseSeeders("no counts here"))
}
