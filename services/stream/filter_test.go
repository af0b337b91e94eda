package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrelay/config"
	"streamrelay/models"
)

func defaultFilter() *Filter {
	return NewFilter(config.FilterSettings{
		FuzzyThreshold:     70,
		PreferredLanguages: []string{"en", "eng"},
	})
}

func TestFilterKeepsRelevantPreferredLanguage(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "The.Matrix.1999.1080p.BluRay", Description: "eng subs"},
	}
	out := defaultFilter().Apply("The Matrix", in)
	assert.Len(t, out, 1)
}

func TestFilterDropsLowScoreEvenWithLanguageMatch(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Despicable.Me.4.2024.720p", Description: "eng"},
	}
	out := defaultFilter().Apply("The Matrix", in)
	assert.Empty(t, out)
}

func TestFilterDropsWrongLanguage(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "The Matrix", Description: "vf fre truefrench"},
	}
	out := defaultFilter().Apply("The Matrix", in)
	assert.Empty(t, out)
}

func TestFilterDropsBlobWithoutLanguageTokens(t *testing.T) {
	// A blob of long words and numbers yields no 2-3 letter tokens;
	// without any language signal the candidate is rejected.
	in := []models.StreamCandidate{
		{DisplayName: "Matrix", Description: "4320548 remastered"},
	}
	out := defaultFilter().Apply("Matrix", in)
	assert.Empty(t, out)
}

func TestFilterMultiLanguageKnob(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "The Matrix MULTI", Description: "vf ita"},
	}

	assert.Empty(t, defaultFilter().Apply("The Matrix", in))

	keep := NewFilter(config.FilterSettings{
		FuzzyThreshold:     70,
		PreferredLanguages: []string{"en"},
		KeepMultiLanguage:  true,
	})
	assert.Len(t, keep.Apply("The Matrix", in), 1)
}

func TestFilterEmptyTitleSkipsFuzzyCheck(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "Anything.At.All.1080p", Description: "eng"},
	}
	out := defaultFilter().Apply("", in)
	require.Len(t, out, 1)
}

func TestFilterPreservesOrder(t *testing.T) {
	in := []models.StreamCandidate{
		{DisplayName: "The Matrix 2160p", Description: "eng", SourceURL: "a"},
		{DisplayName: "Matrix Reloaded cam", Description: "spa"},
		{DisplayName: "The Matrix 720p", Description: "eng", SourceURL: "b"},
	}
	out := defaultFilter().Apply("The Matrix", in)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SourceURL)
	assert.Equal(t, "b", out[1].SourceURL)
}
