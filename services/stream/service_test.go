package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrelay/config"
	"streamrelay/models"
	"streamrelay/services/debrid"
	"streamrelay/services/upstream"
)

type listerStub struct {
	name       string
	candidates []models.StreamCandidate
}

func (l listerStub) Name() string { return l.name }

func (l listerStub) ListStreams(context.Context, string, string) ([]models.StreamCandidate, error) {
	return l.candidates, nil
}

type verdictProvider struct {
	verdicts map[string]bool
}

func (p verdictProvider) Name() string { return "stub" }

func (p verdictProvider) CheckCache(_ context.Context, hashes []string) (map[string]bool, error) {
	return p.verdicts, nil
}

func pipelineFor(t *testing.T, listers []upstream.Lister, verdicts map[string]bool) *Service {
	t.Helper()
	cfg := config.DefaultSettings()
	cfg.Debrid.ProbeFallback = false
	engine := debrid.NewEngine(cfg.Debrid, []debrid.Provider{verdictProvider{verdicts: verdicts}})
	return NewServiceWith(
		listers,
		NewFilter(cfg.Filtering),
		engine,
		NewDecorator(cfg.Decoration),
		NewRanker(cfg.Ranking, cfg.Filtering),
	)
}

func TestStreamsVerifiedHighTierSortsBeforeCachedLowTier(t *testing.T) {
	hash := strings.Repeat("c", 40)
	cached := models.StreamCandidate{
		SourceURL:   "https://store/matrix-1080.mkv",
		DisplayName: "The Matrix 1080p WEB-DL",
		Description: "eng",
		SizeBytes:   1_500_000_000,
		IsCached:    true,
	}
	uncached := models.StreamCandidate{
		SourceURL:   "magnet:?xt=urn:btih:" + hash,
		DisplayName: "The Matrix 2160p Bluray",
		Description: "eng",
		SizeBytes:   6_000_000_000,
	}

	lister := listerStub{name: "stub", candidates: []models.StreamCandidate{cached, uncached}}
	svc := pipelineFor(t, []upstream.Lister{lister}, map[string]bool{strings.ToUpper(hash): true})

	out := svc.Streams(context.Background(), "movie", "tt0133093", "The Matrix")

	require.Len(t, out, 2)
	assert.Contains(t, out[0].DisplayName, "2160p", "once both are playable, resolution decides")
	assert.Contains(t, out[1].DisplayName, "1080p")
	assert.True(t, out[0].IsCached)
	assert.True(t, out[1].IsCached)
}

func TestStreamsDropsUnverifiableCandidates(t *testing.T) {
	lister := listerStub{name: "stub", candidates: []models.StreamCandidate{
		{SourceURL: "https://host/noname.mkv", DisplayName: "The Matrix 1080p", Description: "eng"},
	}}
	svc := pipelineFor(t, []upstream.Lister{lister}, nil)

	out := svc.Streams(context.Background(), "movie", "tt0133093", "The Matrix")
	assert.Empty(t, out, "no hash, no verdict, no probe: the candidate is dropped")
}

func TestStreamsDeduplicatesAcrossUpstreams(t *testing.T) {
	dup := models.StreamCandidate{
		SourceURL:   "https://store/matrix.mkv",
		DisplayName: "The Matrix 1080p",
		Description: "eng",
		Filename:    "matrix.mkv",
		IsCached:    true,
	}
	a := listerStub{name: "a", candidates: []models.StreamCandidate{dup}}
	b := listerStub{name: "b", candidates: []models.StreamCandidate{dup}}
	svc := pipelineFor(t, []upstream.Lister{a, b}, nil)

	out := svc.Streams(context.Background(), "movie", "tt0133093", "The Matrix")
	assert.Len(t, out, 1)
}

func TestStreamsDecoratesSurvivors(t *testing.T) {
	lister := listerStub{name: "stub", candidates: []models.StreamCandidate{
		{
			SourceURL:   "https://store/matrix.mkv",
			DisplayName: "The Matrix 2160p Remux",
			Description: "torrentio eng atmos 👤 87",
			IsCached:    true,
		},
	}}
	svc := pipelineFor(t, []upstream.Lister{lister}, nil)

	out := svc.Streams(context.Background(), "movie", "tt0133093", "The Matrix")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].DisplayName, "[TIO]")
	assert.Contains(t, out[0].DisplayName, "🇬🇧/EN")
	assert.Contains(t, out[0].DisplayName, "[ATMOS]")
}
