package stream

import (
	"context"
	"log"
	"time"

	"streamrelay/config"
	"streamrelay/models"
	"streamrelay/services/debrid"
	"streamrelay/services/upstream"
)

// Verifier resolves the cache status of uncached candidates.
type Verifier interface {
	Verify(ctx context.Context, candidates []models.StreamCandidate) []models.StreamCandidate
}

// Service runs the whole pipeline for one request: fetch upstreams
// concurrently, normalize, filter, verify, decorate, rank. It holds no
// per-request state; everything lives and dies within a single call.
type Service struct {
	listers   []upstream.Lister
	filter    *Filter
	verifier  Verifier
	decorator *Decorator
	ranker    *Ranker
}

// NewService wires the pipeline from configuration.
func NewService(cfg config.Settings) *Service {
	var listers []upstream.Lister
	if cfg.Upstreams.Torrentio.Enabled {
		listers = append(listers, upstream.NewTorrentioClient(cfg.Upstreams.Torrentio, nil))
	}
	if cfg.Upstreams.Aggregator.Enabled {
		listers = append(listers, upstream.NewAggregatorClient(cfg.Upstreams.Aggregator, nil))
	}
	providers := debrid.ProvidersFromSettings(cfg.Debrid)
	return &Service{
		listers:   listers,
		filter:    NewFilter(cfg.Filtering),
		verifier:  debrid.NewEngine(cfg.Debrid, providers),
		decorator: NewDecorator(cfg.Decoration),
		ranker:    NewRanker(cfg.Ranking, cfg.Filtering),
	}
}

// NewServiceWith builds a service over explicit collaborators.
func NewServiceWith(listers []upstream.Lister, filter *Filter, verifier Verifier, decorator *Decorator, ranker *Ranker) *Service {
	return &Service{
		listers:   listers,
		filter:    filter,
		verifier:  verifier,
		decorator: decorator,
		ranker:    ranker,
	}
}

// Streams resolves the ranked stream list for one media item. Title may
// be empty, in which case relevance filtering is skipped and only the
// language filter applies. The pipeline never fails: the worst case is
// an empty list.
func (s *Service) Streams(ctx context.Context, mediaType, mediaID, title string) []models.StreamCandidate {
	start := time.Now()

	raw := upstream.FetchAll(ctx, s.listers, mediaType, mediaID)
	normalized := Normalize(raw)
	relevant := s.filter.Apply(title, normalized)
	verified := s.verifier.Verify(ctx, relevant)
	for i := range verified {
		s.decorator.Decorate(&verified[i])
	}
	ranked := s.ranker.Rank(verified)

	log.Printf("[pipeline] %s/%s: %d raw -> %d unique -> %d relevant -> %d playable -> %d returned in %s",
		mediaType, mediaID, len(raw), len(normalized), len(relevant), len(verified), len(ranked), time.Since(start).Round(time.Millisecond))
	return ranked
}
