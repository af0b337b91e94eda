package upstream

import (
	"context"
	"log"
	"net/http"

	"github.com/sourcegraph/conc"

	"streamrelay/models"
)

// Lister is a pluggable source of raw stream candidates for one piece
// of media.
type Lister interface {
	Name() string
	ListStreams(ctx context.Context, mediaType, mediaID string) ([]models.StreamCandidate, error)
}

// FetchAll queries every lister concurrently and concatenates the
// results in lister order. A failing lister contributes an empty list;
// the others still count.
func FetchAll(ctx context.Context, listers []Lister, mediaType, mediaID string) []models.StreamCandidate {
	results := make([][]models.StreamCandidate, len(listers))
	var wg conc.WaitGroup
	for i, lister := range listers {
		i, lister := i, lister
		wg.Go(func() {
			candidates, err := lister.ListStreams(ctx, mediaType, mediaID)
			if err != nil {
				log.Printf("[upstream] %s failed for %s/%s: %v", lister.Name(), mediaType, mediaID, err)
				return
			}
			results[i] = candidates
		})
	}
	wg.Wait()

	var merged []models.StreamCandidate
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	return merged
}

func addBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
