package stream

import (
	"streamrelay/models"
	"streamrelay/utils/textnorm"
)

// Normalize merges the concatenated upstream candidate lists into a
// deduplicated, order-stable sequence. Identity is URL plus size plus
// lowercased file extension; the first occurrence wins. Display text is
// folded to its ASCII-compatible form since all downstream matching is
// ASCII-oriented.
func Normalize(in []models.StreamCandidate) []models.StreamCandidate {
	seen := make(map[models.CandidateKey]struct{}, len(in))
	out := make([]models.StreamCandidate, 0, len(in))
	for _, c := range in {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.DisplayName = textnorm.Fold(c.DisplayName)
		c.Description = textnorm.Fold(c.Description)
		out = append(out, c)
	}
	return out
}
