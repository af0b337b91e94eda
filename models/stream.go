package models

import (
	"path"
	"strings"
)

// StreamCandidate is one potential playable item flowing through the
// pipeline. DisplayName, Description and Filename are mutated in place
// by the decoration step; nothing downstream needs the original text.
type StreamCandidate struct {
	SourceURL   string `json:"sourceUrl"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"videoSizeBytes"`
	IsCached    bool   `json:"isCached"`
}

// CandidateKey is the dedup identity: two candidates with the same URL,
// size and lowercased file extension are interchangeable.
type CandidateKey struct {
	URL  string
	Size int64
	Ext  string
}

// Key returns the dedup identity for this candidate.
func (c StreamCandidate) Key() CandidateKey {
	return CandidateKey{
		URL:  c.SourceURL,
		Size: c.SizeBytes,
		Ext:  strings.ToLower(path.Ext(c.Filename)),
	}
}

// Blob returns the case-folded combined text used for fuzzy matching,
// language token scanning and rank signals.
func (c StreamCandidate) Blob() string {
	return strings.ToLower(c.DisplayName + " " + c.Description + " " + c.Filename)
}

// StreamResponse is the wire response rendered by the media client.
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single playable entry in the response.
type Stream struct {
	URL           string         `json:"url,omitempty"`
	Name          string         `json:"name,omitempty"`
	Description   string         `json:"description,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints carries playback hints for the client.
type BehaviorHints struct {
	NotWebReady bool   `json:"notWebReady,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
	VideoSize   int64  `json:"videoSize,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// Manifest describes this add-on to the media client.
type Manifest struct {
	ID          string         `json:"id"`
	Version     string         `json:"version"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Resources   []string       `json:"resources"`
	Types       []string       `json:"types"`
	Catalogs    []ManifestItem `json:"catalogs"`
	IDPrefixes  []string       `json:"idPrefixes,omitempty"`
}

// ManifestItem is a catalog entry in the manifest.
type ManifestItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// FromCandidate converts a decorated pipeline candidate to its wire form.
func FromCandidate(c StreamCandidate) Stream {
	var hints *BehaviorHints
	if c.SizeBytes > 0 || c.Filename != "" {
		hints = &BehaviorHints{
			VideoSize: c.SizeBytes,
			Filename:  c.Filename,
		}
	}
	return Stream{
		URL:           c.SourceURL,
		Name:          c.DisplayName,
		Description:   c.Description,
		BehaviorHints: hints,
	}
}
