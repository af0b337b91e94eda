package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"streamrelay/models"
	"streamrelay/services/stream"
)

// StreamHandler exposes the pipeline as Stremio-style endpoints.
type StreamHandler struct {
	service  *stream.Service
	manifest models.Manifest
}

func NewStreamHandler(service *stream.Service) *StreamHandler {
	return &StreamHandler{
		service: service,
		manifest: models.Manifest{
			ID:          "community.streamrelay",
			Version:     "1.0.0",
			Name:        "StreamRelay",
			Description: "Aggregated, cache-verified and ranked debrid streams",
			Resources:   []string{"stream"},
			Types:       []string{"movie", "series"},
			Catalogs:    []models.ManifestItem{},
			IDPrefixes:  []string{"tt"},
		},
	}
}

// Manifest serves the add-on manifest.
func (h *StreamHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manifest)
}

// Streams serves the ranked stream list for one media item. The
// optional title query parameter enables relevance filtering.
func (h *StreamHandler) Streams(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType := vars["type"]
	mediaID := strings.TrimSuffix(vars["id"], ".json")
	title := r.URL.Query().Get("title")

	requestID := uuid.NewString()[:8]
	start := time.Now()
	log.Printf("[stream] req=%s %s/%s title=%q", requestID, mediaType, mediaID, title)

	candidates := h.service.Streams(r.Context(), mediaType, mediaID, title)

	streams := make([]models.Stream, 0, len(candidates))
	for _, c := range candidates {
		streams = append(streams, models.FromCandidate(c))
	}
	log.Printf("[stream] req=%s returning %d stream(s) in %s", requestID, len(streams), time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, models.StreamResponse{Streams: streams})
}

// Health reports liveness.
func (h *StreamHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}
