package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"streamrelay/handlers"
)

// corsMiddleware handles CORS for all routes; media clients call the
// add-on from arbitrary origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter mounts the add-on endpoints.
func NewRouter(streamHandler *handlers.StreamHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/manifest.json", streamHandler.Manifest).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/stream/{type}/{id}", streamHandler.Streams).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/health", streamHandler.Health).Methods(http.MethodGet, http.MethodOptions)

	return r
}
