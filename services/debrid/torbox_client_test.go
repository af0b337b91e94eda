package debrid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTorBoxCheckCachePerHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/torrents/checkcached", r.URL.Path)
		switch r.URL.Query().Get("hash") {
		case strings.ToLower(hashA):
			fmt.Fprint(w, `{"success":true,"data":{"cached":true,"name":"movie.mkv","size":123}}`)
		case strings.ToLower(hashB):
			fmt.Fprint(w, `{"success":true,"data":{"cached":false}}`)
		default:
			t.Errorf("unexpected hash %q", r.URL.Query().Get("hash"))
		}
	}))
	defer srv.Close()

	c := NewTorBoxClient("test-key", ClientOptions{BaseURL: srv.URL})
	verdicts, err := c.CheckCache(context.Background(), []string{hashA, hashB})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{hashA: true, hashB: false}, verdicts)
}

func TestTorBoxTransportErrorMapsSingleHashFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("hash") == strings.ToLower(hashA) {
			http.Error(w, "shard offline", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"cached":true}}`)
	}))
	defer srv.Close()

	c := NewTorBoxClient("test-key", ClientOptions{BaseURL: srv.URL})
	verdicts, err := c.CheckCache(context.Background(), []string{hashA, hashB})
	require.NoError(t, err)

	// A failed lookup downgrades that hash only; the rest of the batch
	// still resolves.
	assert.Equal(t, map[string]bool{hashA: false, hashB: true}, verdicts)
}

func TestTorBoxAuthFailureAbortsRemainingLookups(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewTorBoxClient("bad-key", ClientOptions{BaseURL: srv.URL})
	verdicts, err := c.CheckCache(context.Background(), []string{hashA, hashB})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{hashA: false}, verdicts)
	assert.Equal(t, 1, requests)

	// Disabled clients short-circuit entirely on the next batch.
	verdicts, err = c.CheckCache(context.Background(), []string{hashB})
	require.NoError(t, err)
	assert.Empty(t, verdicts)
	assert.Equal(t, 1, requests)
}

func TestTorBoxUnsuccessfulResponseIsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"data":{}}`)
	}))
	defer srv.Close()

	c := NewTorBoxClient("test-key", ClientOptions{BaseURL: srv.URL})
	verdicts, err := c.CheckCache(context.Background(), []string{hashA})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{hashA: false}, verdicts)
}
