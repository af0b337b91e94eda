package debrid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContentHash(t *testing.T) {
	lower := strings.ToLower(hashA)
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"magnet link", "magnet:?xt=urn:btih:" + lower + "&dn=Movie", hashA},
		{"path segment", "https://host/stream/" + lower + "/0/movie.mkv", hashA},
		{"already upper", "magnet:?xt=urn:btih:" + hashA, hashA},
		{"no hash", "https://host/direct/movie.mkv", ""},
		{"too short", "https://host/" + lower[:39] + "/movie.mkv", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractContentHash(tc.url))
		})
	}
}

func TestRegistryConstructsBuiltinProviders(t *testing.T) {
	for _, name := range []string{"realdebrid", "torbox", "alldebrid", "RealDebrid"} {
		p, ok := GetProvider(name, "key", ClientOptions{})
		require.True(t, ok, "provider %q should be registered", name)
		assert.Equal(t, strings.ToLower(name), p.Name())
	}

	_, ok := GetProvider("nosuch", "key", ClientOptions{})
	assert.False(t, ok)
}

func TestAuthGateDisablesOnce(t *testing.T) {
	var g authGate
	assert.True(t, g.ok())
	g.disable("test")
	assert.False(t, g.ok())
	g.disable("test")
	assert.False(t, g.ok())
}

func TestIsAuthStatus(t *testing.T) {
	assert.True(t, isAuthStatus(401))
	assert.True(t, isAuthStatus(403))
	assert.False(t, isAuthStatus(404))
	assert.False(t, isAuthStatus(500))
}
