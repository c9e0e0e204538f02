package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("missing %s", "audio"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("hum: %w", Validation("bad form")), http.StatusBadRequest},
		{"config", Config("ACR_HOST"), http.StatusInternalServerError},
		{"upstream", Upstream("spotify search", 502, "bad gateway", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorsAsThroughStackTrace(t *testing.T) {
	err := Config("SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET")

	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET"}, configErr.Keys)
	assert.Contains(t, err.Error(), "SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET")
}

func TestUpstreamStatus(t *testing.T) {
	status, ok := UpstreamStatus(Upstream("spotify accounts", 400, `{"error":"invalid_client"}`, nil))
	assert.True(t, ok)
	assert.Equal(t, 400, status)

	_, ok = UpstreamStatus(Upstream("acrcloud", 0, "", errors.New("dial tcp: timeout")))
	assert.False(t, ok)

	_, ok = UpstreamStatus(Config("ACR_HOST"))
	assert.False(t, ok)
}

func TestUpstreamErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("acrcloud", 0, "", cause)
	assert.Contains(t, err.Error(), "acrcloud request failed")
	assert.True(t, errors.Is(err, cause))

	long := strings.Repeat("x", 500)
	err = Upstream("spotify search", 500, long, nil)
	assert.Less(t, len(err.Error()), 300)
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}
