package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"hum-search/apierr"
)

// RemoteTokenSource fetches tokens from a running server's /token endpoint.
// It is used when handlers are configured to reach each other over HTTP.
type RemoteTokenSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteTokenSource(baseURL string) *RemoteTokenSource {
	return &RemoteTokenSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RemoteTokenSource) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/token", nil)
	if err != nil {
		return "", apierr.Upstream("token endpoint", 0, "", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apierr.Upstream("token endpoint", 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.Upstream("token endpoint", resp.StatusCode, "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apierr.Upstream("token endpoint", resp.StatusCode, string(body), nil)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", apierr.Upstream("token endpoint", resp.StatusCode, "", err)
	}
	if payload.AccessToken == "" {
		return "", apierr.Upstream("token endpoint", resp.StatusCode, "response has no access_token", nil)
	}
	return payload.AccessToken, nil
}
