// Package spotify talks to the catalog service: bearer tokens through the
// client-credentials grant and track search mapped to models.Track.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"

	"hum-search/apierr"
	"hum-search/models"
)

const (
	SearchURL = "https://api.spotify.com/v1/search"

	maxLimit = 50
)

// Searcher runs track searches against the catalog.
type Searcher struct {
	tokens     TokenSource
	searchURL  string
	httpClient *http.Client
}

type SearcherOption func(*Searcher)

func WithSearchURL(searchURL string) SearcherOption {
	return func(s *Searcher) { s.searchURL = searchURL }
}

func WithSearchHTTPClient(client *http.Client) SearcherOption {
	return func(s *Searcher) { s.httpClient = client }
}

func NewSearcher(tokens TokenSource, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		tokens:     tokens,
		searchURL:  SearchURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchTracks returns up to limit tracks for query. A blank query returns
// an empty list without touching the network.
func (s *Searcher) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Track{}, nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apierr.Upstream("spotify search", 0, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Upstream("spotify search", 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream("spotify search", resp.StatusCode, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.Upstream("spotify search", resp.StatusCode, string(body), nil)
	}

	tracks, err := parseTracks(body)
	if err != nil {
		return nil, apierr.Upstream("spotify search", resp.StatusCode, "", err)
	}
	return tracks, nil
}

// parseTracks maps tracks.items of a search response. Items that are not
// objects or carry no id are skipped; every other field is optional.
func parseTracks(body []byte) ([]models.Track, error) {
	if !json.Valid(body) {
		return nil, errors.New("malformed search response")
	}

	tracks := make([]models.Track, 0)

	_, dataType, _, err := jsonparser.Get(body, "tracks", "items")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, err
	}
	if dataType != jsonparser.Array {
		return tracks, nil
	}

	_, err = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.Object {
			return
		}
		if track, ok := parseTrack(value); ok {
			tracks = append(tracks, track)
		}
	}, "tracks", "items")
	if err != nil {
		return nil, err
	}

	return tracks, nil
}

func parseTrack(item []byte) (models.Track, bool) {
	id, err := jsonparser.GetString(item, "id")
	if err != nil || id == "" {
		return models.Track{}, false
	}

	name, _ := jsonparser.GetString(item, "name")
	album, _ := jsonparser.GetString(item, "album", "name")

	return models.Track{
		ID:          id,
		Name:        name,
		Artists:     strings.Join(nonEmpty(stringsAt(item, "name", "artists")), ", "),
		Album:       album,
		Image:       pickImage(stringsAt(item, "url", "album", "images")),
		PreviewURL:  optionalString(item, "preview_url"),
		ExternalURL: optionalString(item, "external_urls", "spotify"),
	}, true
}

// stringsAt collects field from every object of the array at path, keeping
// positions ("" for entries without the field).
func stringsAt(data []byte, field string, path ...string) []string {
	var out []string
	_, _ = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		s, _ := jsonparser.GetString(value, field)
		out = append(out, s)
	}, path...)
	return out
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pickImage prefers the medium rendition (second entry) and falls back to
// the first.
func pickImage(urls []string) string {
	if len(urls) > 1 && urls[1] != "" {
		return urls[1]
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func optionalString(data []byte, keys ...string) *string {
	s, err := jsonparser.GetString(data, keys...)
	if err != nil {
		return nil
	}
	return &s
}
