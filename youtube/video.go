// Package youtube finds a watchable video for a track through the YouTube
// Data API.
package youtube

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"hum-search/apierr"
)

const watchURL = "https://www.youtube.com/watch?v="

type Finder struct {
	apiKey string
	opts   []option.ClientOption
}

// NewFinder returns a Finder authenticated with apiKey. Extra options are
// applied after the key (endpoint and HTTP client overrides).
func NewFinder(apiKey string, opts ...option.ClientOption) *Finder {
	return &Finder{apiKey: apiKey, opts: opts}
}

// FindVideo returns the watch URL of the first video result for query.
func (f *Finder) FindVideo(ctx context.Context, query string) (string, bool, error) {
	if strings.TrimSpace(query) == "" {
		return "", false, nil
	}
	if f.apiKey == "" {
		return "", false, apierr.Config("YOUTUBE_API_KEY")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(f.apiKey)}, f.opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return "", false, apierr.Upstream("youtube", 0, "", err)
	}

	resp, err := svc.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", false, apierr.Upstream("youtube", apiErr.Code, apiErr.Message, nil)
		}
		return "", false, apierr.Upstream("youtube", 0, "", err)
	}

	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			return watchURL + item.Id.VideoId, true, nil
		}
	}
	return "", false, nil
}
