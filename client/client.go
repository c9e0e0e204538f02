// Package client calls a running hum-search server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hum-search/models"
)

// Result is the body of both search endpoints.
type Result struct {
	Tracks []models.Track `json:"tracks"`
	Note   string         `json:"note,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the server at baseURL, with a 60 second timeout
// covering upload, identification and search.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// SearchText posts a lyric fragment to /search/text.
func (c *Client) SearchText(ctx context.Context, query string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/search/text?q="+url.QueryEscape(query), nil)
	if err != nil {
		return Result{}, err
	}
	return c.do(req)
}

// SearchHum uploads a recorded sample, with an optional text hint, to
// /search/hum.
func (c *Client) SearchHum(ctx context.Context, sample []byte, hint string) (Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("audio", "hum.wav")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(sample); err != nil {
		return Result{}, err
	}
	if hint != "" {
		if err := w.WriteField("hint", hint); err != nil {
			return Result{}, err
		}
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/hum", &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			return Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, failure.Error)
		}
		return Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %v", err)
	}
	return result, nil
}
