package acrcloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"hum-search/apierr"
	"hum-search/models"
)

const (
	// MaxSampleBytes is the largest sample the service accepts.
	MaxSampleBytes = 10 << 20

	sampleContentType = "application/octet-stream"

	statusSuccess  = 0
	statusNoResult = 1001
)

// Client submits samples to the identify endpoint of one ACRCloud project.
type Client struct {
	host         string
	accessKey    string
	accessSecret string
	httpClient   *http.Client
	now          func() time.Time
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithClock overrides the source of the request timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(host, accessKey, accessSecret string, opts ...Option) *Client {
	c := &Client{
		host:         host,
		accessKey:    accessKey,
		accessSecret: accessSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identify submits sample and returns the top match. found is false when
// the service recognised nothing; that is a normal outcome, not an error.
func (c *Client) Identify(ctx context.Context, sample []byte) (match models.Match, found bool, err error) {
	if missing := c.missingConfig(); len(missing) > 0 {
		return models.Match{}, false, apierr.Config(missing...)
	}

	if len(sample) > MaxSampleBytes {
		sample = sample[:MaxSampleBytes]
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := Sign(StringToSign(http.MethodPost, IdentifyPath, c.accessKey, timestamp), c.accessSecret)

	body, contentType, err := buildForm(c.accessKey, sample, timestamp, signature)
	if err != nil {
		return models.Match{}, false, apierr.Upstream("acrcloud", 0, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), body)
	if err != nil {
		return models.Match{}, false, apierr.Upstream("acrcloud", 0, "", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Match{}, false, apierr.Upstream("acrcloud", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Match{}, false, apierr.Upstream("acrcloud", resp.StatusCode, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Match{}, false, apierr.Upstream("acrcloud", resp.StatusCode, string(raw), nil)
	}

	return parseResult(raw)
}

func (c *Client) missingConfig() []string {
	var missing []string
	if c.host == "" {
		missing = append(missing, "ACR_HOST")
	}
	if c.accessKey == "" {
		missing = append(missing, "ACR_ACCESS_KEY")
	}
	if c.accessSecret == "" {
		missing = append(missing, "ACR_ACCESS_SECRET")
	}
	return missing
}

// endpoint accepts a bare host ("identify-eu-west-1.acrcloud.com") or a
// full base URL.
func (c *Client) endpoint() string {
	if strings.Contains(c.host, "://") {
		return strings.TrimRight(c.host, "/") + IdentifyPath
	}
	return "https://" + c.host + IdentifyPath
}

func buildForm(accessKey string, sample []byte, timestamp, signature string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"access_key", accessKey},
		{"sample_bytes", strconv.Itoa(len(sample))},
		{"timestamp", timestamp},
		{"signature", signature},
		{"data_type", DataType},
		{"signature_version", SignatureVersion},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="sample"; filename="sample"`)
	h.Set("Content-Type", sampleContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(sample); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func parseResult(raw []byte) (models.Match, bool, error) {
	if !gjson.ValidBytes(raw) {
		return models.Match{}, false, apierr.Upstream("acrcloud", 0, "", errors.New("malformed identify response"))
	}
	res := gjson.ParseBytes(raw)

	code := res.Get("status.code").Int()
	if code != statusSuccess && code != statusNoResult {
		msg := fmt.Sprintf("%s (code %d)", res.Get("status.msg").String(), code)
		return models.Match{}, false, apierr.Upstream("acrcloud", 0, msg, nil)
	}

	// humming projects report under metadata.humming
	hits := res.Get("metadata.music").Array()
	if len(hits) == 0 {
		hits = res.Get("metadata.humming").Array()
	}
	if len(hits) == 0 {
		return models.Match{}, false, nil
	}

	top := hits[0]
	return models.Match{
		Title:  top.Get("title").String(),
		Artist: top.Get("artists.0.name").String(),
		Album:  top.Get("album.name").String(),
		Score:  int(top.Get("score").Int()),
	}, true, nil
}
