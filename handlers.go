package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/mdobak/go-xerrors"

	"hum-search/acrcloud"
	"hum-search/apierr"
	"hum-search/db"
	"hum-search/models"
	"hum-search/utils"
)

const (
	maxUploadSize   = 32 << 20 // whole multipart body
	maxFormMemory   = 10 << 20
	textSearchLimit = 10
	humSearchLimit  = 5

	noMatchNote      = "we couldn't recognise that recording. Add a hint (a few words you remember) to fall back to a text search."
	hintFallbackNote = "we couldn't recognise that recording, so these results come from your hint."
)

type trackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)
}

type sampleIdentifier interface {
	Identify(ctx context.Context, sample []byte) (models.Match, bool, error)
}

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

type videoFinder interface {
	FindVideo(ctx context.Context, query string) (string, bool, error)
}

type server struct {
	tracks     trackSearcher
	identifier sampleIdentifier
	tokens     tokenSource
	videos     videoFinder
	journal    db.DBClient
	tmpDir     string
	debug      bool
}

type searchResponse struct {
	Tracks []models.Track `json:"tracks"`
	Note   string         `json:"note,omitempty"`
}

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	log.Printf("[error] %d: %s", status, msg)
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure converts err into its status and JSON body.
func (s *server) writeFailure(w http.ResponseWriter, err error) {
	status := apierr.HTTPStatus(err)
	resp := errorResponse{Error: err.Error()}
	if upstream, ok := apierr.UpstreamStatus(err); ok {
		resp.UpstreamStatus = upstream
	}

	log.Printf("[error] %d: %s", status, resp.Error)
	if s.debug {
		log.Print(xerrors.Sprint(err))
	}
	writeJSON(w, status, resp)
}

func nonNil(tracks []models.Track) []models.Track {
	if tracks == nil {
		return []models.Track{}
	}
	return tracks
}

// record journals a lookup. Journal failures are logged and never reach
// the caller.
func (s *server) record(ctx context.Context, lookup models.Lookup) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordLookup(ctx, lookup); err != nil {
		log.Printf("[journal] %v", err)
	}
}

func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *server) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.FormValue("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, searchResponse{Tracks: []models.Track{}})
		return
	}

	log.Printf("[text] searching %q", query)
	tracks, err := s.tracks.SearchTracks(r.Context(), query, textSearchLimit)
	lookup := models.Lookup{Kind: models.KindText, Query: query, Status: http.StatusOK}
	if err != nil {
		lookup.Status = apierr.HTTPStatus(err)
		s.record(r.Context(), lookup)
		s.writeFailure(w, err)
		return
	}

	lookup.Results = len(tracks)
	s.record(r.Context(), lookup)

	log.Printf("[text] %d tracks for %q", len(tracks), query)
	writeJSON(w, http.StatusOK, searchResponse{Tracks: nonNil(tracks)})
}

// saveUpload copies the "audio" part into a fresh file under tmpDir.
func (s *server) saveUpload(r *http.Request) (string, int64, error) {
	file, _, err := r.FormFile("audio")
	if err != nil {
		return "", 0, apierr.Validation("no audio uploaded")
	}
	defer file.Close()

	if err := utils.CreateFolder(s.tmpDir); err != nil {
		return "", 0, fmt.Errorf("failed to create tmp dir: %v", err)
	}

	dst, err := os.CreateTemp(s.tmpDir, "hum-*.sample")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		return dst.Name(), 0, fmt.Errorf("failed to write sample: %v", err)
	}
	return dst.Name(), written, nil
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %v", err)
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, acrcloud.MaxSampleBytes))
}

func (s *server) handleHumSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	tmpPath, size, err := s.saveUpload(r)
	defer utils.RemoveQuietly(tmpPath)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	sample, err := readSample(tmpPath)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	hint := strings.TrimSpace(r.FormValue("hint"))
	log.Printf("[hum] sample received (%d bytes, hint=%q)", size, hint)

	resp, lookup, err := s.humSearch(r.Context(), sample, hint)
	if err != nil {
		lookup.Status = apierr.HTTPStatus(err)
		s.record(r.Context(), lookup)
		s.writeFailure(w, err)
		return
	}

	lookup.Status = http.StatusOK
	lookup.Results = len(resp.Tracks)
	s.record(r.Context(), lookup)

	log.Printf("[hum] returning %d tracks", len(resp.Tracks))
	writeJSON(w, http.StatusOK, resp)
}

// humSearch identifies the sample first; the hint is only used when
// identification finds nothing.
func (s *server) humSearch(ctx context.Context, sample []byte, hint string) (searchResponse, models.Lookup, error) {
	lookup := models.Lookup{Kind: models.KindHum}

	match, found, err := s.identifier.Identify(ctx, sample)
	if err != nil {
		return searchResponse{}, lookup, err
	}

	if !found {
		log.Printf("[hum] no match from identification")
		if hint == "" {
			return searchResponse{Tracks: []models.Track{}, Note: noMatchNote}, lookup, nil
		}
		lookup.Query = hint
		tracks, err := s.tracks.SearchTracks(ctx, hint, textSearchLimit)
		if err != nil {
			return searchResponse{}, lookup, err
		}
		return searchResponse{Tracks: nonNil(tracks), Note: hintFallbackNote}, lookup, nil
	}

	log.Printf("[hum] identified %q by %q (score %d)", match.Title, match.Artist, match.Score)
	lookup.Title, lookup.Artist = match.Title, match.Artist
	lookup.Query = match.Query()

	tracks, err := s.tracks.SearchTracks(ctx, lookup.Query, humSearchLimit)
	if err != nil {
		return searchResponse{}, lookup, err
	}
	return searchResponse{Tracks: nonNil(tracks)}, lookup, nil
}

// handleToken exposes the catalog token to other handlers of this
// deployment. Only loopback callers are served.
func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !isLoopback(r) {
		writeError(w, http.StatusForbidden, "token endpoint is internal")
		return
	}

	token, err := s.tokens.Token(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeFailure(w, apierr.Validation("missing q"))
		return
	}

	url, found, err := s.videos.FindVideo(r.Context(), query)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	var videoURL *string
	if found {
		videoURL = &url
	}
	writeJSON(w, http.StatusOK, map[string]*string{"video_url": videoURL})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !isLoopback(r) {
		writeError(w, http.StatusForbidden, "history endpoint is internal")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeFailure(w, apierr.Validation("limit must be a positive integer"))
			return
		}
		limit = min(n, 100)
	}

	if s.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"lookups": []models.Lookup{}})
		return
	}

	lookups, err := s.journal.RecentLookups(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, fmt.Errorf("failed to read journal: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lookups": lookups})
}
