package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"hum-search/acrcloud"
	"hum-search/config"
	"hum-search/db"
	"hum-search/models"
	"hum-search/spotify"
	"hum-search/tui"
	"hum-search/utils"
	"hum-search/wav"
	"hum-search/youtube"
)

//go:embed static
var staticFiles embed.FS

var (
	titleColor = color.New(color.FgGreen, color.Bold)
	noteColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.FgHiBlack)
	errColor   = color.New(color.FgRed)
)

// newServer wires the adapters for cfg. The token endpoint always uses the
// in-process provider; searches go through BASE_URL/token when it is set.
func newServer(cfg config.Config, journal db.DBClient) *server {
	provider := spotify.NewTokenProvider(cfg.SpotifyClientID, cfg.SpotifyClientSecret)

	var searchTokens spotify.TokenSource = provider
	if cfg.BaseURL != "" {
		if !isLoopbackURL(cfg.BaseURL) {
			log.Printf("[config] BASE_URL %q is not a loopback address; /token refuses non-loopback callers, so searches will fail", cfg.BaseURL)
		}
		searchTokens = spotify.NewRemoteTokenSource(cfg.BaseURL)
	}

	return &server{
		tracks:     spotify.NewSearcher(searchTokens),
		identifier: acrcloud.New(cfg.ACRHost, cfg.ACRAccessKey, cfg.ACRAccessSecret),
		tokens:     provider,
		videos:     youtube.NewFinder(cfg.YouTubeAPIKey),
		journal:    journal,
		tmpDir:     cfg.TmpDir,
		debug:      cfg.Debug,
	}
}

// isLoopbackURL reports whether raw points at this machine.
func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func openJournal(cfg config.Config) db.DBClient {
	journal, err := db.NewDBClient(cfg)
	if err != nil {
		log.Printf("[journal] disabled: %v", err)
		return db.NopClient{}
	}
	return journal
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/search/text", s.handleTextSearch)
	mux.HandleFunc("/search/hum", s.handleHumSearch)
	mux.HandleFunc("/search/video", s.handleVideo)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/history", s.handleHistory)

	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(static)))

	return requestLogger(corsMiddleware(mux))
}

func serve(cfg config.Config, protocol, port string) {
	protocol = strings.ToLower(protocol)

	if err := utils.CreateFolder(cfg.TmpDir); err != nil {
		log.Fatalf("failed to create tmp dir: %v", err)
	}

	journal := openJournal(cfg)
	defer journal.Close()

	handler := newServer(cfg, journal).routes()

	log.Printf("starting server on port %s (%s)\n", port, protocol)
	var err error
	if protocol == "https" {
		err = http.ListenAndServeTLS(":"+port, cfg.CertFile, cfg.KeyFile, handler)
	} else {
		err = http.ListenAndServe(":"+port, handler)
	}
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/search/") || path == "/token" || path == "/history"
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		// static assets are not worth a line each
		if isAPIPath(r.URL.Path) {
			log.Printf("[http] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// find identifies a local audio file and prints catalog matches, falling
// back to the file's own tags when nothing is recognised.
func find(cfg config.Config, filePath, hint string) {
	sample, err := readSample(filePath)
	if err != nil {
		errColor.Println("error reading sample:", err)
		return
	}

	if hint == "" {
		hint = wav.HintFromTags(filePath)
		if hint != "" {
			dimColor.Printf("using tags as hint: %q\n", hint)
		}
	}

	s := newServer(cfg, openJournal(cfg))
	defer s.journal.Close()

	start := time.Now()
	resp, lookup, err := s.humSearch(context.Background(), sample, hint)
	if err != nil {
		errColor.Println("error:", err)
		return
	}
	lookup.Status = http.StatusOK
	lookup.Results = len(resp.Tracks)
	s.record(context.Background(), lookup)

	if lookup.Title != "" {
		titleColor.Printf("\nidentified: %s by %s\n", lookup.Title, lookup.Artist)
	}
	printTracks(resp)
	fmt.Printf("\nsearch took: %s\n", time.Since(start))
}

func search(cfg config.Config, query string) {
	s := newServer(cfg, openJournal(cfg))
	defer s.journal.Close()

	query = strings.TrimSpace(query)
	tracks, err := s.tracks.SearchTracks(context.Background(), query, textSearchLimit)
	if err != nil {
		errColor.Println("error:", err)
		return
	}
	s.record(context.Background(), models.Lookup{
		Kind: models.KindText, Query: query, Results: len(tracks), Status: http.StatusOK,
	})

	printTracks(searchResponse{Tracks: tracks})
}

func printTracks(resp searchResponse) {
	if resp.Note != "" {
		noteColor.Println(resp.Note)
	}
	if len(resp.Tracks) == 0 {
		fmt.Println("\nno tracks found.")
		return
	}

	fmt.Println("\ntracks:")
	for _, t := range resp.Tracks {
		fmt.Printf("\t- %s by %s", titleColor.Sprint(t.Name), t.Artists)
		if t.Album != "" {
			dimColor.Printf(" (%s)", t.Album)
		}
		fmt.Println()
		if t.ExternalURL != nil {
			dimColor.Printf("\t  %s\n", *t.ExternalURL)
		}
	}
}

func history(cfg config.Config, n int) {
	journal, err := db.NewDBClient(cfg)
	if err != nil {
		errColor.Printf("error opening journal: %v\n", err)
		return
	}
	defer journal.Close()

	lookups, err := journal.RecentLookups(context.Background(), n)
	if err != nil {
		errColor.Printf("error reading journal: %v\n", err)
		return
	}
	if len(lookups) == 0 {
		fmt.Println("no lookups recorded (is DB_TYPE set?)")
		return
	}

	for _, l := range lookups {
		status := titleColor.Sprint(l.Status)
		if l.Status != http.StatusOK {
			status = errColor.Sprint(l.Status)
		}
		fmt.Printf("%s  %-4s %s  %q -> %d tracks\n",
			dimColor.Sprint(l.CreatedAt.Local().Format(time.DateTime)), l.Kind, status, l.Query, l.Results)
	}
}

func runTUI(cfg config.Config, serverURL string) {
	if serverURL == "" {
		serverURL = cfg.ServerURL
	}
	if err := tui.Run(serverURL, cfg.CaptureFormat, cfg.CaptureDevice); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
