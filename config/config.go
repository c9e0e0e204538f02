// Package config gathers the process configuration from the environment.
// Nothing here is validated up front: each component reports the keys it
// needs when it is first used.
package config

import (
	"runtime"

	"hum-search/utils"
)

type Config struct {
	// catalog search (client-credentials)
	SpotifyClientID     string
	SpotifyClientSecret string

	// audio identification
	ACRHost         string
	ACRAccessKey    string
	ACRAccessSecret string

	// BaseURL, when set, makes the search handlers fetch their bearer
	// token from {BaseURL}/token over HTTP instead of in-process.
	BaseURL string

	YouTubeAPIKey string

	// lookup journal: "sqlite", "mongo" or empty to disable
	DBType        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	TmpDir   string
	Debug    bool
	CertFile string
	KeyFile  string

	// terminal client
	ServerURL     string
	CaptureFormat string
	CaptureDevice string
}

// Load reads the configuration. Call godotenv.Load first so a .env file
// is honoured.
func Load() Config {
	format, device := defaultCapture()

	return Config{
		SpotifyClientID:     utils.GetEnv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: utils.GetEnv("SPOTIFY_CLIENT_SECRET"),

		ACRHost:         utils.GetEnv("ACR_HOST"),
		ACRAccessKey:    utils.GetEnv("ACR_ACCESS_KEY"),
		ACRAccessSecret: utils.GetEnv("ACR_ACCESS_SECRET"),

		BaseURL: utils.GetEnv("BASE_URL"),

		YouTubeAPIKey: utils.GetEnv("YOUTUBE_API_KEY"),

		DBType:        utils.GetEnv("DB_TYPE"),
		SQLitePath:    utils.GetEnv("SQLITE_PATH", "hum-search.db"),
		MongoURI:      utils.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: utils.GetEnv("MONGO_DATABASE", "hum_search"),

		TmpDir:   utils.GetEnv("TMP_DIR", "tmp"),
		Debug:    utils.GetEnvBool("DEBUG", false),
		CertFile: utils.GetEnv("CERT_FILE"),
		KeyFile:  utils.GetEnv("KEY_FILE"),

		ServerURL:     utils.GetEnv("SERVER_URL", "http://localhost:5000"),
		CaptureFormat: utils.GetEnv("CAPTURE_FORMAT", format),
		CaptureDevice: utils.GetEnv("CAPTURE_DEVICE", device),
	}
}

// defaultCapture returns the ffmpeg input format and device for the
// platform's default microphone.
func defaultCapture() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "alsa", "default"
	}
}
