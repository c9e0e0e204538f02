package utils

import (
	"os"
	"strconv"
)

// GetEnv returns the value of the environment variable key, or the first
// fallback when it is unset or empty.
func GetEnv(key string, fallback ...string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

// GetEnvBool parses key as a bool, returning fallback when unset or invalid.
func GetEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(GetEnv(key))
	if err != nil {
		return fallback
	}
	return value
}

func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}

// RemoveQuietly deletes path and ignores any error. Temp file cleanup must
// never fail a request.
func RemoveQuietly(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
