package wav

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// ReadTags returns the title and artist stored in an audio file's tags
// (ID3, MP4, FLAC or Ogg).
func ReadTags(path string) (title, artist string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", fmt.Errorf("failed to read tags: %v", err)
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist()), nil
}

// HintFromTags builds a text-search hint from a file's tags, "" when the
// file has none.
func HintFromTags(path string) string {
	title, artist, err := ReadTags(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(title + " " + artist)
}
