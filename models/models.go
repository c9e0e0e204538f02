package models

import (
	"strings"
	"time"
)

// Track is the display record every search path returns.
type Track struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Artists     string  `json:"artists"`
	Album       string  `json:"album"`
	Image       string  `json:"image"`
	PreviewURL  *string `json:"preview_url"`
	ExternalURL *string `json:"external_url"`
}

// Match is the top guess returned by audio identification.
type Match struct {
	Title  string
	Artist string
	Album  string
	Score  int
}

// Query is the catalog query used to resolve a match into tracks.
func (m Match) Query() string {
	return strings.TrimSpace(m.Title + " " + m.Artist)
}

// Lookup kinds.
const (
	KindText = "text"
	KindHum  = "hum"
)

// Lookup is one journal entry describing a search request. It records what
// was asked and how it went, never the tracks themselves.
type Lookup struct {
	Kind      string    `json:"kind" bson:"kind"`
	Query     string    `json:"query" bson:"query"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
	Artist    string    `json:"artist,omitempty" bson:"artist,omitempty"`
	Results   int       `json:"results" bson:"results"`
	Status    int       `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
