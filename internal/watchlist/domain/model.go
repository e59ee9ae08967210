package domain

import (
	"strings"
	"time"
)

const (
	MediaKindMovie = "movie"
	MediaKindTV    = "tv"
)

// NormalizeMediaKind maps unknown kinds to movie.
func NormalizeMediaKind(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), MediaKindTV) {
		return MediaKindTV
	}
	return MediaKindMovie
}

// Title is the display snapshot stored with a saved entry.
type Title struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PosterPath   *string `json:"poster_path,omitempty"`
	BackdropPath *string `json:"backdrop_path,omitempty"`
	MediaKind    string  `json:"media_kind"`
	Overview     *string `json:"overview,omitempty"`
}

type Entry struct {
	PrincipalID  string    `json:"-" gorm:"primaryKey"`
	TitleID      string    `json:"title_id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	PosterPath   *string   `json:"poster_path,omitempty"`
	BackdropPath *string   `json:"backdrop_path,omitempty"`
	MediaKind    string    `json:"media_kind"`
	Overview     *string   `json:"overview,omitempty"`
	AddedAt      time.Time `json:"added_at"`
}

func (Entry) TableName() string { return "watchlist_items" }

// Contains reports whether titleID is in entries.
func Contains(entries []Entry, titleID string) bool {
	for _, entry := range entries {
		if entry.TitleID == titleID {
			return true
		}
	}
	return false
}
