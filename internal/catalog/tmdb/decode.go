package tmdb

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/smallbiznis/streamgate/internal/catalog/domain"
)

const untitled = "untitled"

type rawTitle struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	Name         string      `json:"name"`
	OriginalName string      `json:"original_name"`
	Overview     string      `json:"overview"`
	PosterPath   *string     `json:"poster_path"`
	BackdropPath *string     `json:"backdrop_path"`
	MediaType    string      `json:"media_type"`
	ReleaseDate  string      `json:"release_date"`
	FirstAirDate string      `json:"first_air_date"`
	GenreIDs     []int       `json:"genre_ids"`
	VoteAverage  float64     `json:"vote_average"`
}

type rawDetail struct {
	rawTitle
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	Videos struct {
		Results []rawVideo `json:"results"`
	} `json:"videos"`
}

type rawVideo struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// toTitle maps an upstream item to a catalog title. Items without an id or of
// a non-video media type (people in trending) are dropped.
func (r rawTitle) toTitle(defaultKind string) (domain.Title, bool) {
	id := strings.TrimSpace(r.ID.String())
	if id == "" || id == "0" {
		return domain.Title{}, false
	}
	kind := strings.TrimSpace(r.MediaType)
	switch kind {
	case "movie", "tv":
	case "":
		kind = defaultKind
		if kind == "" {
			kind = "movie"
		}
	default:
		return domain.Title{}, false
	}

	title := domain.Title{
		ID:           id,
		Name:         displayName(r),
		Overview:     strings.TrimSpace(r.Overview),
		PosterPath:   deref(r.PosterPath),
		BackdropPath: deref(r.BackdropPath),
		MediaKind:    kind,
		Year:         year(r.ReleaseDate, r.FirstAirDate),
		VoteAverage:  r.VoteAverage,
	}
	for _, genreID := range r.GenreIDs {
		if name, ok := genreNames[genreID]; ok {
			title.Genres = append(title.Genres, name)
		}
	}
	return title, true
}

func (r rawDetail) genreNames() []string {
	names := make([]string, 0, len(r.Genres))
	for _, genre := range r.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func displayName(r rawTitle) string {
	for _, candidate := range []string{r.Title, r.Name, r.OriginalName} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return untitled
}

func year(dates ...string) string {
	for _, date := range dates {
		date = strings.TrimSpace(date)
		if len(date) < 4 {
			continue
		}
		if _, err := strconv.Atoi(date[:4]); err == nil {
			return date[:4]
		}
	}
	return ""
}

// pickTrailer prefers a YouTube trailer, then a teaser, then any YouTube video.
func pickTrailer(videos []rawVideo) string {
	for _, want := range []string{"Trailer", "Teaser", ""} {
		for _, video := range videos {
			if video.Site != "YouTube" || strings.TrimSpace(video.Key) == "" {
				continue
			}
			if want == "" || video.Type == want {
				return video.Key
			}
		}
	}
	return ""
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
