package domain

import "context"

type Category string

const (
	CategoryTrending      Category = "trending"
	CategoryOriginals     Category = "originals"
	CategoryTopRated      Category = "top_rated"
	CategoryAction        Category = "action"
	CategoryComedy        Category = "comedy"
	CategoryHorror        Category = "horror"
	CategoryRomance       Category = "romance"
	CategoryDocumentaries Category = "documentaries"
)

// Categories lists every category the catalog can fetch.
var Categories = []Category{
	CategoryTrending,
	CategoryOriginals,
	CategoryTopRated,
	CategoryAction,
	CategoryComedy,
	CategoryHorror,
	CategoryRomance,
	CategoryDocumentaries,
}

func ParseCategory(raw string) (Category, error) {
	for _, category := range Categories {
		if string(category) == raw {
			return category, nil
		}
	}
	return "", ErrUnknownCategory
}

// Title is one catalog item as shown in a row.
type Title struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Overview     string   `json:"overview,omitempty"`
	PosterPath   string   `json:"poster_path,omitempty"`
	BackdropPath string   `json:"backdrop_path,omitempty"`
	MediaKind    string   `json:"media_kind"`
	Year         string   `json:"year,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	VoteAverage  float64  `json:"vote_average,omitempty"`
}

// Detail is a title with its trailer, as shown in the modal.
type Detail struct {
	Title
	TrailerKey string `json:"trailer_key,omitempty"`
	TrailerURL string `json:"trailer_url,omitempty"`
}

type Row struct {
	Key   string  `json:"key"`
	Title string  `json:"title"`
	Items []Title `json:"items"`
}

type Home struct {
	Banner *Title `json:"banner,omitempty"`
	Rows   []Row  `json:"rows"`
}

// Source fetches catalog data from the upstream metadata API.
type Source interface {
	FetchCategory(ctx context.Context, category Category) ([]Title, error)
	FetchDetail(ctx context.Context, mediaKind, id string) (*Detail, error)
}
