package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/streamgate/internal/catalog/domain"
	"github.com/smallbiznis/streamgate/internal/config"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	youtubeEmbed   = "https://www.youtube.com/embed/"
)

type endpoint struct {
	path  string
	query url.Values
	// kind is the media kind of results that carry no media_type.
	kind string
}

var endpoints = map[domain.Category]endpoint{
	domain.CategoryTrending:      {path: "/trending/all/week"},
	domain.CategoryOriginals:     {path: "/discover/tv", query: url.Values{"with_networks": {"213"}}, kind: "tv"},
	domain.CategoryTopRated:      {path: "/movie/top_rated", kind: "movie"},
	domain.CategoryAction:        {path: "/discover/movie", query: url.Values{"with_genres": {"28"}}, kind: "movie"},
	domain.CategoryComedy:        {path: "/discover/movie", query: url.Values{"with_genres": {"35"}}, kind: "movie"},
	domain.CategoryHorror:        {path: "/discover/movie", query: url.Values{"with_genres": {"27"}}, kind: "movie"},
	domain.CategoryRomance:       {path: "/discover/movie", query: url.Values{"with_genres": {"10749"}}, kind: "movie"},
	domain.CategoryDocumentaries: {path: "/discover/movie", query: url.Values{"with_genres": {"99"}}, kind: "movie"},
}

// Client is a TMDB v3 API client.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.TMDB.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.TMDB.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	language := strings.TrimSpace(cfg.TMDB.Language)
	if language == "" {
		language = "en-US"
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.TMDB.APIKey),
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchCategory(ctx context.Context, category domain.Category) ([]domain.Title, error) {
	ep, ok := endpoints[category]
	if !ok {
		return nil, domain.ErrUnknownCategory
	}
	q := url.Values{}
	for key, values := range ep.query {
		q[key] = append([]string(nil), values...)
	}

	var page struct {
		Results []rawTitle `json:"results"`
	}
	if err := c.get(ctx, ep.path, q, &page); err != nil {
		return nil, err
	}

	titles := make([]domain.Title, 0, len(page.Results))
	for _, raw := range page.Results {
		title, ok := raw.toTitle(ep.kind)
		if !ok {
			continue
		}
		titles = append(titles, title)
	}
	return titles, nil
}

func (c *Client) FetchDetail(ctx context.Context, mediaKind, id string) (*domain.Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidTitle
	}
	kind := "movie"
	if mediaKind == "tv" {
		kind = "tv"
	}
	q := url.Values{}
	q.Set("append_to_response", "videos")

	var raw rawDetail
	if err := c.get(ctx, fmt.Sprintf("/%s/%s", kind, url.PathEscape(id)), q, &raw); err != nil {
		return nil, err
	}
	title, ok := raw.rawTitle.toTitle(kind)
	if !ok {
		return nil, domain.ErrTitleNotFound
	}
	title.MediaKind = kind
	if names := raw.genreNames(); len(names) > 0 {
		title.Genres = names
	}

	detail := &domain.Detail{Title: title}
	if key := pickTrailer(raw.Videos.Results); key != "" {
		detail.TrailerKey = key
		detail.TrailerURL = youtubeEmbed + key
	}
	return detail, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	if c.apiKey == "" {
		return domain.ErrNotConfigured
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrTitleNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrUpstreamThrottle
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: decode response: %w", err)
	}
	return nil
}
