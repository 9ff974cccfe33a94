package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/orchestrd/orchestrd/internal/coreerr"
)

// TMDBClient resolves movie/series metadata against the TMDB v3 API.
type TMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTMDBClient creates a TMDB-backed Resolver.
func NewTMDBClient(apiKey, baseURL string, timeout time.Duration) *TMDBClient {
	return &TMDBClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *TMDBClient) ID() string { return "tmdb" }

type tmdbSearchResponse struct {
	Results []struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
	} `json:"results"`
}

type tmdbExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

type tmdbSeasonResponse struct {
	Episodes []struct {
		EpisodeNumber int `json:"episode_number"`
	} `json:"episodes"`
}

func (c *TMDBClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return coreerr.Wrap(coreerr.Unknown, "tmdb", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return coreerr.Wrap(coreerr.Timeout, "tmdb", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return coreerr.New(coreerr.Unauthorized, "tmdb", "invalid api key")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return coreerr.New(coreerr.RateLimited, "tmdb", "rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return coreerr.New(coreerr.Unknown, "tmdb", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ResolveMovie searches TMDB for a movie title, optionally constrained by year.
func (c *TMDBClient) ResolveMovie(ctx context.Context, query string, year int) (MovieInfo, error) {
	params := url.Values{"query": {query}}
	if year > 0 {
		params.Set("year", fmt.Sprintf("%d", year))
	}

	var resp tmdbSearchResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return MovieInfo{}, err
	}
	if len(resp.Results) == 0 {
		return MovieInfo{}, coreerr.New(coreerr.ResolutionFailed, "tmdb", "no results for query")
	}

	top := resp.Results[0]
	info := MovieInfo{TMDBID: top.ID, Title: top.Title}
	if len(top.ReleaseDate) >= 4 {
		fmt.Sscanf(top.ReleaseDate[:4], "%d", &info.Year)
	}

	var ext tmdbExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/external_ids", top.ID), url.Values{}, &ext); err == nil {
		info.IMDBID = ext.IMDBID
	}

	return info, nil
}

// ResolveSeries searches TMDB for a TV series title.
func (c *TMDBClient) ResolveSeries(ctx context.Context, query string) (SeriesInfo, error) {
	var resp tmdbSearchResponse
	if err := c.get(ctx, "/search/tv", url.Values{"query": {query}}, &resp); err != nil {
		return SeriesInfo{}, err
	}
	if len(resp.Results) == 0 {
		return SeriesInfo{}, coreerr.New(coreerr.ResolutionFailed, "tmdb", "no results for query")
	}

	top := resp.Results[0]
	info := SeriesInfo{Title: top.Name}
	if len(top.FirstAirDate) >= 4 {
		fmt.Sscanf(top.FirstAirDate[:4], "%d", &info.Year)
	}
	return info, nil
}

// ResolveSeason fetches the episode count for a season. TMDB keys seasons
// by TMDB series ID, not TVDB ID; callers resolve the series first and
// pass its TMDB ID through the tvdbID parameter slot per the Resolver
// contract, which is provider-agnostic about the ID namespace.
func (c *TMDBClient) ResolveSeason(ctx context.Context, seriesID, season int) (SeasonInfo, error) {
	var resp tmdbSeasonResponse
	path := fmt.Sprintf("/tv/%d/season/%d", seriesID, season)
	if err := c.get(ctx, path, url.Values{}, &resp); err != nil {
		return SeasonInfo{}, err
	}
	return SeasonInfo{Season: season, EpisodeCount: len(resp.Episodes)}, nil
}
