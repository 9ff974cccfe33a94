package autosearch

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/quality"
)

// DBWantedSource loads items not yet at their quality cutoff from the
// wanted_items table, so the scheduler picks up additions and removals
// without a restart.
type DBWantedSource struct {
	db      *sql.DB
	profile *quality.Profile
}

// NewDBWantedSource creates a WantedSource backed by db, scoring every item
// against profile.
func NewDBWantedSource(db *sql.DB, profile *quality.Profile) *DBWantedSource {
	return &DBWantedSource{db: db, profile: profile}
}

func (s *DBWantedSource) Wanted(ctx context.Context) ([]WantedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, search_type, query, tmdb_id, tvdb_id, imdb_id, year, season, episode, season_only, categories
		FROM wanted_items WHERE cutoff_met = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WantedItem
	for rows.Next() {
		var (
			title, searchType, query, imdbID, categoriesCSV string
			tmdbID, tvdbID, year, season, episode            int
			seasonOnly                                       bool
		)
		if err := rows.Scan(&title, &searchType, &query, &tmdbID, &tvdbID, &imdbID, &year, &season, &episode, &seasonOnly, &categoriesCSV); err != nil {
			return nil, err
		}

		categories := parseCategories(categoriesCSV)
		var criteria indexer.SearchCriteria
		switch searchType {
		case string(indexer.SearchMovie):
			criteria = indexer.NewMovieCriteria(indexer.MovieCriteria{
				Query: query, TMDBID: tmdbID, IMDBID: imdbID, Year: year,
			}, categories)
		case string(indexer.SearchTV):
			criteria = indexer.NewTVCriteria(indexer.TVCriteria{
				Query: query, TVDBID: tvdbID, IMDBID: imdbID, Season: season, Episode: episode, SeasonOnly: seasonOnly,
			}, categories)
		default:
			criteria = indexer.NewBasicCriteria(query, categories)
		}

		items = append(items, WantedItem{Criteria: criteria, Title: title, Profile: s.profile})
	}
	return items, rows.Err()
}

func parseCategories(csv string) []int {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	categories := make([]int, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			categories = append(categories, v)
		}
	}
	return categories
}
