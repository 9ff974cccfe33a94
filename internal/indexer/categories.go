package indexer

// Newznab-derived category ranges shared by torrent and usenet indexers.
// Adapters map their native category taxonomy onto these IDs so the
// capability registry and search orchestrator can reason about category
// support generically.
const (
	CategoryMovies        = 2000
	CategoryMoviesSD      = 2030
	CategoryMoviesHD      = 2040
	CategoryMoviesUHD     = 2045
	CategoryMoviesBluRay  = 2050

	CategoryTV       = 5000
	CategoryTVSD     = 5030
	CategoryTVHD     = 5040
	CategoryTVUHD    = 5045
	CategoryTVAnime  = 5070
	CategoryTVDocumentary = 5080
)

// MovieCategories is the default category set used for movie searches when
// an indexer exposes no finer-grained breakdown.
var MovieCategories = []int{CategoryMovies, CategoryMoviesSD, CategoryMoviesHD, CategoryMoviesUHD, CategoryMoviesBluRay}

// TVCategories is the default category set used for TV searches.
var TVCategories = []int{CategoryTV, CategoryTVSD, CategoryTVHD, CategoryTVUHD, CategoryTVAnime}

// IsMovieCategory reports whether id falls within the movie range.
func IsMovieCategory(id int) bool {
	return id >= CategoryMovies && id < CategoryTV
}

// IsTVCategory reports whether id falls within the TV range.
func IsTVCategory(id int) bool {
	return id >= CategoryTV && id < 6000
}

// MatchesAny reports whether any of releaseCategories intersects wanted.
func MatchesAny(releaseCategories, wanted []int) bool {
	if len(wanted) == 0 {
		return true
	}
	set := make(map[int]struct{}, len(wanted))
	for _, w := range wanted {
		set[w] = struct{}{}
	}
	for _, c := range releaseCategories {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}
