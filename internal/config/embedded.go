package config

// Build-time values injected via ldflags.
// Nothing in this package reads them: Default and Load take the TMDB and
// OMDb API keys only from the config file or environment.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/orchestrd/orchestrd/internal/config.Version=1.2.3' \
//	                   -X 'github.com/orchestrd/orchestrd/internal/config.EmbeddedTMDBKey=xxx' \
//	                   -X 'github.com/orchestrd/orchestrd/internal/config.EmbeddedOMDBKey=zzz'"
var (
	EmbeddedTMDBKey string
	EmbeddedOMDBKey string
)
