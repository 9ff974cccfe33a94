// Package orchestrator runs the end-to-end search pipeline: enrich search
// criteria against metadata, fan out to capable indexers (respecting rate
// limits and health backoff), parse and score results, dedup twice, and
// hand the ranked candidate set to callers.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orchestrd/orchestrd/internal/broadcast"
	"github.com/orchestrd/orchestrd/internal/capability"
	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/dedup"
	"github.com/orchestrd/orchestrd/internal/health"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/metadata"
	"github.com/orchestrd/orchestrd/internal/parser"
	"github.com/orchestrd/orchestrd/internal/quality"
	"github.com/orchestrd/orchestrd/internal/ratelimit"
	"github.com/orchestrd/orchestrd/internal/releasecache"
	"github.com/orchestrd/orchestrd/internal/scoring"

	"github.com/rs/zerolog"
)

// Orchestrator coordinates a multi-indexer search.
type Orchestrator struct {
	adapters    []indexer.Adapter
	caps        *capability.Registry
	governor    *ratelimit.Governor
	tracker     *health.Tracker
	cache       *releasecache.Cache[indexer.ReleaseView]
	profile     *quality.Profile
	resolver    metadata.Resolver
	seasons     *metadata.SeasonCache
	broadcaster *broadcast.Hub
	logger      zerolog.Logger
}

// Config bundles an Orchestrator's collaborators.
type Config struct {
	Adapters    []indexer.Adapter
	Caps        *capability.Registry
	Governor    *ratelimit.Governor
	Tracker     *health.Tracker
	Cache       *releasecache.Cache[indexer.ReleaseView]
	Profile     *quality.Profile
	Resolver    metadata.Resolver
	Broadcaster *broadcast.Hub
	Logger      zerolog.Logger
}

// New builds an Orchestrator from cfg. Adapters are consulted in the order
// given, which also doubles as indexer priority: there is no persisted
// per-indexer priority column, so configuration order stands in for it.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		adapters:    cfg.Adapters,
		caps:        cfg.Caps,
		governor:    cfg.Governor,
		tracker:     cfg.Tracker,
		cache:       cfg.Cache,
		profile:     cfg.Profile,
		resolver:    cfg.Resolver,
		broadcaster: cfg.Broadcaster,
		logger:      cfg.Logger.With().Str("component", "orchestrator").Logger(),
	}
	if cfg.Resolver != nil {
		o.seasons = metadata.NewSeasonCache(cfg.Resolver)
	}
	return o
}

// Options configures one Search call. DefaultOptions returns the values an
// automatic background search should use; interactive callers typically
// override SearchSource and UseCache.
type Options struct {
	SearchSource       indexer.SearchSource
	RespectEnabled     bool
	RespectBackoff     bool
	UseTieredSearch    bool
	Concurrency        int
	Timeout            time.Duration
	UseCache           bool
	Enrichment         bool
	MinScore           int
	MinSeeders         int
	DeadTorrentSeeders int
	FilterRejected     bool
	Limit              int
}

// DefaultOptions returns the orchestrator's standard automatic-search
// configuration.
func DefaultOptions() Options {
	return Options{
		SearchSource:    indexer.SearchSourceAutomatic,
		RespectEnabled:  true,
		RespectBackoff:  true,
		UseTieredSearch: true,
		Concurrency:     5,
		Timeout:         30 * time.Second,
		UseCache:        true,
		Enrichment:      true,
		FilterRejected:  true,
	}
}

func (o Options) withDefaults() Options {
	if o.SearchSource == "" {
		o.SearchSource = indexer.SearchSourceAutomatic
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Result is the aggregated, ranked, deduplicated output of a search, with
// per-stage counts so callers and the API layer can explain why a result
// set looks the way it does.
type Result struct {
	Views  []indexer.ReleaseView
	Scores []scoring.Score
	Errors map[string]error // indexerID -> error, for partial-failure visibility

	// RejectedIndexers maps an excluded indexer's ID to the stage that
	// excluded it (searchType, searchSource, disabled, backoff,
	// indexerFilter, protocol, capabilityError).
	RejectedIndexers map[string]string
	// SearchMethod maps an indexer ID that returned results to which tier
	// produced them ("id" or "text").
	SearchMethod map[string]string

	TotalResults    int
	AfterDedup      int
	AfterFiltering  int
	AfterEnrichment int
	RejectedCount   int

	SearchTimeMs  int64
	EnrichTimeMs  int64
	FromCache     bool
}

// Search runs the full pipeline described by opts against criteria.
func (o *Orchestrator) Search(ctx context.Context, requestID string, criteria indexer.SearchCriteria, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	if o.broadcaster != nil {
		o.broadcaster.BroadcastSearchStarted(requestID, criteria.QueryText())
	}

	criteria = o.enrichCriteria(ctx, criteria)

	eligible, rejectedIndexers := o.eligibleIndexers(ctx, criteria, opts)

	var (
		g            errgroup.Group
		mu           sync.Mutex
		raw          []indexer.ReleaseView
		errs         = make(map[string]error)
		searchMethod = make(map[string]string)
	)
	g.SetLimit(opts.Concurrency)

	for _, adapter := range eligible {
		adapter := adapter
		g.Go(func() error {
			views, method, err := o.searchOne(ctx, adapter, criteria, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[adapter.ID()] = err
				if !coreerr.HasCode(err, coreerr.RateLimited) && o.tracker != nil {
					_, _ = o.tracker.RecordFailure(ctx, adapter.ID(), err.Error())
				}
				if o.broadcaster != nil {
					o.broadcaster.BroadcastIndexerStatus(adapter.ID(), "failed", nil)
				}
				return nil // partial failure, don't abort the whole search
			}
			if o.tracker != nil {
				_ = o.tracker.RecordSuccess(ctx, adapter.ID())
			}
			if len(views) > 0 {
				searchMethod[adapter.ID()] = method
			}
			raw = append(raw, views...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	totalResults := len(raw)
	deduped := dedup.Dedup(raw)
	afterDedup := len(deduped)

	filtered := make([]indexer.ReleaseView, 0, len(deduped))
	for _, v := range deduped {
		if ok, _ := o.passesHardFilters(criteria, v); ok {
			filtered = append(filtered, v)
		}
	}
	afterFiltering := len(filtered)

	enrichStart := time.Now()
	enhanced := o.enrich(ctx, criteria, opts, filtered)
	enrichTimeMs := time.Since(enrichStart).Milliseconds()

	enhanced = dedup.DedupEnhanced(enhanced)
	afterEnrichment := len(enhanced)

	rejectedCount := 0
	for _, e := range enhanced {
		if e.Score.Rejected {
			rejectedCount++
		}
	}

	if opts.Limit > 0 && len(enhanced) > opts.Limit {
		enhanced = enhanced[:opts.Limit]
	}

	views := make([]indexer.ReleaseView, 0, len(enhanced))
	scores := make([]scoring.Score, 0, len(enhanced))
	for _, e := range enhanced {
		views = append(views, e.View)
		scores = append(scores, e.Score)
	}

	if o.broadcaster != nil {
		o.broadcaster.BroadcastSearchComplete(requestID, len(views))
	}

	return Result{
		Views:            views,
		Scores:           scores,
		Errors:           errs,
		RejectedIndexers: rejectedIndexers,
		SearchMethod:     searchMethod,
		TotalResults:     totalResults,
		AfterDedup:       afterDedup,
		AfterFiltering:   afterFiltering,
		AfterEnrichment:  afterEnrichment,
		RejectedCount:    rejectedCount,
		SearchTimeMs:     time.Since(start).Milliseconds(),
		EnrichTimeMs:     enrichTimeMs,
	}, nil
}

// enrichCriteria fills in external IDs and canonical titles via the
// metadata resolver when the caller didn't already supply them, so
// downstream indexers can attempt their ID-tier search. Resolver failures
// are non-fatal: the search proceeds against whatever criteria it started
// with.
func (o *Orchestrator) enrichCriteria(ctx context.Context, criteria indexer.SearchCriteria) indexer.SearchCriteria {
	if o.resolver == nil {
		return criteria
	}

	switch criteria.Type {
	case indexer.SearchMovie:
		if criteria.Movie.TMDBID != 0 || criteria.Movie.IMDBID != "" {
			return criteria
		}
		info, err := o.resolver.ResolveMovie(ctx, criteria.Movie.Query, criteria.Movie.Year)
		if err != nil {
			o.logger.Debug().Err(err).Str("query", criteria.Movie.Query).Msg("movie metadata resolution failed, searching unenriched")
			return criteria
		}
		criteria.Movie.TMDBID = info.TMDBID
		criteria.Movie.IMDBID = info.IMDBID
		if info.Title != "" && !containsFold(criteria.SearchTitles, info.Title) {
			criteria.SearchTitles = append(criteria.SearchTitles, info.Title)
		}
		return criteria
	case indexer.SearchTV:
		if criteria.TV.TVDBID != 0 || criteria.TV.IMDBID != "" {
			return criteria
		}
		info, err := o.resolver.ResolveSeries(ctx, criteria.TV.Query)
		if err != nil {
			o.logger.Debug().Err(err).Str("query", criteria.TV.Query).Msg("series metadata resolution failed, searching unenriched")
			return criteria
		}
		criteria.TV.TVDBID = info.TVDBID
		criteria.TV.IMDBID = info.IMDBID
		if info.Title != "" && !containsFold(criteria.SearchTitles, info.Title) {
			criteria.SearchTitles = append(criteria.SearchTitles, info.Title)
		}
		return criteria
	default:
		return criteria
	}
}

func containsFold(titles []string, title string) bool {
	for _, t := range titles {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

// eligibleIndexers filters configured adapters in order, recording the
// stage each rejected indexer failed at. The returned slice preserves
// configuration order, which serves as indexer priority.
func (o *Orchestrator) eligibleIndexers(ctx context.Context, criteria indexer.SearchCriteria, opts Options) ([]indexer.Adapter, map[string]string) {
	rejected := make(map[string]string)
	eligible := make([]indexer.Adapter, 0, len(o.adapters))

	for _, a := range o.adapters {
		id := a.ID()

		if len(criteria.IndexerIDs) > 0 && !containsFold(criteria.IndexerIDs, id) {
			rejected[id] = "indexerFilter"
			continue
		}

		caps, err := o.caps.Get(ctx, a)
		if err != nil {
			o.logger.Warn().Err(err).Str("indexer", id).Msg("capability lookup failed, skipping")
			rejected[id] = "capabilityError"
			continue
		}

		if !capability.SupportsSearchType(caps, criteria.Type) {
			rejected[id] = "searchType"
			continue
		}
		if !capability.SupportsSearchSource(caps, opts.SearchSource) {
			rejected[id] = "searchSource"
			continue
		}
		if !criteria.AllowsProtocol(caps.Protocol) {
			rejected[id] = "protocol"
			continue
		}

		if o.tracker != nil && (opts.RespectBackoff || opts.RespectEnabled) {
			status, err := o.tracker.Get(ctx, id)
			if err == nil {
				if opts.RespectEnabled && status.Disabled {
					rejected[id] = "disabled"
					continue
				}
				if opts.RespectBackoff && status.InBackoff(time.Now()) {
					rejected[id] = "backoff"
					continue
				}
			}
		}

		eligible = append(eligible, a)
	}

	return eligible, rejected
}

// searchOne executes one indexer's tiered search: a rate-limit guard, a
// hard per-indexer timeout, an ID-tier attempt when the indexer supports
// one of criteria's external IDs, falling back to a text-tier sweep across
// up to three title/format variants when the ID tier is unavailable or
// empty.
func (o *Orchestrator) searchOne(ctx context.Context, adapter indexer.Adapter, criteria indexer.SearchCriteria, opts Options) ([]indexer.ReleaseView, string, error) {
	id := adapter.ID()

	caps, err := o.caps.Get(ctx, adapter)
	if err != nil {
		return nil, "", err
	}

	host := caps.BaseURL
	wait := o.governor.CheckWait(id, host)
	if wait > opts.Timeout {
		return nil, "", coreerr.New(coreerr.RateLimited, id, "rate limited")
	}
	if wait > 0 {
		if err := o.governor.WaitHost(ctx, id, host); err != nil {
			return nil, "", err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		raw    []indexer.ReleaseResult
		method string
	)

	if opts.UseTieredSearch && capability.HasSearchableID(caps, criteria) {
		results, err := adapter.Search(callCtx, criteria)
		if err == nil && len(results) > 0 {
			raw, method = results, "id"
		}
	}

	if raw == nil {
		for _, variant := range o.textVariants(criteria) {
			results, err := adapter.Search(callCtx, variant)
			if err != nil {
				return nil, "", err
			}
			if len(results) > 0 {
				raw, method = results, "text"
				break
			}
		}
	}

	views := make([]indexer.ReleaseView, 0, len(raw))
	for i, r := range raw {
		r.IndexerID = id
		r.IndexerPriority = indexerPriority(o.adapters, id)
		view := indexer.ReleaseView{Raw: r, Parsed: parser.Parse(r.Title)}

		if opts.UseCache && o.cache != nil {
			if cached, ok := o.cache.Get(view.Fingerprint()); ok {
				views = append(views, cached)
				continue
			}
			o.cache.Set(view.Fingerprint(), view)
		}

		if !o.passesSeasonEpisodePolicy(criteria, opts, view.Parsed) {
			continue
		}

		views = append(views, view)
		if o.broadcaster != nil && i == 0 {
			o.broadcaster.BroadcastSearchResult("", view.Raw.Title)
		}
	}

	return views, method, nil
}

func indexerPriority(adapters []indexer.Adapter, id string) int {
	for i, a := range adapters {
		if a.ID() == id {
			return i
		}
	}
	return len(adapters)
}

// textVariants builds up to three title variants (preferring
// criteria.SearchTitles, falling back to the criteria's own query) crossed
// with the format variants meaningful for the search type: a movie tries
// with and without its release year, a TV search tries its configured
// query as-is.
func (o *Orchestrator) textVariants(criteria indexer.SearchCriteria) []indexer.SearchCriteria {
	titles := criteria.SearchTitles
	if len(titles) == 0 {
		titles = []string{criteria.QueryText()}
	}
	if len(titles) > 3 {
		titles = titles[:3]
	}

	variants := make([]indexer.SearchCriteria, 0, len(titles)*2)
	for _, title := range titles {
		if strings.TrimSpace(title) == "" {
			continue
		}
		switch criteria.Type {
		case indexer.SearchMovie:
			withYear := criteria
			withYear.Movie.Query = title
			variants = append(variants, withYear)
			if criteria.Movie.Year != 0 {
				noYear := withYear
				noYear.Movie.Year = 0
				variants = append(variants, noYear)
			}
		case indexer.SearchTV:
			standard := criteria
			standard.TV.Query = title
			variants = append(variants, standard)
		default:
			basic := criteria
			basic.Basic = title
			variants = append(variants, basic)
		}
	}
	return variants
}

// passesSeasonEpisodePolicy applies the season/episode inclusion rules for
// TV searches. Movie and basic searches are unaffected. An interactive
// single-episode search rejects season packs outright, since the user is
// waiting on one specific episode; an automatic single-episode search
// keeps season packs that cover the target episode, since a pack is often
// the preferred way to fill a missing episode unattended. A season-only
// search keeps season/series packs for the requested season and rejects
// single episodes.
func (o *Orchestrator) passesSeasonEpisodePolicy(criteria indexer.SearchCriteria, opts Options, p indexer.ParsedRelease) bool {
	if criteria.Type != indexer.SearchTV {
		return true
	}
	tv := criteria.TV

	seasonMatches := func() bool {
		if tv.Season == 0 {
			return true
		}
		return p.Season == tv.Season || containsInt(p.Seasons, tv.Season) || p.IsFullSeries
	}

	if tv.SeasonOnly {
		if !seasonMatches() {
			return false
		}
		return p.IsSeasonPack || p.IsFullSeries
	}

	if tv.Episode != 0 {
		if !seasonMatches() {
			return false
		}
		inEpisode := p.Episode == tv.Episode || containsInt(p.Episodes, tv.Episode)
		isPack := p.IsSeasonPack || p.IsFullSeries

		if opts.SearchSource == indexer.SearchSourceInteractive {
			return inEpisode && !isPack
		}
		return inEpisode || isPack
	}

	return seasonMatches()
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// passesHardFilters rejects releases that can never satisfy criteria
// regardless of quality: a movie search pulling in TV-shaped noise, a
// release whose categories don't overlap the requested ones, or a release
// whose title doesn't plausibly refer to what was searched for.
func (o *Orchestrator) passesHardFilters(criteria indexer.SearchCriteria, v indexer.ReleaseView) (bool, string) {
	if criteria.Type == indexer.SearchMovie {
		p := v.Parsed
		if p.Season != 0 || p.Episode != 0 || p.IsSeasonPack || p.IsFullSeries {
			return false, "movie_rejects_tv"
		}
	}

	if len(criteria.Categories) > 0 && len(v.Raw.Categories) > 0 && !categoriesOverlap(criteria.Categories, v.Raw.Categories) {
		return false, "category_mismatch"
	}

	if !titleRelevant(criteria, v.Parsed) {
		return false, "title_relevance"
	}

	return true, ""
}

func categoriesOverlap(want, have []int) bool {
	set := make(map[int]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	for _, c := range want {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// titleRelevant reports whether a release's clean title plausibly matches
// any of criteria's candidate titles, either as a direct substring or by
// sharing at least half of the query's words.
func titleRelevant(criteria indexer.SearchCriteria, p indexer.ParsedRelease) bool {
	query := criteria.QueryText()
	if strings.TrimSpace(query) == "" {
		return true
	}

	titles := criteria.SearchTitles
	if len(titles) == 0 {
		titles = []string{query}
	}

	clean := strings.ToLower(p.CleanTitle)
	if clean == "" {
		clean = strings.ToLower(p.Title)
	}

	for _, t := range titles {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(clean, t) || strings.Contains(t, clean) {
			return true
		}
		if wordOverlapHalf(t, clean) {
			return true
		}
	}
	return false
}

func wordOverlapHalf(query, title string) bool {
	words := strings.Fields(query)
	if len(words) == 0 {
		return false
	}
	titleWords := make(map[string]struct{})
	for _, w := range strings.Fields(title) {
		titleWords[w] = struct{}{}
	}
	matched := 0
	for _, w := range words {
		if _, ok := titleWords[w]; ok {
			matched++
		}
	}
	return matched*2 >= len(words)
}

// enrich scores every surviving candidate, resolving per-season episode
// count hints from the metadata resolver so the scorer can size-bound
// season packs.
func (o *Orchestrator) enrich(ctx context.Context, criteria indexer.SearchCriteria, opts Options, views []indexer.ReleaseView) []scoring.Enhanced {
	so := scoring.Options{
		MinSeeders:         opts.MinSeeders,
		DeadTorrentSeeders: opts.DeadTorrentSeeders,
		MinScore:           opts.MinScore,
		FilterRejected:     opts.FilterRejected && opts.Enrichment,
	}

	if o.seasons != nil && criteria.Type == indexer.SearchTV && criteria.TV.TVDBID != 0 {
		so.SeasonEpisodeCounts = o.episodeCountHints(ctx, criteria.TV.TVDBID, views)
	}

	return scoring.New(o.profile).Rank(views, so)
}

// episodeCountHints resolves the episode count for every distinct season
// referenced by views, via the season cache so repeated searches don't
// re-hit the metadata resolver.
func (o *Orchestrator) episodeCountHints(ctx context.Context, tvdbID int, views []indexer.ReleaseView) map[int]int {
	seasons := make(map[int]struct{})
	for _, v := range views {
		if v.Parsed.Season != 0 {
			seasons[v.Parsed.Season] = struct{}{}
		}
		for _, s := range v.Parsed.Seasons {
			seasons[s] = struct{}{}
		}
	}

	hints := make(map[int]int, len(seasons))
	for season := range seasons {
		count, err := o.seasons.EpisodeCount(ctx, tvdbID, season)
		if err != nil {
			continue
		}
		hints[season] = count
	}
	return hints
}
