// Package api exposes the composition root's HTTP surface: search, grab,
// and indexer status endpoints, plus the websocket event stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/orchestrd/orchestrd/internal/broadcast"
	"github.com/orchestrd/orchestrd/internal/grab"
	"github.com/orchestrd/orchestrd/internal/health"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/orchestrator"
	"github.com/orchestrd/orchestrd/internal/quality"
)

// Server wires the HTTP routes to the core components.
type Server struct {
	echo         *echo.Echo
	orchestrator *orchestrator.Orchestrator
	dispatcher   *grab.Dispatcher
	tracker      *health.Tracker
	broadcaster  *broadcast.Hub
	profile      *quality.Profile
	logger       zerolog.Logger
}

// New builds a Server with the standard middleware stack.
func New(orch *orchestrator.Orchestrator, dispatcher *grab.Dispatcher, tracker *health.Tracker, broadcaster *broadcast.Hub, profile *quality.Profile, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(securityHeaders())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true, LogURI: true, LogLatency: true, LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/v1/events"
		},
	}))

	s := &Server{
		echo:         e,
		orchestrator: orch,
		dispatcher:   dispatcher,
		tracker:      tracker,
		broadcaster:  broadcaster,
		profile:      profile,
		logger:       logger.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s
}

func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")
			return next(c)
		}
	}
}

func (s *Server) routes() {
	v1 := s.echo.Group("/api/v1")
	v1.POST("/search", s.handleSearch)
	v1.POST("/grab", s.handleGrab)
	v1.GET("/indexers/:id/status", s.handleIndexerStatus)
	v1.GET("/events", s.broadcaster.HandleWebSocket)
}

type searchRequest struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	TMDBID   int    `json:"tmdbId"`
	TVDBID   int    `json:"tvdbId"`
	IMDBID   string `json:"imdbId"`
	Year     int    `json:"year"`
	Season   int    `json:"season"`
	Episode  int    `json:"episode"`
	Enhanced bool   `json:"enhanced"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var criteria indexer.SearchCriteria
	switch req.Type {
	case "movie":
		criteria = indexer.NewMovieCriteria(indexer.MovieCriteria{
			Query: req.Query, TMDBID: req.TMDBID, IMDBID: req.IMDBID, Year: req.Year,
		}, indexer.MovieCategories)
	case "tv":
		criteria = indexer.NewTVCriteria(indexer.TVCriteria{
			Query: req.Query, TVDBID: req.TVDBID, IMDBID: req.IMDBID,
			Season: req.Season, Episode: req.Episode, SeasonOnly: req.Episode == 0,
		}, indexer.TVCategories)
	default:
		criteria = indexer.NewBasicCriteria(req.Query, nil)
	}

	opts := orchestrator.DefaultOptions()
	opts.SearchSource = indexer.SearchSourceInteractive
	opts.Enrichment = req.Enhanced
	opts.UseCache = !req.Enhanced

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	result, err := s.orchestrator.Search(c.Request().Context(), requestID, criteria, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, result)
}

type grabRequest struct {
	Title       string `json:"title"`
	DownloadURL string `json:"downloadUrl"`
	GUID        string `json:"guid"`
	Protocol    string `json:"protocol"`
	IndexerID   string `json:"indexerId"`
	MediaType   string `json:"mediaType"`
	Categories  []int  `json:"categories"`
	Force       bool   `json:"force"`
}

func (s *Server) handleGrab(c echo.Context) error {
	var req grabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	view := indexer.ReleaseView{
		Raw: indexer.ReleaseResult{
			Title:       req.Title,
			DownloadURL: req.DownloadURL,
			GUID:        req.GUID,
			Protocol:    indexer.Protocol(req.Protocol),
			IndexerID:   req.IndexerID,
		},
	}

	outcome, err := s.dispatcher.Grab(c.Request().Context(), grab.GrabRequest{
		View:       view,
		MediaType:  req.MediaType,
		Categories: req.Categories,
		Force:      req.Force,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleIndexerStatus(c echo.Context) error {
	status, err := s.tracker.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// Start runs the HTTP server, blocking until it exits.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server within the given timeout.
func (s *Server) Shutdown(timeoutSeconds int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
