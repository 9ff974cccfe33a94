package cardigann

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/indexer"
)

const maxResponseBytes = 10 * 1024 * 1024

// Adapter implements indexer.Adapter for one HTML template definition.
type Adapter struct {
	def        Definition
	cookie     string
	httpClient *http.Client
}

// New creates a template-backed Adapter. cookie, if non-empty, is sent on
// every request for sites that gate search behind a session cookie.
func New(def Definition, cookie string) *Adapter {
	return &Adapter{def: def, cookie: cookie, httpClient: &http.Client{Timeout: 20 * time.Second}}
}

func (a *Adapter) ID() string { return a.def.ID }

func (a *Adapter) Capabilities(ctx context.Context) (indexer.Capabilities, error) {
	host := ""
	if u, err := url.Parse(a.def.SearchURL); err == nil {
		host = u.Host
	}
	return indexer.Capabilities{
		IndexerID:          a.def.ID,
		BaseURL:            host,
		SupportsMovieSearch: true,
		SupportsTVSearch:    true,
		InteractiveEnabled:  true,
		AutomaticEnabled:    true,
		Categories:          a.def.Categories,
		Protocol:            a.def.Protocol,
	}, nil
}

// ResolveDownloadURL dereferences result's hyperlink through this adapter's
// own session (cookie) so rate limits and authentication apply the same way
// they did at search time. Cardigann results already carry a directly
// fetchable download URL; for torrent protocols this re-fetches it so a
// landing-page redirect to a magnet link is followed under the right
// session rather than the caller's bare client.
func (a *Adapter) ResolveDownloadURL(ctx context.Context, result indexer.ReleaseResult) (string, []byte, error) {
	if result.Protocol != indexer.ProtocolTorrent || result.DownloadURL == "" {
		return result.DownloadURL, nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.DownloadURL, nil)
	if err != nil {
		return "", nil, coreerr.Wrap(coreerr.ResolutionFailed, a.def.ID, "build download request", err)
	}
	req.Header.Set("User-Agent", "orchestrd/1.0")
	if a.cookie != "" {
		req.Header.Set("Cookie", a.cookie)
	}

	client := &http.Client{
		Timeout: a.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme == "magnet" {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, coreerr.Wrap(coreerr.ResolutionFailed, a.def.ID, "dereference download url", err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "" {
		return loc, nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", nil, coreerr.Wrap(coreerr.ResolutionFailed, a.def.ID, "read torrent body", err)
	}
	return result.DownloadURL, body, nil
}

func (a *Adapter) Search(ctx context.Context, criteria indexer.SearchCriteria) ([]indexer.ReleaseResult, error) {
	searchURL := a.def.BuildSearchURL(criteria)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.def.ID, "build search request", err)
	}
	req.Header.Set("User-Agent", "orchestrd/1.0")
	if a.cookie != "" {
		req.Header.Set("Cookie", a.cookie)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Timeout, a.def.ID, "search request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, coreerr.New(coreerr.RateLimited, a.def.ID, "search rate limited")
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.StatusCode == http.StatusForbidden {
			return nil, coreerr.New(coreerr.CloudflareProtected, a.def.ID, "search blocked")
		}
		return nil, coreerr.New(coreerr.Unauthorized, a.def.ID, "search requires authentication")
	default:
		return nil, coreerr.New(coreerr.Unknown, a.def.ID, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.def.ID, "read search response", err)
	}

	selector, err := NewHTMLSelector(body)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.def.ID, "parse search response", err)
	}

	rows := selector.Rows(a.def.Row)
	results := make([]indexer.ReleaseResult, 0, len(rows))
	for _, row := range rows {
		title := Extract(row, a.def.Title)
		if title == "" {
			continue
		}
		results = append(results, indexer.ReleaseResult{
			Title:       title,
			DownloadURL: Extract(row, a.def.DownloadURL),
			InfoURL:     Extract(row, a.def.InfoURL),
			GUID:        Extract(row, a.def.InfoURL),
			Protocol:    a.def.Protocol,
			Categories:  a.def.Categories,
			Size:        parseSize(Extract(row, a.def.Size)),
			Seeders:     parseIntDefault(Extract(row, a.def.Seeders)),
			Leechers:    parseIntDefault(Extract(row, a.def.Leechers)),
			PublishDate: parseDate(Extract(row, a.def.PublishDate), a.def.DateLayout),
			IndexerID:   a.def.ID,
		})
	}
	return results, nil
}
