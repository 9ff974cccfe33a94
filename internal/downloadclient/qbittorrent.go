package downloadclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/indexer"
)

// QBittorrentClient submits magnet/torrent URLs to a qBittorrent Web API
// instance.
type QBittorrentClient struct {
	clientID   string
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	sid        string
}

// NewQBittorrentClient creates a qBittorrent-backed torrent Client.
func NewQBittorrentClient(clientID, baseURL, username, password string, timeout time.Duration) *QBittorrentClient {
	return &QBittorrentClient{
		clientID:   clientID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *QBittorrentClient) ID() string                  { return c.clientID }
func (c *QBittorrentClient) Protocol() indexer.Protocol   { return indexer.ProtocolTorrent }

func (c *QBittorrentClient) login(ctx context.Context) error {
	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return coreerr.Wrap(coreerr.Unknown, c.clientID, "build login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return coreerr.Wrap(coreerr.Timeout, c.clientID, "login request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return coreerr.New(coreerr.Unauthorized, c.clientID, "invalid qbittorrent credentials")
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "SID" {
			c.sid = cookie.Value
		}
	}
	if c.sid == "" {
		return coreerr.New(coreerr.Unauthorized, c.clientID, "no session cookie returned")
	}
	return nil
}

// Add submits a torrent URL/magnet link to qBittorrent under category.
// Priority is not forwarded: qBittorrent has no per-add priority parameter,
// only a post-add queue-reorder endpoint this client doesn't call.
func (c *QBittorrentClient) Add(ctx context.Context, fetchURL, category string, opts AddOptions) (AddResult, error) {
	if c.sid == "" {
		if err := c.login(ctx); err != nil {
			return AddResult{}, err
		}
	}

	form := url.Values{"urls": {fetchURL}}
	if category != "" {
		form.Set("category", category)
	}
	if opts.Pause {
		form.Set("paused", "true")
	}
	if opts.SeedRatioLimit > 0 {
		form.Set("ratioLimit", strconv.FormatFloat(opts.SeedRatioLimit, 'f', 2, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/torrents/add", strings.NewReader(form.Encode()))
	if err != nil {
		return AddResult{}, coreerr.Wrap(coreerr.Unknown, c.clientID, "build add request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "SID", Value: c.sid})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AddResult{}, coreerr.Wrap(coreerr.Timeout, c.clientID, "add request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		c.sid = ""
		return AddResult{}, coreerr.New(coreerr.Unauthorized, c.clientID, "session expired")
	}
	if resp.StatusCode != http.StatusOK {
		return AddResult{}, coreerr.New(coreerr.ResolutionFailed, c.clientID, "qbittorrent rejected add request")
	}

	return AddResult{Category: category}, nil
}

// Ping verifies connectivity by attempting a login.
func (c *QBittorrentClient) Ping(ctx context.Context) error {
	return c.login(ctx)
}
