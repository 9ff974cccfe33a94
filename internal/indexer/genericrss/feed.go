// Package genericrss implements an indexer.Adapter over a plain RSS/Torznab
// feed, for sites that publish a release feed without a query-driven search
// endpoint.
package genericrss

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/indexer"
)

const maxFeedBytes = 10 * 1024 * 1024

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string        `xml:"title"`
	Link      string        `xml:"link"`
	GUID      string        `xml:"guid"`
	PubDate   string        `xml:"pubDate"`
	Enclosure rssEnclosure  `xml:"enclosure"`
	Attrs     []torznabAttr `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (i rssItem) attr(name string) string {
	for _, a := range i.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Adapter polls a fixed feed URL and returns its items as release results,
// ignoring the search criteria.
type Adapter struct {
	id         string
	feedURL    string
	cookie     string
	protocol   indexer.Protocol
	categories []int
	httpClient *http.Client
}

// New creates a feed-backed Adapter.
func New(id, feedURL, cookie string, protocol indexer.Protocol, categories []int) *Adapter {
	return &Adapter{
		id: id, feedURL: feedURL, cookie: cookie, protocol: protocol, categories: categories,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Capabilities(ctx context.Context) (indexer.Capabilities, error) {
	host := ""
	if u, err := url.Parse(a.feedURL); err == nil {
		host = u.Host
	}
	return indexer.Capabilities{
		IndexerID:          a.id,
		BaseURL:            host,
		SupportsMovieSearch: true,
		SupportsTVSearch:    true,
		InteractiveEnabled:  true,
		AutomaticEnabled:    true,
		Categories:          a.categories,
		Protocol:            a.protocol,
	}, nil
}

// ResolveDownloadURL passes Usenet/Torznab URLs through unchanged: a feed
// item's enclosure link is already a direct, crendential-bearing fetch URL.
func (a *Adapter) ResolveDownloadURL(ctx context.Context, result indexer.ReleaseResult) (string, []byte, error) {
	return result.DownloadURL, nil, nil
}

// Search ignores criteria entirely: this adapter has no query parameter,
// only a firehose of the feed's current items. Every item is returned and
// tagged with the adapter's configured categories; no category filtering
// happens here.
func (a *Adapter) Search(ctx context.Context, criteria indexer.SearchCriteria) ([]indexer.ReleaseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL, nil)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.id, "build feed request", err)
	}
	req.Header.Set("User-Agent", "orchestrd/1.0")
	if a.cookie != "" {
		req.Header.Set("Cookie", a.cookie)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Timeout, a.id, "feed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, coreerr.New(coreerr.Unknown, a.id, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.id, "read feed response", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, coreerr.Wrap(coreerr.Unknown, a.id, "parse feed xml", err)
	}

	results := make([]indexer.ReleaseResult, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		downloadURL := item.Enclosure.URL
		if downloadURL == "" {
			downloadURL = item.Link
		}
		size := item.Enclosure.Length
		if size == 0 {
			if v, err := strconv.ParseInt(item.attr("size"), 10, 64); err == nil {
				size = v
			}
		}
		seeders, _ := strconv.Atoi(item.attr("seeders"))
		leechers, _ := strconv.Atoi(item.attr("peers"))

		results = append(results, indexer.ReleaseResult{
			Title:       item.Title,
			DownloadURL: downloadURL,
			InfoURL:     item.Link,
			InfoHash:    item.attr("infohash"),
			GUID:        firstNonEmpty(item.GUID, item.Link),
			Protocol:    a.protocol,
			Categories:  a.categories,
			Size:        size,
			Seeders:     seeders,
			Leechers:    leechers,
			PublishDate: parsePubDate(item.PubDate),
			IndexerID:   a.id,
		})
	}
	return results, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parsePubDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC1123Z, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
