package genericrss_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/indexer/genericrss"
)

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
<item>
  <title>Show.Name.S01E02.1080p.WEB-DL</title>
  <link>https://example.test/details/2</link>
  <guid>https://example.test/guid/2</guid>
  <pubDate>Fri, 01 Aug 2025 10:00:00 +0000</pubDate>
  <enclosure url="https://example.test/download/2.torrent" length="734003200"/>
  <torznab:attr name="seeders" value="12"/>
  <torznab:attr name="peers" value="4"/>
</item>
</channel>
</rss>`

func TestAdapter_Search_ParsesFeedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	a := genericrss.New("feed-1", srv.URL, "", indexer.ProtocolTorrent, indexer.TVCategories)
	results, err := a.Search(context.Background(), indexer.NewBasicCriteria("", nil))
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Show.Name.S01E02.1080p.WEB-DL", r.Title)
	assert.Equal(t, "https://example.test/download/2.torrent", r.DownloadURL)
	assert.Equal(t, 12, r.Seeders)
	assert.Equal(t, 4, r.Leechers)
	assert.False(t, r.PublishDate.IsZero())
}
