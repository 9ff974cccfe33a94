package cardigann_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/indexer/cardigann"
)

const sampleHTML = `
<html><body>
<table>
<tr class="header"><td>Name</td></tr>
<tr class="result">
  <td><a class="title" href="/details/1">Movie.Name.2024.1080p.BluRay-GROUP</a></td>
  <td><a class="dl" href="/download/1.torrent">dl</a></td>
  <td class="size">1.4 GB</td>
  <td class="seeders">42</td>
  <td class="leechers">3</td>
</tr>
</table>
</body></html>`

func TestAdapter_Search_ParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleHTML))
	}))
	defer srv.Close()

	def := cardigann.Definition{
		ID:         "test-indexer",
		SearchURL:  srv.URL + "/search?q={{query}}",
		Protocol:   indexer.ProtocolTorrent,
		Categories: indexer.MovieCategories,
		Row:        cardigann.RowSelector{Selector: "tr.result"},
		Title:      cardigann.FieldMap{Selector: "a.title"},
		DownloadURL: cardigann.FieldMap{Selector: "a.dl", Attribute: "href"},
		InfoURL:     cardigann.FieldMap{Selector: "a.title", Attribute: "href"},
		Size:        cardigann.FieldMap{Selector: "td.size"},
		Seeders:     cardigann.FieldMap{Selector: "td.seeders"},
		Leechers:    cardigann.FieldMap{Selector: "td.leechers"},
	}

	a := cardigann.New(def, "")
	criteria := indexer.NewBasicCriteria("Movie Name", indexer.MovieCategories)

	results, err := a.Search(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Movie.Name.2024.1080p.BluRay-GROUP", r.Title)
	assert.Equal(t, "/download/1.torrent", r.DownloadURL)
	assert.Equal(t, 42, r.Seeders)
	assert.Equal(t, 3, r.Leechers)
	gigabytes := 1.4
	assert.Equal(t, int64(gigabytes*(1<<30)), r.Size)
}

func TestAdapter_Search_ForbiddenMapsToCloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	def := cardigann.Definition{ID: "blocked", SearchURL: srv.URL, Protocol: indexer.ProtocolTorrent}
	a := cardigann.New(def, "")

	_, err := a.Search(context.Background(), indexer.NewBasicCriteria("x", nil))
	require.Error(t, err)
	assert.True(t, coreerr.HasCode(err, coreerr.CloudflareProtected))
}
