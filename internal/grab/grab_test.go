package grab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/coreerr"
	"github.com/orchestrd/orchestrd/internal/downloadclient"
	"github.com/orchestrd/orchestrd/internal/grab"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/testutil"
)

type fakeClient struct {
	id       string
	protocol indexer.Protocol
	err      error
	gotOpts  downloadclient.AddOptions
	gotURL   string
}

func (f *fakeClient) ID() string                     { return f.id }
func (f *fakeClient) Protocol() indexer.Protocol      { return f.protocol }
func (f *fakeClient) Ping(ctx context.Context) error  { return nil }
func (f *fakeClient) Add(ctx context.Context, fetchURL, category string, opts downloadclient.AddOptions) (downloadclient.AddResult, error) {
	f.gotOpts = opts
	f.gotURL = fetchURL
	if f.err != nil {
		return downloadclient.AddResult{}, f.err
	}
	return downloadclient.AddResult{ClientDownloadID: "dl-1", Category: category}, nil
}

type fakeResolverAdapter struct {
	indexer.Adapter
	id          string
	resolvedURL string
	err         error
}

func (f *fakeResolverAdapter) ID() string { return f.id }
func (f *fakeResolverAdapter) ResolveDownloadURL(ctx context.Context, result indexer.ReleaseResult) (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.resolvedURL, nil, nil
}

func view(title, fp string) indexer.ReleaseView {
	return indexer.ReleaseView{Raw: indexer.ReleaseResult{
		Title: title, GUID: fp, Protocol: indexer.ProtocolTorrent, DownloadURL: "https://indexer.example/fetch/" + fp,
	}}
}

func TestDispatcher_Grab_Success(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry([]downloadclient.Client{&fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent}})
	d := grab.New(tdb.Conn, reg, nil, "movies")

	resp, err := d.Grab(context.Background(), grab.GrabRequest{View: view("Movie.2024.1080p", "fp-1")})
	require.NoError(t, err)
	assert.Equal(t, "qbit-1", resp.ClientID)
	assert.Equal(t, "dl-1", resp.Hash)
	assert.False(t, resp.WasDuplicate)
}

func TestDispatcher_Grab_ForwardsPauseAndSeedRatio(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	client := &fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent}
	reg := downloadclient.NewRegistry([]downloadclient.Client{client})
	d := grab.New(tdb.Conn, reg, nil, "movies")

	_, err := d.Grab(context.Background(), grab.GrabRequest{
		View: view("Movie.2024.1080p", "fp-1b"), Pause: true, SeedRatioLimit: 2.5, Priority: 1,
	})
	require.NoError(t, err)
	assert.True(t, client.gotOpts.Pause)
	assert.Equal(t, 2.5, client.gotOpts.SeedRatioLimit)
	assert.Equal(t, 1, client.gotOpts.Priority)
}

func TestDispatcher_Grab_RejectsDuplicate(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry([]downloadclient.Client{&fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent}})
	d := grab.New(tdb.Conn, reg, nil, "movies")

	req := grab.GrabRequest{View: view("Movie.2024.1080p", "fp-2")}
	_, err := d.Grab(context.Background(), req)
	require.NoError(t, err)

	_, err = d.Grab(context.Background(), req)
	require.Error(t, err)
	assert.True(t, coreerr.HasCode(err, coreerr.DuplicateDownload))
}

func TestDispatcher_Grab_ClientReportedDuplicateIsSuccess(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry([]downloadclient.Client{
		&fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent, err: &downloadclient.DuplicateError{ClientID: "qbit-1", ClientDownloadID: "existing-hash"}},
	})
	d := grab.New(tdb.Conn, reg, nil, "movies")

	resp, err := d.Grab(context.Background(), grab.GrabRequest{View: view("Movie.2024.1080p", "fp-dup")})
	require.NoError(t, err)
	assert.True(t, resp.WasDuplicate)
	assert.Equal(t, "existing-hash", resp.Hash)
}

func TestDispatcher_Grab_NoClientConfigured(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry(nil)
	d := grab.New(tdb.Conn, reg, nil, "movies")

	_, err := d.Grab(context.Background(), grab.GrabRequest{View: view("Movie.2024.1080p", "fp-3")})
	require.Error(t, err)
	assert.True(t, coreerr.HasCode(err, coreerr.ResolutionFailed))
}

func TestDispatcher_Grab_RejectsCategoryMismatch(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry([]downloadclient.Client{&fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent}})
	d := grab.New(tdb.Conn, reg, nil, "movies")

	v := view("Movie.2024.1080p", "fp-4")
	v.Raw.Categories = []int{5000}

	_, err := d.Grab(context.Background(), grab.GrabRequest{View: v, Categories: []int{2000}})
	require.Error(t, err)
	assert.True(t, coreerr.HasCode(err, coreerr.CategoryMismatch))
}

func TestDispatcher_Grab_ResolvesURLThroughAdapter(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	client := &fakeClient{id: "qbit-1", protocol: indexer.ProtocolTorrent}
	reg := downloadclient.NewRegistry([]downloadclient.Client{client})
	d := grab.New(tdb.Conn, reg, nil, "movies")
	d.SetAdapters(map[string]indexer.Adapter{
		"idx-a": &fakeResolverAdapter{id: "idx-a", resolvedURL: "https://indexer.example/resolved-magnet"},
	})

	v := view("Movie.2024.1080p", "fp-5")
	v.Raw.IndexerID = "idx-a"

	resp, err := d.Grab(context.Background(), grab.GrabRequest{View: v})
	require.NoError(t, err)
	assert.Equal(t, "qbit-1", resp.ClientID)
	assert.Equal(t, "https://indexer.example/resolved-magnet", client.gotURL)
}

func TestDispatcher_Grab_Streaming(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	reg := downloadclient.NewRegistry(nil)
	d := grab.New(tdb.Conn, reg, nil, "movies")

	v := indexer.ReleaseView{Raw: indexer.ReleaseResult{
		Title: "Movie.2024.1080p", GUID: "fp-stream", Protocol: indexer.ProtocolStreaming, StreamURL: "https://stream.example/watch/1",
	}}

	resp, err := d.Grab(context.Background(), grab.GrabRequest{View: v})
	require.NoError(t, err)
	assert.Equal(t, "streaming", resp.ClientID)
	assert.Equal(t, "https://stream.example/watch/1", resp.Hash)
}
