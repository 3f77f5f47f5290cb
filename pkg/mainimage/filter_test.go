package mainimage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

func body(refs ...string) []models.ImageCandidate {
	out := make([]models.ImageCandidate, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.ImageCandidate{SourceReference: r, Context: models.ContextBody})
	}
	return out
}

func TestSelect_FirstBodyImageMeetingThreshold(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/icon.png", pngBytes(t, 20, 20))
	srv.handle("/wide-flag.png", pngBytes(t, 300, 119))
	srv.handle("/broken.png", []byte("not an image"))
	srv.handle("/photo.jpg", jpegBytes(t, 120, 120))
	srv.handle("/later.png", pngBytes(t, 500, 500))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body(
		srv.URL+"/icon.png", srv.URL+"/wide-flag.png", srv.URL+"/broken.png", srv.URL+"/photo.jpg", srv.URL+"/later.png",
	))
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/photo.jpg", got.URL)
	assert.Equal(t, 120, got.Image.Width)
	assert.Equal(t, 4, got.Probed)
	// Strictly sequential, stops at the first acceptance, each candidate fetched once
	assert.Equal(t, []string{"/icon.png", "/wide-flag.png", "/broken.png", "/photo.jpg"}, srv.requested())
}

func TestSelect_InfoboxTrustedWithoutSizeCheck(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/tiny-infobox.png", pngBytes(t, 10, 10))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), []models.ImageCandidate{
		{SourceReference: srv.URL + "/tiny-infobox.png", Context: models.ContextInfobox},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Image.Width)
	assert.Equal(t, models.ContextInfobox, got.Candidate.Context)
}

func TestSelect_UndecodableInfoboxMeansNoImage(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/infobox.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	srv.handle("/big.png", pngBytes(t, 400, 400))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	_, err := sel.Select(context.Background(), []models.ImageCandidate{
		{SourceReference: srv.URL + "/infobox.svg", Context: models.ContextInfobox},
		{SourceReference: srv.URL + "/big.png", Context: models.ContextBody},
	})
	assert.ErrorIs(t, err, utils.ErrNoQualifyingImage)
	assert.Equal(t, []string{"/infobox.svg"}, srv.requested())
}

func TestSelect_NonSuccessStatusIsSkipped(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handleStatus("/forbidden.png", 403, pngBytes(t, 300, 300))
	srv.handle("/ok.png", pngBytes(t, 300, 300))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/missing.png", srv.URL+"/forbidden.png", srv.URL+"/ok.png"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/ok.png", got.URL)
}

func TestSelect_NetworkErrorAbortsSearch(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/small.png", pngBytes(t, 10, 10))
	srv.handle("/big.png", pngBytes(t, 400, 400))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/small.png", srv.URL+"/drop", srv.URL+"/big.png"))
	assert.ErrorIs(t, err, utils.ErrNetwork)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Probed)
	assert.NotContains(t, srv.requested(), "/big.png")
}

func TestSelect_Exhausted(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/a.png", pngBytes(t, 119, 500))
	srv.handle("/b.png", pngBytes(t, 500, 119))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/a.png", srv.URL+"/b.png"))
	assert.ErrorIs(t, err, utils.ErrNoQualifyingImage)
	assert.Equal(t, 2, got.Probed)
}

func TestSelect_NoCandidates(t *testing.T) {
	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	_, err := sel.Select(context.Background(), nil)
	assert.ErrorIs(t, err, utils.ErrNoCandidates)
}

func TestSelect_CandidateCap(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/a.png", pngBytes(t, 10, 10))
	srv.handle("/b.png", pngBytes(t, 10, 10))
	srv.handle("/c.png", pngBytes(t, 300, 300))

	sel := NewSelector(newTestFetcher(nil), Options{MaxCandidates: 2}, testLogger())
	_, err := sel.Select(context.Background(), body(srv.URL+"/a.png", srv.URL+"/b.png", srv.URL+"/c.png"))
	assert.ErrorIs(t, err, utils.ErrNoQualifyingImage)
	assert.Equal(t, []string{"/a.png", "/b.png"}, srv.requested())
}

func TestSelect_CustomThresholdAndUserAgent(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/a.png", pngBytes(t, 150, 150))
	srv.handle("/b.png", pngBytes(t, 250, 250))

	sel := NewSelector(newTestFetcher(nil), Options{MinWidth: 200, MinHeight: 200, UserAgent: "Mozilla/5.0"}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/a.png", srv.URL+"/b.png"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/b.png", got.URL)
	for _, ua := range srv.userAgents() {
		assert.Equal(t, "Mozilla/5.0", ua)
	}
}

func TestSelect_OversizePayloadSkipped(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/huge.png", pngBytes(t, 300, 300))
	srv.handle("/ok.png", pngBytes(t, 130, 130))

	huge := int64(len(pngBytes(t, 300, 300)))
	sel := NewSelector(newTestFetcher(nil), Options{MaxImageBytes: huge - 1}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/huge.png", srv.URL+"/ok.png"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/ok.png", got.URL)
}

func TestSelect_OversizedRasterSkipped(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/bomb.png", oversizedPNG(t, 1000000, 1000000))
	srv.handle("/ok.png", pngBytes(t, 130, 130))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body(srv.URL+"/bomb.png", srv.URL+"/ok.png"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/ok.png", got.URL)
	assert.Equal(t, 2, got.Probed)
	assert.Equal(t, []string{"/bomb.png", "/ok.png"}, srv.requested())
}

func TestSelect_OversizedRasterInfoboxMeansNoImage(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/bomb.png", oversizedPNG(t, 1000000, 1000000))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	_, err := sel.Select(context.Background(), []models.ImageCandidate{
		{SourceReference: srv.URL + "/bomb.png", Context: models.ContextInfobox},
	})
	assert.ErrorIs(t, err, utils.ErrNoQualifyingImage)
}

func TestSelect_UnfetchableReferenceSkipped(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/ok.png", pngBytes(t, 130, 130))

	sel := NewSelector(newTestFetcher(nil), Options{}, testLogger())
	got, err := sel.Select(context.Background(), body("relative/icon.png", "ftp://example.org/x.png", srv.URL+"/ok.png"))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Probed)
}

func TestSelect_ResolvesRelativeReferences(t *testing.T) {
	srv := newImageServer(t, true)
	srv.handle("/static/logo.png", pngBytes(t, 200, 200))
	srv.handle("/upload/photo.png", pngBytes(t, 300, 300))

	host := srv.Listener.Addr().String()
	sel := NewSelector(newTestFetcher(srv.Client()), Options{OriginHost: host}, testLogger())

	got, err := sel.Select(context.Background(), body("/static/logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://"+host+"/static/logo.png", got.URL)

	got, err = sel.Select(context.Background(), body("//"+host+"/upload/photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://"+host+"/upload/photo.png", got.URL)
}
