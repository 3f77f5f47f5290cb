package mainimage

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

func newTestPipeline(t *testing.T, srv *imageServer, pages map[string]string) *Pipeline {
	t.Helper()
	host := srv.Listener.Addr().String()
	return New(&fakeSource{pages: pages}, newTestFetcher(srv.Client()), Options{OriginHost: host}, testLogger())
}

func TestLookup_InfoboxImageEndToEnd(t *testing.T) {
	srv := newImageServer(t, true)
	logo := pngBytes(t, 121, 121)
	srv.handle("/upload/Python-logo.png", logo)
	srv.handle("/big-body.png", pngBytes(t, 800, 600))
	srv.handle("/wiki/Python_(programming_language)", []byte(fmt.Sprintf(`<html><body>
		<img src="/big-body.png">
		<table class="infobox vevent"><tr><td><img src="//%s/upload/Python-logo.png" width="121"></td></tr></table>
	</body></html>`, srv.Listener.Addr().String())))

	p := newTestPipeline(t, srv, map[string]string{
		"Python (programming language)": srv.URL + "/wiki/Python_(programming_language)",
	})

	res := p.Lookup(context.Background(), "Python (programming language)")
	require.True(t, res.Found(), "unexpected outcome %s: %v", res.Outcome, res.Err)
	assert.Equal(t, models.ContextInfobox, res.Context)
	assert.Equal(t, 121, res.Width)
	assert.Equal(t, 121, res.Height)
	assert.NotContains(t, srv.requested(), "/big-body.png")

	decoded, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	orig, err := png.Decode(bytes.NewReader(logo))
	require.NoError(t, err)
	assertSamePixels(t, orig, decoded)
}

func TestFetchImages_BodyScanReturnsOnePayload(t *testing.T) {
	srv := newImageServer(t, true)
	srv.handle("/icon.png", pngBytes(t, 16, 16))
	srv.handle("/photo.jpg", jpegBytes(t, 240, 180))
	srv.handle("/another.png", pngBytes(t, 240, 180))
	srv.handle("/wiki/Stub", []byte(`<p><img src="/icon.png"><img src="/photo.jpg"><img src="/another.png"></p>`))

	p := newTestPipeline(t, srv, map[string]string{"Stub": srv.URL + "/wiki/Stub"})

	images := p.FetchImages(context.Background(), "Stub")
	require.Len(t, images, 1)

	decoded, err := png.Decode(bytes.NewReader(images[0]))
	require.NoError(t, err)
	assert.Equal(t, 240, decoded.Bounds().Dx())
	assert.Equal(t, 180, decoded.Bounds().Dy())
}

func TestFetchImages_Empty(t *testing.T) {
	srv := newImageServer(t, true)
	srv.handle("/tiny.png", pngBytes(t, 16, 16))
	srv.handle("/wiki/Icons", []byte(`<img src="/tiny.png"><img src="/tiny.png">`))
	srv.handle("/wiki/Text", []byte(`<p>No pictures here.</p>`))
	srv.handle("/wiki/Dropped", []byte(`<table class="infobox"><tr><td><img src="/drop"></td></tr></table>`))
	srv.handleStatus("/wiki/Gone", 500, nil)

	p := newTestPipeline(t, srv, map[string]string{
		"Icons":   srv.URL + "/wiki/Icons",
		"Text":    srv.URL + "/wiki/Text",
		"Dropped": srv.URL + "/wiki/Dropped",
		"Gone":    srv.URL + "/wiki/Gone",
	})

	tests := []struct {
		title   string
		outcome models.ImageOutcome
	}{
		{"Icons", models.ImageOutcomeNoQualifying},
		{"Text", models.ImageOutcomeNoCandidates},
		{"Dropped", models.ImageOutcomeNetworkError},
		{"Gone", models.ImageOutcomeNetworkError},
		{"Does not exist", models.ImageOutcomePageNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Empty(t, p.FetchImages(context.Background(), tt.title))

			res := p.Lookup(context.Background(), tt.title)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Error(t, res.Err)
			assert.Nil(t, res.PNG)
		})
	}
}

func TestLookup_SourceErrorDegrades(t *testing.T) {
	srv := newImageServer(t, false)
	p := New(&fakeSource{err: fmt.Errorf("%w: api down", utils.ErrNetwork)}, newTestFetcher(nil), Options{}, testLogger())

	res := p.Lookup(context.Background(), "Anything")
	assert.Equal(t, models.ImageOutcomeNetworkError, res.Outcome)
	assert.Empty(t, srv.requested())
}

func TestLookup_ResolvesArticleOnce(t *testing.T) {
	srv := newImageServer(t, true)
	srv.handle("/a.png", pngBytes(t, 200, 200))
	srv.handle("/wiki/A", []byte(`<img src="/a.png">`))

	src := &fakeSource{pages: map[string]string{"A": srv.URL + "/wiki/A"}}
	p := New(src, newTestFetcher(srv.Client()), Options{OriginHost: srv.Listener.Addr().String()}, testLogger())

	res := p.Lookup(context.Background(), "A")
	require.True(t, res.Found(), "unexpected outcome %s: %v", res.Outcome, res.Err)
	assert.Equal(t, 1, src.calls)
}

// panicSource exercises the recover boundary
type panicSource struct{}

func (panicSource) ResolvePage(context.Context, string) (string, bool, error) { panic("boom") }

func TestLookup_RecoversFromPanic(t *testing.T) {
	p := New(panicSource{}, newTestFetcher(nil), Options{}, testLogger())

	var res *Result
	assert.NotPanics(t, func() { res = p.Lookup(context.Background(), "X") })
	assert.Equal(t, models.ImageOutcomeDecodeError, res.Outcome)
	assert.Empty(t, p.FetchImages(context.Background(), "X"))
}

func TestFindMainImage_Direct(t *testing.T) {
	srv := newImageServer(t, false)
	srv.handle("/a.png", pngBytes(t, 130, 140))

	p := New(&fakeSource{}, newTestFetcher(nil), Options{}, testLogger())
	res := p.FindMainImage(context.Background(), fmt.Sprintf(`<img src="%s/a.png">`, srv.URL))

	require.True(t, res.Found())
	assert.Equal(t, srv.URL+"/a.png", res.SourceURL)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, 1, res.Probed)
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, models.ImageOutcomeFound, outcomeFor(nil))
	assert.Equal(t, models.ImageOutcomeDecodeError, outcomeFor(fmt.Errorf("%w: x", utils.ErrDecode)))
	assert.Equal(t, models.ImageOutcomeNoQualifying, outcomeFor(fmt.Errorf("%w: %w", utils.ErrNoQualifyingImage, utils.ErrDecode)))
	assert.Equal(t, models.ImageOutcomeNetworkError, outcomeFor(context.DeadlineExceeded))
}
