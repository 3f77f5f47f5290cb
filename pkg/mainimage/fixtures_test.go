package mainimage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/fetch"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// testImage returns a w x h gradient so pixel comparisons are meaningful
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

// oversizedPNG is a small valid PNG whose IHDR declares w x h.
// Decoding it fully would allocate the declared raster.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// Signature (8) then IHDR: length (4), type (4), data (13), CRC (4)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// imageServer serves fixed payloads by path and records every request
type imageServer struct {
	*httptest.Server
	mu       sync.Mutex
	routes   map[string][]byte
	status   map[string]int
	requests []string
	agents   []string
}

func newImageServer(t *testing.T, tls bool) *imageServer {
	t.Helper()
	s := &imageServer{routes: map[string][]byte{}, status: map[string]int{}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		s.agents = append(s.agents, r.UserAgent())
		body, ok := s.routes[r.URL.Path]
		code, hasCode := s.status[r.URL.Path]
		s.mu.Unlock()

		if r.URL.Path == "/drop" {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		if hasCode {
			w.WriteHeader(code)
			w.Write(body)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	})
	if tls {
		s.Server = httptest.NewTLSServer(handler)
	} else {
		s.Server = httptest.NewServer(handler)
	}
	t.Cleanup(s.Close)
	return s
}

func (s *imageServer) handle(path string, body []byte) {
	s.mu.Lock()
	s.routes[path] = body
	s.mu.Unlock()
}

func (s *imageServer) handleStatus(path string, code int, body []byte) {
	s.mu.Lock()
	s.status[path] = code
	s.routes[path] = body
	s.mu.Unlock()
}

func (s *imageServer) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *imageServer) userAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.agents...)
}

func newTestFetcher(client *http.Client) *fetch.Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return fetch.NewFetcher(client, &config.AppConfig{DefaultUserAgent: "wiki-bot-test/1.0"}, testLogger())
}

// fakeSource is an in-memory ArticleSource
type fakeSource struct {
	pages map[string]string // title -> canonical URL
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeSource) ResolvePage(_ context.Context, title string) (string, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	u, ok := f.pages[title]
	return u, ok, nil
}
