package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/process"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

func TestExtractSnippet(t *testing.T) {
	tests := []struct {
		name    string
		content string
		query   string
		maxLen  int
		wantHas string // substring that must appear
		wantPfx string // expected prefix (if any)
		wantSfx string // expected suffix (if any)
	}{
		{
			name:    "match in middle with ellipsis",
			content: "The quick brown fox jumps over the lazy dog and then keeps running forever",
			query:   "jumps",
			maxLen:  20,
			wantHas: "jumps",
			wantPfx: "...",
			wantSfx: "...",
		},
		{
			name:    "match at start",
			content: "Hello world this is a test",
			query:   "Hello",
			maxLen:  20,
			wantHas: "Hello",
		},
		{
			name:    "match at end",
			content: "This is a very long string that ends with target",
			query:   "target",
			maxLen:  20,
			wantHas: "target",
		},
		{
			name:    "no match truncated beginning",
			content: "abcdefghijklmnopqrstuvwxyz",
			query:   "zzz",
			maxLen:  10,
			wantHas: "abcdefghij",
			wantSfx: "...",
		},
		{
			name:    "short content returned as-is",
			content: "hi",
			query:   "missing",
			maxLen:  100,
			wantHas: "hi",
		},
		{
			name:    "empty content",
			content: "",
			query:   "test",
			maxLen:  50,
			wantHas: "",
		},
		{
			name:    "case insensitive",
			content: "The Quick Brown Fox",
			query:   "quick",
			maxLen:  100,
			wantHas: "Quick",
		},
		{
			name:    "unicode safety",
			content: "こんにちは世界、テストです。Unicode文字列のテスト。",
			query:   "テスト",
			maxLen:  15,
			wantHas: "テスト",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractSnippet(tt.content, tt.query, tt.maxLen)
			if tt.wantHas != "" {
				assert.Contains(t, got, tt.wantHas)
			}
			if tt.wantPfx != "" {
				assert.Contains(t, got, tt.wantPfx, "expected prefix ellipsis")
			}
			if tt.wantSfx != "" {
				assert.True(t, len(got) > 0 && got[len(got)-3:] == "...", "expected suffix ellipsis")
			}
		})
	}
}

type fakeAssistant struct {
	article   *assistant.Article
	text      string
	image     *mainimage.Result
	err       error
	day       time.Time
	requested []string
}

func (f *fakeAssistant) Article(_ context.Context, title string) (*assistant.Article, error) {
	f.requested = append(f.requested, title)
	if f.err != nil {
		return nil, f.err
	}
	if f.article == nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
	}
	return f.article, nil
}

func (f *fakeAssistant) ArticleText(_ context.Context, title string) (string, error) {
	f.requested = append(f.requested, title)
	return f.text, f.err
}

func (f *fakeAssistant) MainImage(_ context.Context, title string) *mainimage.Result {
	f.requested = append(f.requested, title)
	return f.image
}

func (f *fakeAssistant) RandomArticle(context.Context) (string, error) { return f.text, f.err }
func (f *fakeAssistant) RandomQuote(context.Context) (string, error)   { return f.text, f.err }

func (f *fakeAssistant) OnThisDay(_ context.Context, day time.Time) (string, error) {
	f.day = day
	return f.text, f.err
}

func newTestServer(t *testing.T, a *fakeAssistant) *Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, process.InitTokenizer(""))
	s, err := NewServer(&ServerConfig{Assistant: a, Transport: "stdio", Logger: log})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, time.May, 4, 12, 0, 0, 0, time.UTC) }
	return s
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content is %T", res.Content[0])
	return tc.Text
}

func TestNewServer_RequiresAssistant(t *testing.T) {
	_, err := NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestRun_UnknownTransport(t *testing.T) {
	s := newTestServer(t, &fakeAssistant{})
	s.cfg.Transport = "carrier-pigeon"
	assert.Error(t, s.Run(context.Background()))
}

func TestHandleGetArticle(t *testing.T) {
	a := &fakeAssistant{article: &assistant.Article{
		Title: "Go (programming language)",
		URL:   "https://en.wikipedia.org/wiki/Go_(programming_language)",
		Text:  "Go is a language.",
	}}
	s := newTestServer(t, a)

	res, err := s.handleGetArticle(context.Background(), callTool("get_article", map[string]any{"title": " Go "}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, "Go (programming language)", body["title"])
	assert.Equal(t, "Go is a language.", body["text"])
	assert.Greater(t, body["token_count"], float64(0))
	assert.Equal(t, []string{"Go"}, a.requested)

	res, err = s.handleGetArticle(context.Background(), callTool("get_article", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleGetArticle_NotFoundAndFailure(t *testing.T) {
	res, err := newTestServer(t, &fakeAssistant{}).handleGetArticle(context.Background(), callTool("get_article", map[string]any{"title": "Nope"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, assistant.TextArticleNotFound, resultText(t, res))

	res, err = newTestServer(t, &fakeAssistant{err: utils.ErrNetwork}).handleGetArticle(context.Background(), callTool("get_article", map[string]any{"title": "Go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), utils.CategorizeError(utils.ErrNetwork))
}

func TestHandleGetMainImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	a := &fakeAssistant{image: &mainimage.Result{
		Title:     "Go",
		Outcome:   models.ImageOutcomeFound,
		SourceURL: "https://upload.wikimedia.org/go.png",
		Context:   models.ContextInfobox,
		Width:     300,
		Height:    200,
		Format:    "png",
		PNG:       png,
		Probed:    1,
	}}
	res, err := newTestServer(t, a).handleGetMainImage(context.Background(), callTool("get_main_image", map[string]any{"title": "Go"}))
	require.NoError(t, err)
	require.Len(t, res.Content, 2)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &meta))
	assert.Equal(t, "found", meta["outcome"])
	assert.Equal(t, "infobox", meta["context"])
	assert.Equal(t, float64(300), meta["width"])

	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), img.Data)
}

func TestHandleGetMainImage_NoImage(t *testing.T) {
	a := &fakeAssistant{image: &mainimage.Result{Title: "Go", Outcome: models.ImageOutcomeNoQualifying, Probed: 4}}
	res, err := newTestServer(t, a).handleGetMainImage(context.Background(), callTool("get_main_image", map[string]any{"title": "Go"}))
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &meta))
	assert.Equal(t, "no_qualifying_image", meta["outcome"])
	assert.Equal(t, float64(4), meta["probed"])
	assert.NotContains(t, meta, "source_url")
}

func TestHandleSearchArticle(t *testing.T) {
	a := &fakeAssistant{text: "Intro.\n== History ==\nThe language was announced in November 2009."}
	s := newTestServer(t, a)

	res, err := s.handleSearchArticle(context.Background(), callTool("search_article", map[string]any{
		"title": "Go", "query": "NOVEMBER", "snippet_length": 10,
	}))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, float64(1), body["matches"])
	assert.Contains(t, body["snippet"], "November")

	res, err = s.handleSearchArticle(context.Background(), callTool("search_article", map[string]any{"title": "Go", "query": "Rust"}))
	require.NoError(t, err)
	body = nil
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, float64(0), body["matches"])
	assert.NotContains(t, body, "snippet")

	res, err = s.handleSearchArticle(context.Background(), callTool("search_article", map[string]any{"title": "Go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSearchArticle_PageMissing(t *testing.T) {
	a := &fakeAssistant{err: fmt.Errorf("%w: Nope", utils.ErrPageNotFound)}
	res, err := newTestServer(t, a).handleSearchArticle(context.Background(), callTool("search_article", map[string]any{"title": "Nope", "query": "x"}))
	require.NoError(t, err)
	assert.Equal(t, assistant.TextPageNotFound, resultText(t, res))
}

func TestHandleOnThisDay(t *testing.T) {
	a := &fakeAssistant{text: "1904 – Panama Canal."}
	s := newTestServer(t, a)

	res, err := s.handleOnThisDay(context.Background(), callTool("on_this_day", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "1904 – Panama Canal.", resultText(t, res))
	assert.Equal(t, "May 4", assistant.DayTitle(a.day))

	_, err = s.handleOnThisDay(context.Background(), callTool("on_this_day", map[string]any{"date": "2021-02-28"}))
	require.NoError(t, err)
	assert.Equal(t, "February 28", assistant.DayTitle(a.day))

	res, err = s.handleOnThisDay(context.Background(), callTool("on_this_day", map[string]any{"date": "yesterday"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleRandomTools(t *testing.T) {
	s := newTestServer(t, &fakeAssistant{text: "*Random Quote from X*\n\nQ."})
	res, err := s.handleRandomQuote(context.Background(), callTool("random_quote", nil))
	require.NoError(t, err)
	assert.Equal(t, "*Random Quote from X*\n\nQ.", resultText(t, res))

	s = newTestServer(t, &fakeAssistant{err: errors.New("boom")})
	res, err = s.handleRandomArticle(context.Background(), callTool("random_article", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestParseDay(t *testing.T) {
	now := time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC)

	got, err := parseDay("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = parseDay("February 29", now)
	require.NoError(t, err)
	assert.Equal(t, "February 29", assistant.DayTitle(got))

	got, err = parseDay(" 1999-12-31 ", now)
	require.NoError(t, err)
	assert.Equal(t, "December 31", assistant.DayTitle(got))

	_, err = parseDay("31/12/1999", now)
	assert.Error(t, err)
}
