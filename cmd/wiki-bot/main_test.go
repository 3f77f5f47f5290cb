package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
state_dir: "./state"
image:
  min_width: 200
  fetch_timeout: 10s
storage:
  backend: badger
  session_ttl: 1h
`)

	cfg, err := loadConfig(cfgPath)

	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Image.MinWidth)
	assert.Equal(t, 10*time.Second, cfg.Image.FetchTimeout)
	assert.Equal(t, config.StorageBackendBadger, cfg.Storage.Backend)
	assert.Equal(t, time.Hour, cfg.Storage.SessionTTL)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := loadConfig("/nonexistent/path/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "{{invalid yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestPrepareConfig_MissingFileAllowed(t *testing.T) {
	var stderr bytes.Buffer
	cfg, err := prepareConfig("/nonexistent/config.yaml", "/nonexistent/.env", true, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", cfg.Wiki.APIURL)
	assert.Equal(t, config.StorageBackendMemory, cfg.Storage.Backend)

	_, err = prepareConfig("/nonexistent/config.yaml", "", false, &stderr)
	assert.Error(t, err)
}

func TestPrepareConfig_EnvOverridesToken(t *testing.T) {
	t.Setenv(config.EnvBotToken, "123:from-env")
	cfg, err := prepareConfig(writeConfig(t, "bot:\n  token: from-file\n"), "", false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "123:from-env", cfg.Bot.Token)
}

func TestDoValidate(t *testing.T) {
	t.Setenv(config.EnvBotToken, "")
	cfgPath := writeConfig(t, `
quiz:
  questions_file: questions.txt
  questions_per_session: 3
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "", &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "questions.txt, 3 per session")
	assert.Contains(t, stdout.String(), "Bot token:     missing")
	assert.Contains(t, stdout.String(), "Configuration valid")
}

func TestDoValidate_InvalidBackend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doValidate(writeConfig(t, "storage:\n  backend: cassandra\n"), "", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "cassandra")
}

func TestDoValidate_RedisNeedsURL(t *testing.T) {
	t.Setenv(config.EnvRedisURL, "")
	var stdout, stderr bytes.Buffer
	exitCode := doValidate(writeConfig(t, "storage:\n  backend: redis\n"), "", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "redis_url")
}

func TestDoRun_RequiresToken(t *testing.T) {
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)

	var stderr bytes.Buffer
	assert.Equal(t, 1, doRun(context.Background(), cfg, "error", &stderr))
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)
	for _, cmd := range []string{"run", "article", "image", "mcp-server", "validate", "version"} {
		assert.Contains(t, buf.String(), cmd)
	}
}

func TestNewServices_Wiring(t *testing.T) {
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)

	log := logrus.New()
	svc := newServices(cfg, log)
	assert.NotNil(t, svc.assistant)
	assert.NotNil(t, svc.images)
	assert.NotNil(t, svc.wiki)
	assert.NotNil(t, svc.quotes)
}

type stubArticles struct {
	art *assistant.Article
	err error
}

func (s stubArticles) Article(context.Context, string) (*assistant.Article, error) {
	return s.art, s.err
}

func TestDoArticle(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doArticle(context.Background(), stubArticles{art: &assistant.Article{
		Title: "Go", URL: "https://en.wikipedia.org/wiki/Go", Text: "Go is a language.",
	}}, "Go", &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Go\nhttps://en.wikipedia.org/wiki/Go\n\nGo is a language.\n", stdout.String())

	stdout.Reset()
	code = doArticle(context.Background(), stubArticles{err: fmt.Errorf("%w: Nope", utils.ErrPageNotFound)}, "Nope", &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), assistant.TextArticleNotFound)

	stderr.Reset()
	code = doArticle(context.Background(), stubArticles{err: utils.ErrNetwork}, "Go", &stdout, &stderr)
	assert.Equal(t, 1, code)
}

type stubImages [][]byte

func (s stubImages) FetchImages(context.Context, string) [][]byte { return s }

func TestDoImage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "go.png")
	var stdout bytes.Buffer

	code := doImage(context.Background(), stubImages{[]byte("\x89PNG")}, "Go", out, &stdout)
	assert.Equal(t, 0, code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
	assert.Contains(t, stdout.String(), utils.CalculateBytesSHA256(data))

	stdout.Reset()
	code = doImage(context.Background(), stubImages{}, "Go", out, &stdout)
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout.String(), assistant.TextNoImages)
}
