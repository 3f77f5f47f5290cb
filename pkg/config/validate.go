package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = "wiki-bot/1.0 (https://github.com/Sriram-PR/wiki-bot)"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './bot_state'")
		c.StateDir = "./bot_state"
	}

	// MaxRetries (text API only; the image search never retries)
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 2
	}
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 500 * time.Millisecond
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 5 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling politeness delay")
		c.DelayPerHost = 0
	}

	c.validateHTTPClientSettings()

	if err := c.Wiki.validate(&warnings); err != nil {
		return warnings, err
	}
	if err := c.Quote.validate(&warnings); err != nil {
		return warnings, err
	}
	c.Image.validate(&warnings)
	c.Quiz.validate(&warnings)
	c.History.validate()
	c.Bot.validate(&warnings)
	if err := c.Storage.validate(); err != nil {
		return warnings, err
	}
	c.Log.validate()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 4
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

func (w *WikiConfig) validate(warnings *[]string) error {
	if w.APIURL == "" {
		w.APIURL = "https://en.wikipedia.org/w/api.php"
	}
	u, err := url.Parse(w.APIURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: wiki.api_url '%s' is not an absolute URL", utils.ErrConfigValidation, w.APIURL)
	}
	if w.OriginHost == "" {
		w.OriginHost = u.Host
		if w.OriginHost != "en.wikipedia.org" {
			*warnings = append(*warnings, fmt.Sprintf("wiki.origin_host empty, using API host '%s'", u.Host))
		}
	}
	return nil
}

func (q *QuoteConfig) validate(warnings *[]string) error {
	if q.APIURL == "" {
		q.APIURL = "https://en.wikiquote.org/w/api.php"
	}
	if u, err := url.Parse(q.APIURL); err != nil || u.Host == "" {
		return fmt.Errorf("%w: quote.api_url '%s' is not an absolute URL", utils.ErrConfigValidation, q.APIURL)
	}
	if q.MinLength < 0 {
		*warnings = append(*warnings, "quote.min_length cannot be negative, setting to 0")
		q.MinLength = 0
	}
	if q.MinLength == 0 {
		q.MinLength = 12
	}
	return nil
}

func (i *ImageConfig) validate(warnings *[]string) {
	if i.MinWidth <= 0 {
		i.MinWidth = 120
	}
	if i.MinHeight <= 0 {
		i.MinHeight = 120
	}
	if i.FetchTimeout <= 0 {
		i.FetchTimeout = 30 * time.Second
	}
	if i.UserAgent == "" {
		i.UserAgent = "Mozilla/5.0"
	}
	if i.MaxCandidates < 0 {
		*warnings = append(*warnings, "image.max_candidates cannot be negative, setting to 0 (unbounded)")
		i.MaxCandidates = 0
	}
	if i.MaxImageBytes < 0 {
		*warnings = append(*warnings, "image.max_image_bytes cannot be negative, using default")
		i.MaxImageBytes = 0
	}
	if i.MaxImageBytes == 0 {
		i.MaxImageBytes = 20 * 1024 * 1024
	}
	if i.MaxPixels < 0 {
		*warnings = append(*warnings, "image.max_pixels cannot be negative, using default")
		i.MaxPixels = 0
	}
	if i.MaxPixels == 0 {
		i.MaxPixels = DefaultMaxPixels
	}
}

func (q *QuizConfig) validate(warnings *[]string) {
	if q.QuestionsFile == "" {
		*warnings = append(*warnings, "quiz.questions_file is empty, defaulting to 'qviz.txt'")
		q.QuestionsFile = "qviz.txt"
	}
	if q.QuestionsPerSession <= 0 {
		q.QuestionsPerSession = 5
	}
}

func (h *HistoryConfig) validate() {
	if h.Section == "" {
		h.Section = "Events"
	}
	if h.Subsection == "" {
		h.Subsection = "1901–present"
	}
	if h.BeforeYear <= 0 {
		h.BeforeYear = 1950
	}
}

func (b *BotConfig) validate(warnings *[]string) {
	if b.PollTimeout <= 0 {
		b.PollTimeout = 60 * time.Second
	}
	if b.MaxConcurrentUpdates <= 0 {
		b.MaxConcurrentUpdates = 8
	}
	if b.MaxPendingPerChat <= 0 {
		b.MaxPendingPerChat = 20
	}
	// Telegram rejects text messages longer than 4096 characters
	if b.MaxMessageLength <= 0 || b.MaxMessageLength > 4096 {
		if b.MaxMessageLength > 4096 {
			*warnings = append(*warnings, "bot.max_message_length above transport limit, capping at 4096")
		}
		b.MaxMessageLength = 4096
	}
	if b.SendRatePerSecond <= 0 {
		b.SendRatePerSecond = 25
	}
	if b.SendBurst <= 0 {
		b.SendBurst = 5
	}
	if b.HandlerTimeout <= 0 {
		b.HandlerTimeout = 2 * time.Minute
	}
}

func (s *StorageConfig) validate() error {
	if s.SessionTTL <= 0 {
		s.SessionTTL = 24 * time.Hour
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "wikibot:"
	}
	switch s.Backend {
	case "":
		s.Backend = StorageBackendMemory
	case StorageBackendMemory, StorageBackendBadger:
	case StorageBackendRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("%w: storage.backend 'redis' needs storage.redis_url", utils.ErrConfigValidation)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend '%s' (supported: memory, badger, redis)", utils.ErrConfigValidation, s.Backend)
	}
	return nil
}

func (l *LogConfig) validate() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.File != "" {
		if l.MaxSizeMB <= 0 {
			l.MaxSizeMB = 50
		}
		if l.MaxBackups <= 0 {
			l.MaxBackups = 3
		}
		if l.MaxAgeDays <= 0 {
			l.MaxAgeDays = 28
		}
	}
}

// RequireToken reports whether the chat transport can be started.
func (c *AppConfig) RequireToken() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("%w: bot token missing (set bot.token or TELEGRAM_BOT_TOKEN)", utils.ErrConfigValidation)
	}
	return nil
}
