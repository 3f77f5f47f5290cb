package config

import "time"

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent   string           `yaml:"default_user_agent"`
	StateDir           string           `yaml:"state_dir"`
	MaxRetries         int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration    `yaml:"max_retry_delay,omitempty"`
	DelayPerHost       time.Duration    `yaml:"delay_per_host,omitempty"` // Politeness delay between API calls to one host (0 = none)
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Wiki               WikiConfig       `yaml:"wiki"`
	Quote              QuoteConfig      `yaml:"quote"`
	Image              ImageConfig      `yaml:"image"`
	Quiz               QuizConfig       `yaml:"quiz"`
	History            HistoryConfig    `yaml:"history"`
	Bot                BotConfig        `yaml:"bot"`
	Storage            StorageConfig    `yaml:"storage"`
	Log                LogConfig        `yaml:"log"`
	Metrics            MetricsConfig    `yaml:"metrics"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// WikiConfig points the text client at a MediaWiki installation
type WikiConfig struct {
	APIURL     string `yaml:"api_url"`
	OriginHost string `yaml:"origin_host"` // Host used to resolve root-relative image references
}

// QuoteConfig points the quotation client at a Wikiquote installation
type QuoteConfig struct {
	APIURL    string `yaml:"api_url"`
	MinLength int    `yaml:"min_length,omitempty"` // Quotes shorter than this (in runes) are dropped
}

// ImageConfig controls main image selection
type ImageConfig struct {
	MinWidth      int           `yaml:"min_width,omitempty"`
	MinHeight     int           `yaml:"min_height,omitempty"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout,omitempty"`
	UserAgent     string        `yaml:"user_agent,omitempty"`      // Browser-like UA sent with image downloads
	MaxCandidates int           `yaml:"max_candidates,omitempty"`  // Body candidates probed per article (0 = unbounded)
	MaxImageBytes int64         `yaml:"max_image_bytes,omitempty"` // Payloads larger than this are skipped
	MaxPixels     int64         `yaml:"max_pixels,omitempty"`      // Declared width*height above this is rejected before decoding
}

// QuizConfig controls the quiz feature
type QuizConfig struct {
	QuestionsFile       string `yaml:"questions_file"`
	QuestionsPerSession int    `yaml:"questions_per_session,omitempty"`
}

// HistoryConfig controls the "on this day" retrospective
type HistoryConfig struct {
	Section    string `yaml:"section,omitempty"`
	Subsection string `yaml:"subsection,omitempty"`
	BeforeYear int    `yaml:"before_year,omitempty"`
}

// BotConfig holds chat transport settings
type BotConfig struct {
	Token                string        `yaml:"token"` // Usually supplied via TELEGRAM_BOT_TOKEN
	PollTimeout          time.Duration `yaml:"poll_timeout,omitempty"`
	MaxConcurrentUpdates int           `yaml:"max_concurrent_updates,omitempty"`
	MaxPendingPerChat    int           `yaml:"max_pending_per_chat,omitempty"` // Per-chat backlog before updates are dropped
	MaxMessageLength     int           `yaml:"max_message_length,omitempty"`
	SendRatePerSecond    float64       `yaml:"send_rate_per_second,omitempty"`
	SendBurst            int           `yaml:"send_burst,omitempty"`
	HandlerTimeout       time.Duration `yaml:"handler_timeout,omitempty"`
	Debug                bool          `yaml:"debug,omitempty"`
}

// StorageConfig selects the quiz session backend
type StorageConfig struct {
	Backend    string        `yaml:"backend,omitempty"` // memory | badger | redis
	RedisURL   string        `yaml:"redis_url,omitempty"`
	Resume     bool          `yaml:"resume,omitempty"`      // Keep badger sessions from a previous run
	KeyPrefix  string        `yaml:"key_prefix,omitempty"`  // Namespace for redis keys
	SessionTTL time.Duration `yaml:"session_ttl,omitempty"` // Abandoned quizzes expire after this
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"` // Empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9090"; empty disables the endpoint
}

const (
	StorageBackendMemory = "memory"
	StorageBackendBadger = "badger"
	StorageBackendRedis  = "redis"
)

// DefaultMaxPixels bounds the decoded raster at roughly 200 MB of RGBA
const DefaultMaxPixels = 50_000_000

// GetEffectiveImageUserAgent returns the UA for image downloads, falling back to the default UA
func GetEffectiveImageUserAgent(appCfg AppConfig) string {
	if appCfg.Image.UserAgent != "" {
		return appCfg.Image.UserAgent
	}
	return appCfg.DefaultUserAgent
}

// GetEffectiveQuestionsPerSession caps the session size at the number of available questions
func GetEffectiveQuestionsPerSession(quizCfg QuizConfig, available int) int {
	n := quizCfg.QuestionsPerSession
	if n <= 0 {
		n = 5
	}
	if n > available {
		return available
	}
	return n
}
