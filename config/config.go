package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is read once at process
// start and passed into each component at construction time.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Search    SearchConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// StorageConfig controls the image mirror bucket. An empty Bucket disables
// all image handling without failing requests.
type StorageConfig struct {
	Bucket string
	Region string // default: "ap-northeast-1"

	// Endpoint overrides the S3 endpoint (e.g. a local MinIO) for
	// development. Empty means the public AWS endpoint.
	Endpoint string
}

// Enabled reports whether image mirroring is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// SearchConfig controls the Brave Search API client.
type SearchConfig struct {
	// APIKey is the Brave subscription token.
	APIKey string

	// BaseURL is the API root; overridable for tests.
	// default: "https://api.search.brave.com/res/v1"
	BaseURL string

	Count   int    // web results per query; default: 10
	Lang    string // search language; default: "ja"
	Country string // search country; default: "jp"

	// Timeout is the budget for each search API call. default: 15s
	Timeout time.Duration
}

// FetchConfig controls page and image fetching.
type FetchConfig struct {
	// PageTimeout bounds the target-page GET. default: 15s
	PageTimeout time.Duration

	// ImageTimeout bounds each image-asset GET. Images are auxiliary, so
	// they get a tighter budget than the page itself. default: 10s
	ImageTimeout time.Duration

	// MaxBodyBytes caps how much of a response body is read. default: 10 MB
	MaxBodyBytes int64

	// MaxImages is the upper bound on mirrored images per request. default: 10
	MaxImages int

	// MaxMatches is the upper bound on keyword matches returned per
	// request; the total found is still reported. default: 20
	MaxMatches int

	// Proxy is an optional proxy URL applied to all outbound fetches.
	Proxy string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication. default: false
	Enabled bool

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity. default: 5
	RequestsPerSecond float64

	// Burst is the maximum burst size per identity. default: 10
	Burst int
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// The bucket, region and search credential keep their upstream names
// (IMAGE_BUCKET, AWS_REGION, BRAVE_API_KEY); everything else is prefixed.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("KENSAKU_HOST", "0.0.0.0"),
			Port: envIntOr("KENSAKU_PORT", 8080),
			Mode: envOr("KENSAKU_MODE", "release"),
		},
		Storage: StorageConfig{
			Bucket:   os.Getenv("IMAGE_BUCKET"),
			Region:   envOr("AWS_REGION", "ap-northeast-1"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		},
		Search: SearchConfig{
			APIKey:  os.Getenv("BRAVE_API_KEY"),
			BaseURL: envOr("KENSAKU_SEARCH_BASE_URL", "https://api.search.brave.com/res/v1"),
			Count:   envIntOr("KENSAKU_SEARCH_COUNT", 10),
			Lang:    envOr("KENSAKU_SEARCH_LANG", "ja"),
			Country: envOr("KENSAKU_SEARCH_COUNTRY", "jp"),
			Timeout: envDurationOr("KENSAKU_SEARCH_TIMEOUT", 15*time.Second),
		},
		Fetch: FetchConfig{
			PageTimeout:  envDurationOr("KENSAKU_PAGE_TIMEOUT", 15*time.Second),
			ImageTimeout: envDurationOr("KENSAKU_IMAGE_TIMEOUT", 10*time.Second),
			MaxBodyBytes: envInt64Or("KENSAKU_MAX_BODY_BYTES", 10*1024*1024),
			MaxImages:    envIntOr("KENSAKU_MAX_IMAGES", 10),
			MaxMatches:   envIntOr("KENSAKU_MAX_MATCHES", 20),
			Proxy:        os.Getenv("KENSAKU_PROXY"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("KENSAKU_AUTH_ENABLED", false),
			APIKeys: envSliceOr("KENSAKU_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("KENSAKU_RATE_RPS", 5.0),
			Burst:             envIntOr("KENSAKU_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("KENSAKU_LOG_LEVEL", "info"),
			Format: envOr("KENSAKU_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
