package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/gmapreviews/models"
)

// Mode selects how the review list is scrolled.
type Mode string

const (
	// ModeAuto scrolls the list automatically and saves every new batch.
	ModeAuto Mode = "true"
	// ModeManual leaves scrolling to the operator and scrapes on request.
	ModeManual Mode = "false"
	// ModeHybrid auto-scrolls to load everything, then asks before saving.
	ModeHybrid Mode = "hybrid"
)

// ParseMode normalises s into a Mode. ok is false for unknown values.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeManual, ModeHybrid:
		return m, true
	}
	return ModeAuto, false
}

// Interactive reports whether the mode needs an operator at the terminal.
func (m Mode) Interactive() bool { return m == ModeManual || m == ModeHybrid }

// Description is the one-line summary shown in the start menu.
func (m Mode) Description() string {
	switch m {
	case ModeManual:
		return "Manual scroll: scroll the browser yourself, scrape on demand"
	case ModeHybrid:
		return "Hybrid: auto-scroll to load all reviews, then confirm before saving"
	default:
		return "Auto scroll: scroll and save reviews automatically"
	}
}

// Config holds all application configuration.
type Config struct {
	Session   SessionConfig
	Browser   BrowserConfig
	Timeouts  TimeoutConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Webhook   WebhookConfig

	// Warnings collects problems with the environment that were recovered
	// from by falling back to a default. Logged once logging is set up.
	Warnings []string
}

// SessionConfig describes one scrape session.
type SessionConfig struct {
	// PlaceURL is the listing page to scrape. Required for live sessions.
	PlaceURL string

	// MaxReviews caps the number of collected reviews.
	MaxReviews int // default: 1000

	// OutputDir is the directory the CSV is written into.
	OutputDir string // default: "data"

	// OutputFilename always ends in ".csv".
	OutputFilename string // default: "reviews.csv"

	Mode Mode // default: ModeAuto

	// DedupIncludeText makes review text part of the identity key.
	DedupIncludeText bool // default: false

	// SnapshotPath, when set, receives the final rendered HTML.
	SnapshotPath string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// Proxy is an optional proxy URL for all browser traffic.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types to block.
	// Images stay allowed: avatar URLs are read from the img elements.
	BlockedResourceTypes []string // default: ["Font", "Media"]
}

// TimeoutConfig bounds every blocking browser interaction.
type TimeoutConfig struct {
	PageLoad      time.Duration // default: 60s
	ElementWait   time.Duration // default: 30s
	Probe         time.Duration // default: 5s, per panel-opening candidate
	ContainerWait time.Duration // default: 10s, per review-container candidate

	RenderSettle       time.Duration // default: 3s, after the page loads
	ScrollSettle       time.Duration // default: 2s, after each auto scroll
	HybridScrollSettle time.Duration // default: 3s, after each hybrid scroll
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the completed-session response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 100
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// WebhookConfig controls session-completed notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Session = SessionConfig{
		PlaceURL:         strings.TrimSpace(os.Getenv("GMAP_PLACE_URL")),
		MaxReviews:       cfg.positiveIntOr("MAX_REVIEWS", 1000),
		OutputDir:        envOr("OUTPUT_DIR", "data"),
		OutputFilename:   models.EnsureCSVSuffix(envOr("OUTPUT_FILENAME", "reviews.csv")),
		Mode:             cfg.modeOr("AUTO_SCROLL", ModeAuto),
		DedupIncludeText: envBoolOr("DEDUP_INCLUDE_TEXT", false),
		SnapshotPath:     os.Getenv("SNAPSHOT_PATH"),
	}
	cfg.Browser = BrowserConfig{
		Headless:             ParseHeadless(os.Getenv("HEADLESS")),
		Proxy:                os.Getenv("BROWSER_PROXY"),
		NoSandbox:            envBoolOr("NO_SANDBOX", false),
		BrowserBin:           os.Getenv("BROWSER_BIN"),
		BlockedResourceTypes: envSliceOr("BLOCKED_RESOURCES", []string{"Font", "Media"}),
	}
	cfg.Timeouts = TimeoutConfig{
		PageLoad:           envDurationOr("PAGE_LOAD_TIMEOUT", 60*time.Second),
		ElementWait:        envDurationOr("ELEMENT_WAIT_TIMEOUT", 30*time.Second),
		Probe:              envDurationOr("PROBE_TIMEOUT", 5*time.Second),
		ContainerWait:      envDurationOr("CONTAINER_WAIT_TIMEOUT", 10*time.Second),
		RenderSettle:       envDurationOr("RENDER_SETTLE", 3*time.Second),
		ScrollSettle:       envDurationOr("SCROLL_SETTLE", 2*time.Second),
		HybridScrollSettle: envDurationOr("HYBRID_SCROLL_SETTLE", 3*time.Second),
	}
	cfg.Server = ServerConfig{
		Host: envOr("HOST", "0.0.0.0"),
		Port: envIntOr("PORT", 8080),
		Mode: envOr("GIN_MODE", "release"),
	}
	cfg.Auth = AuthConfig{
		Enabled: envBoolOr("AUTH_ENABLED", true),
		APIKeys: envSliceOr("API_KEYS", nil),
	}
	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: envFloatOr("RATE_RPS", 1.0),
		Burst:             envIntOr("RATE_BURST", 3),
	}
	cfg.Cache = CacheConfig{
		MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 100),
	}
	cfg.Log = LogConfig{
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "text"),
	}
	cfg.Webhook = WebhookConfig{
		URL:    os.Getenv("WEBHOOK_URL"),
		Secret: os.Getenv("WEBHOOK_SECRET"),
	}
	return cfg
}

// Validate reports configuration that makes a live session impossible.
func (c *Config) Validate() error {
	if c.Session.PlaceURL == "" {
		return fmt.Errorf("GMAP_PLACE_URL is not set: put it in your .env file or pass --url")
	}
	return nil
}

// ApplyMode overrides the session mode, recording a warning and falling
// back to ModeAuto when s is not a known mode.
func (c *Config) ApplyMode(s string) {
	m, ok := ParseMode(s)
	if !ok {
		c.warnf("invalid auto_scroll value %q, using %q", s, ModeAuto)
	}
	c.Session.Mode = m
}

// ParseHeadless treats "false", "0" and "no" (any case) as disabled and
// everything else, including the empty string, as enabled.
func ParseHeadless(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no":
		return false
	}
	return true
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) modeOr(key string, fallback Mode) Mode {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	m, ok := ParseMode(v)
	if !ok {
		c.warnf("invalid %s value %q, using %q", key, v, fallback)
		return fallback
	}
	return m
}

func (c *Config) positiveIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		c.warnf("invalid %s value %q, using %d", key, v, fallback)
		return fallback
	}
	return i
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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
