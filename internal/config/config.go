package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// NotifyPolicy decides whether repeated "called" readings re-notify.
type NotifyPolicy string

const (
	// NotifyRepeat notifies on every tick that reports the queue as called.
	NotifyRepeat NotifyPolicy = "repeat"
	// NotifyTransition notifies only when a tick flips the queue from waiting to called.
	NotifyTransition NotifyPolicy = "transition"
)

func (p NotifyPolicy) IsValid() bool {
	switch p {
	case NotifyRepeat, NotifyTransition:
		return true
	}
	return false
}

// Config holds all runtime configuration.
// Values come from built-in defaults, then an optional TOML file named by
// CONFIG_FILE, then environment variables.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Status source
	StatusSourceBaseURL  string
	StatusRequestTimeout time.Duration

	// Monitoring
	PollInterval time.Duration
	// PollRateLimit caps outbound status requests per second across all sessions.
	// Zero disables the limiter.
	PollRateLimit int
	NotifyPolicy  NotifyPolicy
	// SweepCron stops every session on a schedule. Empty disables the sweep.
	SweepCron string

	// Notifications
	StatusPagePath    string
	IconDir           string
	NotificationIcon  string
	NotificationBadge string
	NavigationBuffer  int

	// AllowedOrigins lists browser origins allowed to call the API and open
	// the websocket. "*" allows any origin; empty allows same-origin only.
	AllowedOrigins []string
}

// fileConfig mirrors Config for the TOML file. Durations are strings ("15s").
type fileConfig struct {
	HTTPPort             string   `toml:"http_port"`
	ReadTimeout          string   `toml:"read_timeout"`
	WriteTimeout         string   `toml:"write_timeout"`
	ShutdownTimeout      string   `toml:"shutdown_timeout"`
	StatusSourceBaseURL  string   `toml:"status_source_base_url"`
	StatusRequestTimeout string   `toml:"status_request_timeout"`
	PollInterval         string   `toml:"poll_interval"`
	PollRateLimit        *int     `toml:"poll_rate_limit"`
	NotifyPolicy         string   `toml:"notify_policy"`
	SweepCron            *string  `toml:"sweep_cron"`
	StatusPagePath       string   `toml:"status_page_path"`
	IconDir              string   `toml:"icon_dir"`
	NotificationIcon     string   `toml:"notification_icon"`
	NotificationBadge    string   `toml:"notification_badge"`
	NavigationBuffer     *int     `toml:"navigation_buffer"`
	AllowedOrigins       []string `toml:"allowed_origins"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		HTTPPort:        "8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 30 * time.Second,

		StatusSourceBaseURL:  "http://localhost:5000",
		StatusRequestTimeout: 10 * time.Second,

		PollInterval:  15 * time.Second,
		PollRateLimit: 50,
		NotifyPolicy:  NotifyRepeat,
		SweepCron:     "0 0 * * *",

		StatusPagePath:    "/queue-status.html",
		NotificationIcon:  "queue-alert",
		NotificationBadge: "queue-badge",
		NavigationBuffer:  64,
	}
}

func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the monitor cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.StatusSourceBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STATUS_SOURCE_BASE_URL %q is not an absolute URL", c.StatusSourceBaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.PollRateLimit < 0 {
		return fmt.Errorf("POLL_RATE_LIMIT must not be negative, got %d", c.PollRateLimit)
	}
	if !c.NotifyPolicy.IsValid() {
		return fmt.Errorf("NOTIFY_POLICY must be %q or %q, got %q", NotifyRepeat, NotifyTransition, c.NotifyPolicy)
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("ALLOWED_ORIGINS entry %q must be \"*\" or scheme://host", o)
		}
	}
	if c.NavigationBuffer <= 0 {
		c.NavigationBuffer = Defaults().NavigationBuffer
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.HTTPPort, raw.HTTPPort)
	setString(&c.StatusSourceBaseURL, raw.StatusSourceBaseURL)
	setString(&c.NotifyPolicy, NotifyPolicy(strings.TrimSpace(raw.NotifyPolicy)))
	setString(&c.StatusPagePath, raw.StatusPagePath)
	setString(&c.IconDir, raw.IconDir)
	setString(&c.NotificationIcon, raw.NotificationIcon)
	setString(&c.NotificationBadge, raw.NotificationBadge)
	if raw.SweepCron != nil {
		c.SweepCron = strings.TrimSpace(*raw.SweepCron)
	}
	if raw.PollRateLimit != nil {
		c.PollRateLimit = *raw.PollRateLimit
	}
	if raw.NavigationBuffer != nil {
		c.NavigationBuffer = *raw.NavigationBuffer
	}
	if raw.AllowedOrigins != nil {
		c.AllowedOrigins = splitOrigins(raw.AllowedOrigins)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"read_timeout", raw.ReadTimeout, &c.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &c.WriteTimeout},
		{"shutdown_timeout", raw.ShutdownTimeout, &c.ShutdownTimeout},
		{"status_request_timeout", raw.StatusRequestTimeout, &c.StatusRequestTimeout},
		{"poll_interval", raw.PollInterval, &c.PollInterval},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.ReadTimeout = getDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.StatusSourceBaseURL = getEnv("STATUS_SOURCE_BASE_URL", c.StatusSourceBaseURL)
	c.StatusRequestTimeout = getDuration("STATUS_REQUEST_TIMEOUT", c.StatusRequestTimeout)

	c.PollInterval = getDuration("POLL_INTERVAL", c.PollInterval)
	c.PollRateLimit = getInt("POLL_RATE_LIMIT", c.PollRateLimit)
	c.NotifyPolicy = NotifyPolicy(getEnv("NOTIFY_POLICY", string(c.NotifyPolicy)))
	if v, ok := os.LookupEnv("SWEEP_CRON"); ok {
		c.SweepCron = strings.TrimSpace(v)
	}

	c.StatusPagePath = getEnv("STATUS_PAGE_PATH", c.StatusPagePath)
	c.IconDir = getEnv("ICON_DIR", c.IconDir)
	c.NotificationIcon = getEnv("NOTIFICATION_ICON", c.NotificationIcon)
	c.NotificationBadge = getEnv("NOTIFICATION_BADGE", c.NotificationBadge)
	c.NavigationBuffer = getInt("NAVIGATION_BUFFER", c.NavigationBuffer)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitOrigins(strings.Split(v, ","))
	}
}

// splitOrigins trims entries and drops empty ones.
func splitOrigins(in []string) []string {
	var out []string
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func setString[T ~string](dst *T, v T) {
	if strings.TrimSpace(string(v)) != "" {
		*dst = T(strings.TrimSpace(string(v)))
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
