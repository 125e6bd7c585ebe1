package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	HTTPPort    int           `envconfig:"HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	BaseURL          string        `envconfig:"BASE_URL" default:"https://downloads.khinsider.com"`
	MediaHosts       []string      `envconfig:"MEDIA_HOSTS" default:"vgmsite.com,vgmtreasurechest.com"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	StreamTimeout    time.Duration `envconfig:"STREAM_TIMEOUT" default:"30s"`
	MaxFetchAttempts int           `envconfig:"MAX_FETCH_ATTEMPTS" default:"3"`
	BackoffBase      time.Duration `envconfig:"BACKOFF_BASE" default:"1s"`
	RequestsPerSec   float64       `envconfig:"REQUESTS_PER_SEC" default:"4"`
	RequestBurst     int           `envconfig:"REQUEST_BURST" default:"4"`

	DownloadDir            string        `envconfig:"DOWNLOAD_DIR"`
	DownloadTimeout        time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	MaxConcurrentDownloads int           `envconfig:"MAX_CONCURRENT_DOWNLOADS" default:"2"`
	TrackDelayMin          time.Duration `envconfig:"TRACK_DELAY_MIN" default:"1s"`
	TrackDelayMax          time.Duration `envconfig:"TRACK_DELAY_MAX" default:"2200ms"`
	MinTrackBytes          int64         `envconfig:"MIN_TRACK_BYTES" default:"1000"`
	MaxFileSize            int64         `envconfig:"MAX_FILE_SIZE" default:"1073741824"`

	StateFile   string        `envconfig:"STATE_FILE" default:"./data/sessions.json"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxSessions int           `envconfig:"MAX_SESSIONS" default:"500"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", c.BaseURL)
	}

	if c.MaxFetchAttempts <= 0 {
		return fmt.Errorf("max fetch attempts must be positive: %d", c.MaxFetchAttempts)
	}

	if c.RequestsPerSec <= 0 || c.RequestBurst <= 0 {
		return fmt.Errorf("request rate must be positive: %v/s burst %d", c.RequestsPerSec, c.RequestBurst)
	}

	if c.MaxConcurrentDownloads <= 0 {
		return fmt.Errorf("max concurrent downloads must be positive: %d", c.MaxConcurrentDownloads)
	}

	if c.TrackDelayMin < 0 || c.TrackDelayMax < c.TrackDelayMin {
		return fmt.Errorf("invalid track delay range: %s..%s", c.TrackDelayMin, c.TrackDelayMax)
	}

	if c.MinTrackBytes < 0 {
		return fmt.Errorf("min track bytes cannot be negative: %d", c.MinTrackBytes)
	}

	if c.MaxFileSize <= c.MinTrackBytes {
		return fmt.Errorf("max file size must exceed min track bytes: %d", c.MaxFileSize)
	}

	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive: %d", c.MaxSessions)
	}

	return nil
}

// SiteHost returns the host name of BaseURL.
func (c *Config) SiteHost() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
