// Package config provides configuration management for the Heimdex editor.
// Configuration is loaded from environment variables, optionally seeded from
// a .env file, with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort                 = 8790
	DefaultLogLevel             = "info"
	DefaultDataDir              = ".heimdex-editor"
	DefaultFFprobePath          = "ffprobe"
	DefaultAssetDuration        = 5.0
	DefaultProbeTimeout         = 10 * time.Second
	DefaultMinioBucket          = "heimdex-editor"
	DefaultTickRate             = 60
	DefaultDriftTolerance       = 0.15
	DefaultSourceReadyTimeoutMs = 1500
	DefaultSeekTimeoutMs        = 500

	// Environment variable names
	EnvPort                 = "HEIMDEX_EDITOR_PORT"
	EnvLogLevel             = "HEIMDEX_EDITOR_LOG_LEVEL"
	EnvLogFile              = "HEIMDEX_EDITOR_LOG_FILE"
	EnvDataDir              = "HEIMDEX_EDITOR_DATA_DIR"
	EnvFFprobePath          = "HEIMDEX_EDITOR_FFPROBE_PATH"
	EnvDefaultAssetDuration = "HEIMDEX_EDITOR_DEFAULT_ASSET_DURATION"
	EnvProbeTimeout         = "HEIMDEX_EDITOR_PROBE_TIMEOUT"
	EnvRedisAddr            = "HEIMDEX_EDITOR_REDIS_ADDR"
	EnvMinioEndpoint        = "HEIMDEX_EDITOR_MINIO_ENDPOINT"
	EnvMinioAccessKey       = "HEIMDEX_EDITOR_MINIO_ACCESS_KEY"
	EnvMinioSecretKey       = "HEIMDEX_EDITOR_MINIO_SECRET_KEY"
	EnvMinioBucket          = "HEIMDEX_EDITOR_MINIO_BUCKET"
	EnvMinioUseSSL          = "HEIMDEX_EDITOR_MINIO_USE_SSL"
	EnvWatchDir             = "HEIMDEX_EDITOR_WATCH_DIR"
	EnvRenderURL            = "HEIMDEX_EDITOR_RENDER_URL"
	EnvRenderToken          = "HEIMDEX_EDITOR_RENDER_TOKEN"
	EnvHeadless             = "HEIMDEX_EDITOR_HEADLESS"
	EnvTickRate             = "HEIMDEX_EDITOR_TICK_RATE"
	EnvDriftTolerance       = "HEIMDEX_EDITOR_DRIFT_TOLERANCE"
	EnvSourceReadyTimeout   = "HEIMDEX_EDITOR_SOURCE_READY_TIMEOUT_MS"
	EnvSeekTimeout          = "HEIMDEX_EDITOR_SEEK_TIMEOUT_MS"

	// Database filename
	DBFilename = "editor.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFile() string
	DataDir() string
	DBPath() string
	ExportDir() string
	FFprobePath() string
	DefaultAssetDuration() float64
	ProbeTimeout() time.Duration
	RedisAddr() string
	MinioEndpoint() string
	MinioAccessKey() string
	MinioSecretKey() string
	MinioBucket() string
	MinioUseSSL() bool
	WatchDir() string
	RenderURL() string
	RenderToken() string
	Headless() bool
	TickRate() int
	DriftTolerance() float64
	SourceReadyTimeout() time.Duration
	SeekTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port                 int
	logLevel             string
	logFile              string
	dataDir              string
	ffprobePath          string
	defaultAssetDuration float64
	probeTimeout         time.Duration

	redisAddr string

	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioBucket    string
	minioUseSSL    bool

	watchDir    string
	renderURL   string
	renderToken string
	headless    bool

	tickRate           int
	driftTolerance     float64
	sourceReadyTimeout time.Duration
	seekTimeout        time.Duration
}

// Load reads an optional .env file in the working directory and then
// builds the configuration. Variables already set in the environment win.
func Load() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return New()
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                 DefaultPort,
		logLevel:             DefaultLogLevel,
		dataDir:              defaultDataDir(),
		ffprobePath:          DefaultFFprobePath,
		defaultAssetDuration: DefaultAssetDuration,
		probeTimeout:         DefaultProbeTimeout,
		minioBucket:          DefaultMinioBucket,
		tickRate:             DefaultTickRate,
		driftTolerance:       DefaultDriftTolerance,
		sourceReadyTimeout:   DefaultSourceReadyTimeoutMs * time.Millisecond,
		seekTimeout:          DefaultSeekTimeoutMs * time.Millisecond,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	cfg.logFile = os.Getenv(EnvLogFile)

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		cfg.ffprobePath = fp
	}

	if v := os.Getenv(EnvDefaultAssetDuration); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvDefaultAssetDuration)
		}
		cfg.defaultAssetDuration = d
	}

	if v := os.Getenv(EnvProbeTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive duration", EnvProbeTimeout)
		}
		cfg.probeTimeout = d
	}

	cfg.redisAddr = os.Getenv(EnvRedisAddr)

	cfg.minioEndpoint = os.Getenv(EnvMinioEndpoint)
	cfg.minioAccessKey = os.Getenv(EnvMinioAccessKey)
	cfg.minioSecretKey = os.Getenv(EnvMinioSecretKey)
	if b := os.Getenv(EnvMinioBucket); b != "" {
		cfg.minioBucket = b
	}
	cfg.minioUseSSL = envBool(EnvMinioUseSSL)

	cfg.watchDir = os.Getenv(EnvWatchDir)
	cfg.renderURL = strings.TrimRight(os.Getenv(EnvRenderURL), "/")
	cfg.renderToken = os.Getenv(EnvRenderToken)
	cfg.headless = envBool(EnvHeadless)

	if v := os.Getenv(EnvTickRate); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate < 1 || rate > 240 {
			return nil, fmt.Errorf("invalid %s: must be between 1 and 240", EnvTickRate)
		}
		cfg.tickRate = rate
	}

	if v := os.Getenv(EnvDriftTolerance); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvDriftTolerance)
		}
		cfg.driftTolerance = tol
	}

	var err error
	if cfg.sourceReadyTimeout, err = envMillis(EnvSourceReadyTimeout, cfg.sourceReadyTimeout); err != nil {
		return nil, err
	}
	if cfg.seekTimeout, err = envMillis(EnvSeekTimeout, cfg.seekTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFile returns the rotating log file path, or "" to log to stdout only
func (c *EnvConfig) LogFile() string {
	return c.logFile
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the directory EDL exports are written to
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// DefaultAssetDuration is assumed for media whose length cannot be probed
func (c *EnvConfig) DefaultAssetDuration() float64 {
	return c.defaultAssetDuration
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

// RedisAddr returns the probe cache address, or "" for an in-memory cache
func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

// MinioEndpoint returns the object store endpoint, or "" to serve media locally
func (c *EnvConfig) MinioEndpoint() string {
	return c.minioEndpoint
}

func (c *EnvConfig) MinioAccessKey() string {
	return c.minioAccessKey
}

func (c *EnvConfig) MinioSecretKey() string {
	return c.minioSecretKey
}

func (c *EnvConfig) MinioBucket() string {
	return c.minioBucket
}

func (c *EnvConfig) MinioUseSSL() bool {
	return c.minioUseSSL
}

// WatchDir returns a directory to auto-import media from, or ""
func (c *EnvConfig) WatchDir() string {
	return c.watchDir
}

// RenderURL returns the remote render service base URL, or ""
func (c *EnvConfig) RenderURL() string {
	return c.renderURL
}

func (c *EnvConfig) RenderToken() string {
	return c.renderToken
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// TickRate returns playback ticks per second
func (c *EnvConfig) TickRate() int {
	return c.tickRate
}

// DriftTolerance returns the allowed player drift in seconds
func (c *EnvConfig) DriftTolerance() float64 {
	return c.driftTolerance
}

func (c *EnvConfig) SourceReadyTimeout() time.Duration {
	return c.sourceReadyTimeout
}

func (c *EnvConfig) SeekTimeout() time.Duration {
	return c.seekTimeout
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envMillis(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number of milliseconds", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
