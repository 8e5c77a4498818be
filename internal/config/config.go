// Package config holds runtime configuration: defaults, YAML file and
// environment loading, CLI flag overrides, and validation.
//
// Precedence, lowest to highest: [DefaultConfig], the YAML file given by
// --config, environment variables (after loading .env), command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// StorageBackend selects the object-store client used for uploads.
type StorageBackend string

const (
	BackendMinio StorageBackend = "minio" // minio-go against any S3-compatible endpoint (default).
	BackendS3    StorageBackend = "s3"    // AWS SDK with the default credential chain.
)

// LogFormat selects the console log encoding.
type LogFormat string

const (
	LogConsole LogFormat = "console" // Human-readable lines (default).
	LogJSON    LogFormat = "json"    // One JSON object per line.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// StorageConfig describes the remote bucket uploads go to.
type StorageConfig struct {
	Backend   StorageBackend `yaml:"backend"`
	Endpoint  string         `yaml:"endpoint"` // host[:port]; required for minio, optional for s3.
	Region    string         `yaml:"region"`
	Bucket    string         `yaml:"bucket"`
	Prefix    string         `yaml:"prefix"` // Remote key prefix; "" uploads to the bucket root.
	AccessKey string         `yaml:"access_key"`
	SecretKey string         `yaml:"secret_key"`
	UseSSL    bool           `yaml:"use_ssl"`
}

// UploadConfig tunes the per-file upload loop.
type UploadConfig struct {
	Retries int           `yaml:"retries"` // Extra attempts for transient failures.
	Backoff time.Duration `yaml:"backoff"` // Delay before attempt n is n*Backoff.
	Timeout time.Duration `yaml:"timeout"` // Per-attempt deadline.
}

// LockConfig selects how concurrent runs against one directory are excluded.
type LockConfig struct {
	RedisAddr     string        `yaml:"redis_addr"` // Empty uses a lock file in the data directory.
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`         // Redis lock expiry.
	StaleAfter    time.Duration `yaml:"stale_after"` // Lock files older than this are reclaimed.
}

// RefreshInterval is how often a held lock is renewed: a third of TTL for
// Redis, a third of StaleAfter for the lock file. Zero disables renewal.
func (c LockConfig) RefreshInterval() time.Duration {
	if c.RedisAddr != "" {
		return c.TTL / 3
	}
	return c.StaleAfter / 3
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string    `yaml:"level"`
	Format LogFormat `yaml:"format"`
	File   string    `yaml:"file"` // Optional append-only JSON log file.
	Color  ColorMode `yaml:"color"`
}

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then layered by [LoadFile], [ApplyEnv] and [Flags.Apply] before being
// passed (by pointer) to packages that need it.
type Config struct {
	DataDir       string `yaml:"data_dir"`       // Default: "data/".
	WindowMinutes int    `yaml:"window_minutes"` // Default: 15.
	DryRun        bool   `yaml:"dry_run"`

	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Lock    LockConfig    `yaml:"lock"`
	Log     LogConfig     `yaml:"log"`

	MetricsFile string `yaml:"metrics_file"` // Prometheus textfile output; empty disables.
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		DataDir:       "data/",
		WindowMinutes: 15,
		Storage: StorageConfig{
			Backend: BackendMinio,
			Region:  "us-east-1",
			UseSSL:  true,
		},
		Upload: UploadConfig{
			Retries: 2,
			Backoff: 2 * time.Second,
			Timeout: 60 * time.Second,
		},
		Lock: LockConfig{
			TTL:        10 * time.Minute,
			StaleAfter: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogConsole,
			Color:  ColorAuto,
		},
	}
}

// Window returns the freshness window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks values every command needs: the data directory, the
// window, and the enum fields. Storage settings are checked separately by
// [Config.ValidateStorage] because only uploads need them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data directory must not be empty")
	}
	if c.WindowMinutes <= 0 {
		return fmt.Errorf("window must be a positive number of minutes (got %d)", c.WindowMinutes)
	}

	switch c.Storage.Backend {
	case BackendMinio, BackendS3:
		// valid
	default:
		return fmt.Errorf("invalid storage backend %q (use 'minio' or 's3')", c.Storage.Backend)
	}

	switch c.Log.Format {
	case LogConsole, LogJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q (use 'console' or 'json')", c.Log.Format)
	}

	switch c.Log.Color {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.Log.Color)
	}

	if c.Upload.Retries < 0 {
		return fmt.Errorf("upload retries must not be negative (got %d)", c.Upload.Retries)
	}
	if c.Upload.Timeout <= 0 {
		return errors.New("upload timeout must be positive")
	}
	return nil
}

// ValidateStorage checks the settings needed to construct an upload client.
func (c *Config) ValidateStorage() error {
	if c.Storage.Bucket == "" {
		return errors.New("storage bucket is required (set S3_BUCKET or storage.bucket)")
	}
	if c.Storage.Backend == BackendMinio {
		if c.Storage.Endpoint == "" {
			return errors.New("storage endpoint is required for the minio backend (set S3_ENDPOINT)")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return errors.New("access and secret keys are required for the minio backend")
		}
	}
	return nil
}
