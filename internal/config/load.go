package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML file at path onto cfg. ${VAR} references in
// the file are expanded from the environment before parsing, so secrets can
// stay out of the file.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored; with no arguments ".env" in the working directory is
// tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// envVar binds one environment variable to a Config field. The first
// non-empty name in names wins.
type envVar struct {
	names []string
	set   func(cfg *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(name string, dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be a whole number (got %q)", name, v)
		}
		*dst(c) = n
		return nil
	}
}

func boolean(name string, dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be true or false (got %q)", name, v)
		}
		*dst(c) = b
		return nil
	}
}

func duration(name string, dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be a duration like 30s (got %q)", name, v)
		}
		*dst(c) = d
		return nil
	}
}

var envVars = []envVar{
	{[]string{"DEALSYNC_DATA_DIR", "LOCAL_DIR"}, str(func(c *Config) *string { return &c.DataDir })},
	{[]string{"DEALSYNC_WINDOW_MINUTES"}, integer("DEALSYNC_WINDOW_MINUTES", func(c *Config) *int { return &c.WindowMinutes })},
	{[]string{"DEALSYNC_STORAGE_BACKEND"}, func(c *Config, v string) error {
		c.Storage.Backend = StorageBackend(strings.ToLower(strings.TrimSpace(v)))
		return nil
	}},
	{[]string{"S3_ENDPOINT"}, str(func(c *Config) *string { return &c.Storage.Endpoint })},
	{[]string{"AWS_REGION", "S3_REGION"}, str(func(c *Config) *string { return &c.Storage.Region })},
	{[]string{"S3_BUCKET"}, str(func(c *Config) *string { return &c.Storage.Bucket })},
	{[]string{"S3_PREFIX"}, str(func(c *Config) *string { return &c.Storage.Prefix })},
	{[]string{"AWS_ACCESS_KEY_ID", "S3_ACCESS_KEY"}, str(func(c *Config) *string { return &c.Storage.AccessKey })},
	{[]string{"AWS_SECRET_ACCESS_KEY", "S3_SECRET_KEY"}, str(func(c *Config) *string { return &c.Storage.SecretKey })},
	{[]string{"S3_USE_SSL"}, boolean("S3_USE_SSL", func(c *Config) *bool { return &c.Storage.UseSSL })},
	{[]string{"DEALSYNC_UPLOAD_RETRIES"}, integer("DEALSYNC_UPLOAD_RETRIES", func(c *Config) *int { return &c.Upload.Retries })},
	{[]string{"DEALSYNC_UPLOAD_TIMEOUT"}, duration("DEALSYNC_UPLOAD_TIMEOUT", func(c *Config) *time.Duration { return &c.Upload.Timeout })},
	{[]string{"DEALSYNC_REDIS_ADDR"}, str(func(c *Config) *string { return &c.Lock.RedisAddr })},
	{[]string{"DEALSYNC_REDIS_PASSWORD"}, str(func(c *Config) *string { return &c.Lock.RedisPassword })},
	{[]string{"DEALSYNC_REDIS_DB"}, integer("DEALSYNC_REDIS_DB", func(c *Config) *int { return &c.Lock.RedisDB })},
	{[]string{"DEALSYNC_LOCK_TTL"}, duration("DEALSYNC_LOCK_TTL", func(c *Config) *time.Duration { return &c.Lock.TTL })},
	{[]string{"DEALSYNC_LOCK_STALE_AFTER"}, duration("DEALSYNC_LOCK_STALE_AFTER", func(c *Config) *time.Duration { return &c.Lock.StaleAfter })},
	{[]string{"DEALSYNC_LOG_LEVEL"}, str(func(c *Config) *string { return &c.Log.Level })},
	{[]string{"DEALSYNC_LOG_FORMAT"}, func(c *Config, v string) error {
		c.Log.Format = LogFormat(strings.ToLower(strings.TrimSpace(v)))
		return nil
	}},
	{[]string{"DEALSYNC_LOG_FILE"}, str(func(c *Config) *string { return &c.Log.File })},
	{[]string{"DEALSYNC_METRICS_FILE"}, str(func(c *Config) *string { return &c.MetricsFile })},
}

// ApplyEnv overlays environment variables onto cfg. getenv is usually
// os.Getenv; tests pass a map lookup. Unset and empty variables leave the
// field alone.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	for _, ev := range envVars {
		for _, name := range ev.names {
			v := getenv(name)
			if v == "" {
				continue
			}
			if err := ev.set(cfg, v); err != nil {
				return err
			}
			break
		}
	}
	return nil
}
