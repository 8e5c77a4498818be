package config

// This file implements CLI flag binding. Flags are captured into a Flags
// value and applied after parsing, and only the flags the user actually set
// are copied into Config, so file and environment values hold unless a
// flag overrides them.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags holds raw flag values until [Flags.Apply] copies the changed ones
// into a Config.
type Flags struct {
	fs *pflag.FlagSet

	ConfigFile  string
	EnvFile     string
	DataDir     string
	Window      int
	DryRun      bool
	Backend     string
	Endpoint    string
	Bucket      string
	Prefix      string
	RedisAddr   string
	LogLevel    string
	LogFormat   string
	LogFile     string
	MetricsFile string
	forceColor  bool
	noColor     bool
	verbose     bool
}

// BindFlags registers all global flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := DefaultConfig()

	fs.StringVar(&f.ConfigFile, "config", "", "YAML config file")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	fs.StringVarP(&f.DataDir, "dir", "d", d.DataDir, "directory watched for new exports")
	fs.IntVarP(&f.Window, "window", "w", d.WindowMinutes, "freshness window in minutes")
	fs.BoolVarP(&f.DryRun, "dry-run", "n", false, "report outcomes without renaming or uploading")

	fs.StringVar(&f.Backend, "backend", string(d.Storage.Backend), "storage backend: minio | s3")
	fs.StringVar(&f.Endpoint, "endpoint", "", "object store endpoint (host:port)")
	fs.StringVar(&f.Bucket, "bucket", "", "destination bucket")
	fs.StringVar(&f.Prefix, "prefix", "", "remote key prefix")

	fs.StringVar(&f.RedisAddr, "redis", "", "redis address for the run lock (default: lock file)")

	fs.StringVar(&f.LogLevel, "log-level", d.Log.Level, "log level: debug | info | warn | error")
	fs.StringVar(&f.LogFormat, "log-format", string(d.Log.Format), "console log format: console | json")
	fs.StringVarP(&f.LogFile, "log", "l", "", "append JSON logs to file")
	fs.BoolVar(&f.forceColor, "color", false, "force colored logs")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored logs")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "same as --log-level debug")

	fs.StringVar(&f.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each run")
	return f
}

// Apply copies every flag the user set into cfg.
func (f *Flags) Apply(cfg *Config) error {
	changed := f.fs.Changed

	if changed("dir") {
		cfg.DataDir = NormalizeDirArg(f.DataDir)
	}
	if changed("window") {
		cfg.WindowMinutes = f.Window
	}
	if changed("dry-run") {
		cfg.DryRun = f.DryRun
	}
	if changed("backend") {
		b := StorageBackend(strings.ToLower(f.Backend))
		if b != BackendMinio && b != BackendS3 {
			return fmt.Errorf("invalid backend %q (use 'minio' or 's3')", f.Backend)
		}
		cfg.Storage.Backend = b
	}
	if changed("endpoint") {
		cfg.Storage.Endpoint = f.Endpoint
	}
	if changed("bucket") {
		cfg.Storage.Bucket = f.Bucket
	}
	if changed("prefix") {
		cfg.Storage.Prefix = f.Prefix
	}
	if changed("redis") {
		cfg.Lock.RedisAddr = f.RedisAddr
	}
	if changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if changed("log-format") {
		cfg.Log.Format = LogFormat(strings.ToLower(f.LogFormat))
	}
	if changed("log") {
		cfg.Log.File = f.LogFile
	}
	if f.noColor {
		cfg.Log.Color = ColorNever
	} else if f.forceColor {
		cfg.Log.Color = ColorAlways
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.MetricsFile
	}
	return nil
}

// Load builds the effective Config: defaults, then the YAML file, then the
// environment, then flags. The dotenv file is loaded first so ${VAR}
// references in the YAML file can use it. getenv is usually os.Getenv.
func (f *Flags) Load(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if f.EnvFile != "" {
		if err := LoadDotEnv(f.EnvFile); err != nil {
			return cfg, err
		}
	}
	if f.ConfigFile != "" {
		if err := LoadFile(f.ConfigFile, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if err := f.Apply(&cfg); err != nil {
		return cfg, err
	}
	cfg.DataDir = NormalizeDirArg(cfg.DataDir)
	return cfg, cfg.Validate()
}
