// Package check provides system diagnostics (dealsync check) and the
// pre-run data directory validation (DataDir).
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/backmassage/dealsync/internal/config"
	"github.com/backmassage/dealsync/internal/lock"
	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/upload"
)

// Sentinel errors returned by DataDir.
var (
	ErrDataDirMissing     = errors.New("data directory does not exist")
	ErrNotADirectory      = errors.New("data path is not a directory")
	ErrDataDirNotWritable = errors.New("data directory is not writable")
)

// Logger is the subset of logging.Logger that RunCheck writes to.
type Logger interface {
	Info(string, ...logging.Field)
	Success(string, ...logging.Field)
	Warn(string, ...logging.Field)
	Error(string, ...logging.Field)
}

// StoreFactory builds and verifies an object store. upload.NewStore is the
// production implementation.
type StoreFactory func(ctx context.Context, cfg config.StorageConfig) (upload.Store, error)

// RunCheck runs every diagnostic and logs one line per result. It does not
// stop at the first failure; the return value is false if any check failed.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger, newStore StoreFactory) bool {
	log.Info("System check", logging.F("dir", cfg.DataDir))

	ok := checkDataDir(cfg.DataDir, log)
	checkStaleLock(cfg, log)
	if cfg.Lock.RedisAddr != "" {
		ok = checkRedis(ctx, cfg.Lock, log) && ok
	}
	ok = checkStorage(ctx, cfg, log, newStore) && ok

	if ok {
		log.Success("All checks passed")
	} else {
		log.Error("Some checks failed")
	}
	return ok
}

// DataDir verifies dir exists, is a directory, and accepts new files.
func DataDir(dir string) error {
	fi, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDataDirMissing, dir)
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	f, err := os.CreateTemp(dir, ".dealsync-check-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDataDirNotWritable, dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

func checkDataDir(dir string, log Logger) bool {
	if err := DataDir(dir); err != nil {
		log.Error("Data directory unusable", logging.Err(err))
		return false
	}
	log.Success("Data directory writable", logging.F("dir", dir))
	return true
}

// checkStaleLock only reports; the next run reclaims stale lock files
// on its own.
func checkStaleLock(cfg *config.Config, log Logger) {
	fi, err := os.Stat(filepath.Join(cfg.DataDir, lock.FileName))
	if err != nil {
		return
	}
	age := time.Since(fi.ModTime()).Round(time.Second)
	if cfg.Lock.StaleAfter > 0 && age > cfg.Lock.StaleAfter {
		log.Warn("Stale lock file present; the next run will reclaim it", logging.F("age", age.String()))
		return
	}
	log.Warn("Lock file present; a run may be in progress", logging.F("age", age.String()))
}

func checkRedis(ctx context.Context, cfg config.LockConfig, log Logger) bool {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Error("Redis lock backend unreachable", logging.F("addr", cfg.RedisAddr), logging.Err(err))
		return false
	}
	log.Success("Redis lock backend reachable", logging.F("addr", cfg.RedisAddr))
	return true
}

func checkStorage(ctx context.Context, cfg *config.Config, log Logger, newStore StoreFactory) bool {
	if err := cfg.ValidateStorage(); err != nil {
		log.Error("Storage config invalid", logging.Err(err))
		return false
	}
	log.Success("Storage config valid",
		logging.F("backend", string(cfg.Storage.Backend)), logging.F("bucket", cfg.Storage.Bucket))

	if newStore == nil {
		return true
	}
	sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	s, err := newStore(sctx, cfg.Storage)
	if err != nil {
		log.Error("Bucket unreachable", logging.Err(err))
		return false
	}
	log.Success("Bucket reachable", logging.F("store", s.Name()))
	return true
}
