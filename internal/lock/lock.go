// Package lock serializes runs against one data directory.
//
// The default backend is a lock file inside the directory. When a Redis
// address is configured, a SET NX lock keyed by the absolute directory path
// is used instead so schedulers on different hosts exclude each other.
package lock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/backmassage/dealsync/internal/config"
)

var (
	// ErrLocked is returned by [Hold] when another run holds the lock.
	ErrLocked = errors.New("another run holds the lock")
	// ErrLost is returned by Refresh when the lock was taken over.
	ErrLost = errors.New("lock no longer held")
)

// Lock is a non-blocking mutual-exclusion primitive.
type Lock interface {
	// Acquire tries to take the lock. It returns false, without error, when
	// the lock is held elsewhere.
	Acquire(ctx context.Context) (bool, error)
	// Refresh extends the lease of a held lock.
	Refresh(ctx context.Context) error
	// Release drops the lock if this instance still owns it.
	Release(ctx context.Context) error
	// Close frees backend resources.
	Close() error
	// Describe names the lock for logs.
	Describe() string
}

// New returns the backend selected by cfg for dir.
func New(cfg config.LockConfig, dir string) (Lock, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if cfg.RedisAddr == "" {
		return NewFileLock(abs, cfg.StaleAfter, nil), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	l := NewRedisLock(client, "dealsync:"+abs, cfg.TTL)
	l.ownsClient = true
	return l, nil
}

// Hold acquires l or returns [ErrLocked]. While held, the lock is refreshed
// every interval; zero disables refreshing. The returned release function
// stops refreshing and drops the lock. It is safe to defer and uses its own
// short deadline so it still runs after ctx is cancelled. A refresh failure
// is reported by release.
func Hold(ctx context.Context, l Lock, every time.Duration) (release func() error, err error) {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.Describe())
	}
	hb := startHeartbeat(l, every)
	return func() error {
		herr := hb.stop()
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(herr, l.Release(rctx))
	}, nil
}

type heartbeat struct {
	quit chan struct{}
	done chan struct{}
	err  error // last refresh result; read after done is closed
}

func startHeartbeat(l Lock, every time.Duration) *heartbeat {
	hb := &heartbeat{quit: make(chan struct{}), done: make(chan struct{})}
	if every <= 0 {
		close(hb.done)
		return hb
	}
	go func() {
		defer close(hb.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-hb.quit:
				return
			case <-ticker.C:
				rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				hb.err = l.Refresh(rctx)
				cancel()
				if errors.Is(hb.err, ErrLost) {
					return
				}
			}
		}
	}()
	return hb
}

func (hb *heartbeat) stop() error {
	close(hb.quit)
	<-hb.done
	return hb.err
}
