package upload

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

// RetryState tracks attempts for a single file upload.
type RetryState struct {
	Attempt     int
	MaxAttempts int
	Backoff     time.Duration
}

// NewRetryState allows retries extra attempts after the first.
func NewRetryState(retries int, backoff time.Duration) *RetryState {
	if retries < 0 {
		retries = 0
	}
	return &RetryState{MaxAttempts: retries + 1, Backoff: backoff}
}

// Advance records a failed attempt and returns the delay before the next
// one. The boolean is false when err is not transient, the parent context
// is done, or the attempt limit is reached.
func (s *RetryState) Advance(ctx context.Context, err error) (time.Duration, bool) {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return 0, false
	}
	if !IsRetryable(ctx, err) {
		return 0, false
	}
	return time.Duration(s.Attempt) * s.Backoff, true
}

// IsRetryable reports whether err looks transient. ctx is the caller's
// context, not the per-attempt one: an attempt deadline is retryable, a
// cancelled run is not.
//
// Transient: per-attempt timeouts, network errors, HTTP 5xx, and the
// throttling codes SlowDown and RequestTimeout.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// syscall.Errno satisfies net.Error too, so only timeouts count here.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 || resp.Code != "" {
		switch resp.Code {
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return true
		}
		return resp.StatusCode >= 500
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() >= 500 {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "RequestTimeout":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
