package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/naming"
)

// ContentType is set on every uploaded object.
const ContentType = "text/csv"

// ErrNotCanonical rejects a path whose basename is not a canonical name.
var ErrNotCanonical = errors.New("filename is not canonical")

// Status is the per-file upload outcome.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Recorder receives one observation per file. *metrics.Metrics implements it.
type Recorder interface {
	ObserveUpload(status string, bytes int64)
}

// Options tunes [Upload]. Zero Retries means a single attempt; zero
// Timeout means no per-attempt deadline.
type Options struct {
	Prefix   string
	Retries  int
	Backoff  time.Duration
	Timeout  time.Duration
	Log      logging.Logger
	Recorder Recorder
}

// FileResult is the outcome for one path.
type FileResult struct {
	Path     string
	Key      string
	Status   Status
	Bytes    int64
	Attempts int
	Err      error
}

// Report summarizes an upload batch.
type Report struct {
	Results  []FileResult
	Uploaded int
	Rejected int
	Failed   int
	Bytes    int64
}

// OK reports whether every path was uploaded.
func (r *Report) OK() bool { return r.Failed == 0 && r.Rejected == 0 }

// Err joins the errors of rejected and failed files.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(res.Path), res.Err))
		}
	}
	return errors.Join(errs...)
}

// ObjectKey joins prefix and the basename of name into a bucket key.
// Leading and trailing slashes on prefix are ignored.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	base := filepath.Base(name)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Upload pushes each path to store in order. A file failing does not stop
// the batch. Paths whose basename is not canonical are rejected without
// contacting the store. A cancelled ctx marks the remaining files failed.
func Upload(ctx context.Context, store Store, paths []string, opts Options) Report {
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}

	rep := Report{Results: make([]FileResult, 0, len(paths))}
	for _, p := range paths {
		res := uploadOne(ctx, store, p, opts)
		rep.Results = append(rep.Results, res)

		fields := []logging.Field{
			logging.F("file", filepath.Base(p)),
			logging.F("outcome", string(res.Status)),
		}
		switch res.Status {
		case StatusUploaded:
			rep.Uploaded++
			rep.Bytes += res.Bytes
			log.Success("Uploaded", append(fields,
				logging.F("key", res.Key),
				logging.F("size", humanize.Bytes(uint64(res.Bytes))),
				logging.F("attempts", res.Attempts))...)
		case StatusRejected:
			rep.Rejected++
			log.Warn("Upload rejected: filename is not canonical", fields...)
		case StatusFailed:
			rep.Failed++
			log.Error("Upload failed", append(fields,
				logging.F("key", res.Key),
				logging.F("attempts", res.Attempts),
				logging.Err(res.Err))...)
		}
		if opts.Recorder != nil {
			opts.Recorder.ObserveUpload(string(res.Status), res.Bytes)
		}
	}

	log.Info("Upload batch done",
		logging.F("store", store.Name()),
		logging.F("uploaded", rep.Uploaded),
		logging.F("rejected", rep.Rejected),
		logging.F("failed", rep.Failed),
		logging.F("bytes", humanize.Bytes(uint64(rep.Bytes))))
	return rep
}

func uploadOne(ctx context.Context, store Store, p string, opts Options) FileResult {
	res := FileResult{Path: p}
	base := filepath.Base(p)
	if !naming.IsCanonical(base) {
		res.Status, res.Err = StatusRejected, ErrNotCanonical
		return res
	}
	res.Key = ObjectKey(opts.Prefix, base)
	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	state := NewRetryState(opts.Retries, opts.Backoff)
	for {
		res.Attempts++
		size, err := putFile(ctx, store, p, res.Key, opts.Timeout)
		if err == nil {
			res.Status, res.Bytes = StatusUploaded, size
			return res
		}

		delay, retry := state.Advance(ctx, err)
		if !retry {
			res.Status, res.Err = StatusFailed, err
			return res
		}
		if opts.Log != nil {
			opts.Log.Debug("Retrying upload",
				logging.F("file", base), logging.F("attempt", res.Attempts), logging.Err(err))
		}
		if err := sleepCtx(ctx, delay); err != nil {
			res.Status, res.Err = StatusFailed, err
			return res
		}
	}
}

// putFile opens p fresh for each attempt so a retried body starts at
// offset zero.
func putFile(ctx context.Context, store Store, p, key string, timeout time.Duration) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := store.Put(ctx, key, f, fi.Size(), ContentType); err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
