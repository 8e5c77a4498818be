package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/naming"
)

// OutcomeKind classifies what happened to one candidate file.
type OutcomeKind int

const (
	Renamed OutcomeKind = iota
	SkippedCanonical
	SkippedUnrecognized
	SkippedCollision
	Failed // The rename or target check hit an OS error.
)

func (k OutcomeKind) String() string {
	switch k {
	case Renamed:
		return "renamed"
	case SkippedCanonical:
		return "skipped_canonical"
	case SkippedUnrecognized:
		return "skipped_unrecognized"
	case SkippedCollision:
		return "skipped_collision"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-file report. Target is empty for canonical and
// unrecognized skips.
type Outcome struct {
	Kind   OutcomeKind
	Source string
	Target string
	Err    error
}

// Recorder receives one observation per outcome. *metrics.Metrics
// implements it.
type Recorder interface {
	ObserveRename(outcome string)
}

// Options configures a rename batch. Now, FS and Log default to time.Now,
// OSFileSystem and a no-op logger.
type Options struct {
	Dir      string
	Window   time.Duration
	DryRun   bool
	Now      func() time.Time
	FS       FileSystem
	Log      logging.Logger
	Recorder Recorder
}

// Result is what a batch produced. Renamed holds the new paths of files
// actually renamed (or that would be, in a dry run), in processing order.
type Result struct {
	Renamed  []string
	Outcomes []Outcome
	Stats    RunStats
}

func (o *Options) defaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.FS == nil {
		o.FS = OSFileSystem{}
	}
	if o.Log == nil {
		o.Log = logging.NewNop()
	}
}

// Rename is the batch entry point. It lists fresh candidates in opts.Dir and
// for each one: skips names already canonical, classifies the rest, skips
// unrecognized names and taken targets, and renames what remains. It never
// overwrites a file.
//
// An empty directory yields an empty Result and no error. A cancelled ctx
// stops the batch between files and returns the partial Result with the
// context error; files already renamed stay renamed, and a rerun picks up
// the rest.
func Rename(ctx context.Context, opts Options) (*Result, error) {
	opts.defaults()
	now := opts.Now()
	log := opts.Log

	res := &Result{Renamed: []string{}}

	files, err := Recent(opts.FS, opts.Dir, opts.Window, now)
	if err != nil {
		return res, err
	}
	res.Stats.Total = len(files)

	if len(files) == 0 {
		log.Warn("No recent .csv files found",
			logging.F("dir", opts.Dir), logging.F("window", opts.Window))
		return res, nil
	}

	renamer := naming.NewRenamer(func() time.Time { return now })
	guard := naming.NewCollisionGuard(opts.FS.Stat)

	for _, f := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted", logging.F("remaining", len(files)-len(res.Outcomes)))
			return res, ctx.Err()
		}

		out := processFile(opts, renamer, guard, f)
		res.Outcomes = append(res.Outcomes, out)
		res.Stats.add(out.Kind)
		if out.Kind == Renamed {
			res.Renamed = append(res.Renamed, out.Target)
		}
		if opts.Recorder != nil {
			opts.Recorder.ObserveRename(out.Kind.String())
		}
	}

	logSummary(log, opts.DryRun, &res.Stats)
	return res, nil
}

// processFile handles one candidate: canonical check → classify →
// collision check → rename. It logs the outcome once it is final.
func processFile(opts Options, renamer *naming.Renamer, guard *naming.CollisionGuard, f CandidateFile) Outcome {
	log := opts.Log.With(logging.F("file", f.Name))
	out := Outcome{Source: f.Path}

	if naming.IsCanonical(f.Name) {
		out.Kind = SkippedCanonical
		log.Info("Skipped: already canonical", logging.F("outcome", out.Kind))
		return out
	}

	newName, ok := renamer.RenamedFilename(f.Name)
	if !ok {
		out.Kind = SkippedUnrecognized
		log.Warn("Skipped: unrecognized naming pattern", logging.F("outcome", out.Kind))
		return out
	}

	out.Target = filepath.Join(filepath.Dir(f.Path), newName)

	free, err := guard.Claim(f.Path, out.Target)
	if err != nil {
		out.Kind, out.Err = Failed, err
		log.Error("Rename failed: cannot check target",
			logging.F("outcome", out.Kind), logging.F("target", newName), logging.Err(err))
		return out
	}
	if !free {
		out.Kind = SkippedCollision
		log.Warn("Skipped: target already exists",
			logging.F("outcome", out.Kind), logging.F("target", newName))
		return out
	}

	if opts.DryRun {
		out.Kind = Renamed
		log.Info("Would rename", logging.F("outcome", out.Kind), logging.F("target", newName), logging.F("dry_run", true))
		return out
	}

	if err := opts.FS.Rename(f.Path, out.Target); err != nil {
		out.Kind, out.Err = Failed, err
		log.Error("Rename failed",
			logging.F("outcome", out.Kind), logging.F("target", newName), logging.Err(err))
		return out
	}

	out.Kind = Renamed
	log.Success("Renamed", logging.F("outcome", out.Kind), logging.F("target", newName))
	return out
}

func logSummary(log logging.Logger, dryRun bool, s *RunStats) {
	fields := []logging.Field{
		logging.F("total", s.Total),
		logging.F("renamed", s.Renamed),
		logging.F("skipped_canonical", s.SkippedCanonical),
		logging.F("skipped_unrecognized", s.SkippedUnrecognized),
		logging.F("skipped_collision", s.SkippedCollision),
		logging.F("failed", s.Failed),
		logging.F("dry_run", dryRun),
	}
	if s.Failed > 0 {
		log.Warn("Rename batch done with failures", fields...)
		return
	}
	log.Info("Rename batch done", fields...)
}

// FailedErr joins the errors of failed outcomes; it is nil when none failed.
func (r *Result) FailedErr() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Kind == Failed && o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}
