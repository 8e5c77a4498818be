package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/backmassage/dealsync/internal/check"
	"github.com/backmassage/dealsync/internal/config"
	"github.com/backmassage/dealsync/internal/lock"
	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/metrics"
	"github.com/backmassage/dealsync/internal/pipeline"
	"github.com/backmassage/dealsync/internal/upload"
)

// app carries everything a command needs. Commands share one instance per
// process; tests build their own with fakes.
type app struct {
	flags *config.Flags
	cfg   config.Config
	log   logging.Logger // run-scoped child of base
	base  logging.Logger // owns the log file
	stats *metrics.Metrics

	getenv    func(string) string
	now       func() time.Time
	newStore  check.StoreFactory
	newLogger func(*config.Config) (logging.Logger, error)
	out       io.Writer
}

func newApp() *app {
	return &app{
		getenv:    os.Getenv,
		now:       time.Now,
		newStore:  upload.NewStore,
		newLogger: logging.NewLogger,
		out:       os.Stdout,
	}
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if a.log != nil {
		if err != nil {
			a.log.Error("dealsync failed", logging.Err(err))
		}
		a.base.Close()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "dealsync: %v\n", err)
	}
	if err != nil {
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dealsync",
		Short: "Rename fresh deal exports to canonical names and upload them",
		Long: `dealsync watches a data directory for freshly exported bulk, block and
insider-trading CSV files, renames each to {type}_{BSE|NSE}_{ddmmyyyy}.csv,
and uploads the renamed files to an S3-compatible bucket.

Running without a command is the same as 'dealsync run'.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAll(cmd.Context())
		},
	}
	a.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Rename fresh exports, then upload the renamed files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runAll(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "rename",
			Short: "Rename fresh exports only and print the new paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runRename(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "upload [paths...]",
			Short: "Upload canonical files (default: every canonical file in the data directory)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runUpload(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Check the data directory, storage settings and bucket access",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if !check.RunCheck(cmd.Context(), &a.cfg, a.log, a.newStore) {
					return errors.New("check failed")
				}
				return nil
			},
		},
	)
	return root
}

// setup loads configuration and builds the run-scoped logger and metrics.
func (a *app) setup() error {
	cfg, err := a.flags.Load(a.getenv)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	log, err := a.newLogger(&a.cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.base = log
	a.log = log.With(logging.F("run_id", uuid.NewString()))
	a.stats = metrics.New()
	return nil
}

// runAll is the default flow: lock, rename, upload what was renamed.
func (a *app) runAll(ctx context.Context) (err error) {
	start := a.now()
	defer func() { a.finish(start, err == nil) }()

	release, err := a.lockDir(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := a.rename(ctx)
	if err != nil {
		return err
	}
	renameErr := res.FailedErr()

	if a.cfg.DryRun {
		a.log.Info("Dry run: upload skipped", logging.F("would_upload", len(res.Renamed)))
		return renameErr
	}
	if len(res.Renamed) == 0 {
		a.log.Info("Nothing to upload")
		return renameErr
	}
	return errors.Join(renameErr, a.upload(ctx, res.Renamed))
}

func (a *app) runRename(ctx context.Context) (err error) {
	start := a.now()
	defer func() { a.finish(start, err == nil) }()

	release, err := a.lockDir(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := a.rename(ctx)
	if err != nil {
		return err
	}
	for _, p := range res.Renamed {
		fmt.Fprintln(a.out, p)
	}
	return res.FailedErr()
}

func (a *app) runUpload(ctx context.Context, paths []string) (err error) {
	start := a.now()
	defer func() { a.finish(start, err == nil) }()

	if len(paths) == 0 {
		paths, err = pipeline.CanonicalFiles(pipeline.OSFileSystem{}, a.cfg.DataDir)
		if err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		a.log.Warn("No canonical files to upload", logging.F("dir", a.cfg.DataDir))
		return nil
	}
	if a.cfg.DryRun {
		for _, p := range paths {
			a.log.Info("Would upload", logging.F("file", p), logging.F("dry_run", true))
		}
		return nil
	}
	return a.upload(ctx, paths)
}

func (a *app) lockDir(ctx context.Context) (func(), error) {
	if err := check.DataDir(a.cfg.DataDir); err != nil {
		return nil, err
	}
	l, err := lock.New(a.cfg.Lock, a.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	release, err := lock.Hold(ctx, l, a.cfg.Lock.RefreshInterval())
	if err != nil {
		l.Close()
		return nil, err
	}
	a.log.Debug("Lock acquired", logging.F("lock", l.Describe()))
	return func() {
		if err := release(); err != nil {
			a.log.Warn("Lock release failed", logging.F("lock", l.Describe()), logging.Err(err))
		}
		l.Close()
	}, nil
}

func (a *app) rename(ctx context.Context) (*pipeline.Result, error) {
	return pipeline.Rename(ctx, pipeline.Options{
		Dir:      a.cfg.DataDir,
		Window:   a.cfg.Window(),
		DryRun:   a.cfg.DryRun,
		Now:      a.now,
		Log:      a.log,
		Recorder: a.stats,
	})
}

func (a *app) upload(ctx context.Context, paths []string) error {
	if err := a.cfg.ValidateStorage(); err != nil {
		return fmt.Errorf("%w: %v", upload.ErrConnection, err)
	}
	store, err := a.newStore(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}

	rep := upload.Upload(ctx, store, paths, upload.Options{
		Prefix:   a.cfg.Storage.Prefix,
		Retries:  a.cfg.Upload.Retries,
		Backoff:  a.cfg.Upload.Backoff,
		Timeout:  a.cfg.Upload.Timeout,
		Log:      a.log,
		Recorder: a.stats,
	})
	if !rep.OK() {
		return fmt.Errorf("%d of %d uploads did not succeed: %w",
			rep.Failed+rep.Rejected, len(paths), rep.Err())
	}
	return nil
}

// finish records run metrics and writes the textfile when configured.
func (a *app) finish(start time.Time, ok bool) {
	a.stats.MarkRun(start, a.now(), ok)
	if err := a.stats.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("Metrics not written", logging.Err(err))
	}
}
