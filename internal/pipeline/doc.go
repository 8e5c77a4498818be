// Package pipeline finds fresh exports in a directory and renames them to
// their canonical names.
//
// Types:
//   - CandidateFile: one fresh .csv file (discover.go).
//   - FileSystem: the directory operations the batch needs; OSFileSystem
//     is the real one (fs.go).
//   - Options, Outcome, Result: batch input and per-file report (runner.go).
//   - RunStats: outcome counters (stats.go).
//
// Functions:
//   - Recent(fsys, dir, window, now) → []CandidateFile
//     Non-recursive listing of .csv files modified within window.
//   - Rename(ctx, opts) → *Result
//     Guard pre-check → classify → collision check → rename, one log line
//     per outcome, after the outcome happened.
//   - CanonicalFiles(fsys, dir) → []string
//     Already-renamed files, for upload-only runs.
package pipeline
