// Package naming classifies market-data export filenames and builds their
// canonical form.
//
// A canonical name has the shape
//
//	{type}_{source}_{ddmmyyyy}.csv
//
// where type is one of "bulk", "block" or "Insider" and source is "BSE" or
// "NSE". Upstream exporters name the same kind of file in several
// inconsistent ways, so classification is an ordered chain of substring
// rules (rules.go): earlier, more specific signals win and later rules are
// fallbacks.
//
// Files:
//   - types.go: FileType, Source, Classification.
//   - date.go: ExtractDate, the embedded-date parser with a today fallback.
//   - rules.go: TypeRules and SourceRules, evaluated first match wins.
//   - parser.go: Renamer, the raw-name to canonical-name entry point.
//   - canonical.go: IsCanonical and ParseCanonical (idempotency pre-check).
//   - collision.go: CollisionGuard (never-overwrite target check).
package naming
