package naming

import "strings"

// TypeRule maps a predicate over the lowercased filename to a file type.
// [TypeRules] is evaluated in order; first match wins.
type TypeRule struct {
	Name  string
	Match func(lower string) bool
	Type  FileType
}

// SourceRule maps a predicate over the lowercased filename to a source.
// [SourceRules] is evaluated in order; first match wins, and [DefaultSource]
// applies when none match.
type SourceRule struct {
	Name   string
	Match  func(lower string) bool
	Source Source
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

func equalsAny(names ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range names {
			if s == n {
				return true
			}
		}
		return false
	}
}

// TypeRules decides the file category. A name matching none of them is
// unrecognized.
var TypeRules = []TypeRule{
	{Name: "bulk", Match: containsAny("bulk"), Type: Bulk},
	{Name: "block", Match: containsAny("block"), Type: Block},
	{Name: "insider", Match: containsAny("pit", "insider"), Type: Insider},
}

// SourceRules decides the exchange once the file type is known.
//
// The underscore rule routes every underscored name to BSE, because BSE
// exports are the richly named ones (Bulk_BSE_25Jun2025.csv) while NSE
// exports arrive bare (bulk.csv). It also catches unrelated underscored
// names; that over-match is long-standing behavior and is kept.
var SourceRules = []SourceRule{
	{Name: "bse or underscored", Match: containsAny("bse", "_"), Source: BSE},
	{Name: "bare nse export", Match: equalsAny("bulk.csv", "block.csv"), Source: NSE},
	{Name: "nse", Match: containsAny("nse"), Source: NSE},
	{Name: "sebi disclosure", Match: containsAny("sebi"), Source: BSE},
}

// DefaultSource is used when no [SourceRules] entry matches.
const DefaultSource = NSE

func matchType(lower string) (FileType, bool) {
	for _, r := range TypeRules {
		if r.Match(lower) {
			return r.Type, true
		}
	}
	return "", false
}

func matchSource(lower string) Source {
	for _, r := range SourceRules {
		if r.Match(lower) {
			return r.Source
		}
	}
	return DefaultSource
}
