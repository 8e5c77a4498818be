package naming

import (
	"regexp"
	"strconv"
	"time"
)

var (
	// 25Jun2025. The month token is validated by time.Parse, which matches
	// month abbreviations case-insensitively.
	reDayMonthYear = regexp.MustCompile(`\d{2}[A-Za-z]{3}\d{4}`)

	// 250625 → 25/06/2025.
	reSixDigits = regexp.MustCompile(`\d{6}`)
)

const dayMonthYearLayout = "02Jan2006"

// ExtractDate returns the date embedded in name, trying in order:
//
//  1. the first ddMMMyyyy token (e.g. "25Jun2025");
//  2. the first run of six digits, read as ddmmyy in the 2000s;
//  3. the calendar date of now.
//
// A token that matches a pattern but is not a real date does not count as
// a match, so extraction falls through to the next rule. Only the first
// occurrence of each pattern is considered. ExtractDate never fails.
func ExtractDate(name string, now time.Time) time.Time {
	if tok := reDayMonthYear.FindString(name); tok != "" {
		if d, err := time.Parse(dayMonthYearLayout, tok); err == nil {
			return d
		}
	}
	if tok := reSixDigits.FindString(name); tok != "" {
		if d, ok := parseDDMMYY(tok); ok {
			return d
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// parseDDMMYY parses a six-digit ddmmyy token. It rejects impossible dates
// (month 13, 31 April) instead of letting time.Date normalize them.
func parseDDMMYY(tok string) (time.Time, bool) {
	day, _ := strconv.Atoi(tok[0:2])
	month, _ := strconv.Atoi(tok[2:4])
	year, _ := strconv.Atoi(tok[4:6])
	year += 2000

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}
