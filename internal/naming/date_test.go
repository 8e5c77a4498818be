package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	today := day(2026, time.October, 14)

	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{"month token", "Bulk_25Jun2025_BSE.csv", day(2025, time.June, 25)},
		{"month token any case", "bulk_25JUN2025.csv", day(2025, time.June, 25)},
		{"six digits", "bulk-250625.csv", day(2025, time.June, 25)},
		{"month token first even if later in name", "bulk-010125-15Mar2024.csv", day(2024, time.March, 15)},
		{"invalid month falls through", "bulk-12Xyz2024-150325.csv", day(2025, time.March, 15)},
		{"day out of range falls through", "bulk-31Feb2024-010224.csv", day(2024, time.February, 1)},
		{"leap day", "bulk-29Feb2024.csv", day(2024, time.February, 29)},
		{"six digits bad month", "bulk-011325.csv", today},
		{"six digits bad day", "bulk-310425.csv", today},
		{"only first six-digit run used", "bulk-991399-010125.csv", today},
		{"no date token", "bulk.csv", today},
		{"eight digits use first six", "bulk-25062025.csv", day(2020, time.June, 25)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractDate(tc.in, fixedNow)
			assert.Equal(t, tc.want.Format(DateLayout), got.Format(DateLayout))
		})
	}
}

func TestExtractDate_FallbackDropsClockTime(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, time.October, 14, 23, 59, 0, 0, loc)
	got := ExtractDate("bulk.csv", now)
	assert.Equal(t, "14102026", got.Format(DateLayout))
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, loc, got.Location())
}
