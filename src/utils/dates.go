package utils

import (
	"fmt"
	"time"
)

// ParseDateParam accepts an RFC 3339 timestamp or a plain date. A plain date
// is read as UTC midnight, or as the last instant of that day when endOfDay
// is set, so that ?start=2024-01-01&end=2024-01-01 covers the whole day.
func ParseDateParam(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{ShortDashDateLayout, ShortSlashDateLayout} {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err != nil {
			continue
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339: %w", value, ErrInvalidArgument)
}
