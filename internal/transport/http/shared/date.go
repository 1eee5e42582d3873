package shared

import (
	"strings"
	"time"
)

// ParseDate accepts YYYY-MM-DD or a full RFC3339 timestamp. Bare dates are
// returned at UTC midnight; callers reinterpret them in the business zone.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if len(value) == len(time.DateOnly) {
		return time.Parse(time.DateOnly, value)
	}
	return time.Parse(time.RFC3339, value)
}
