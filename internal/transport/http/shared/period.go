package shared

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staffledger/internal/domain/accrual"
)

var errPeriod = errors.New("invalid period")

// Period reads year and month query parameters. Months are 0-based. A
// missing year or month falls back to now in loc.
func Period(r *http.Request, now time.Time, loc *time.Location) (int, int, *Validator) {
	local := now.In(loc)
	v := NewValidator()
	year, err := optionalInt(r, "year", local.Year())
	if err != nil || year <= 0 {
		v.Add("year", "must be a positive integer")
	}
	month, err := optionalInt(r, "month", int(local.Month())-1)
	if err != nil || month < 0 || month >= accrual.MonthsPerYear {
		v.Add("month", "must be between 0 and 11")
	}
	return year, month, v
}

// OptionalPeriod reads year and month without defaults.
func OptionalPeriod(r *http.Request) (*int, *int, *Validator) {
	v := NewValidator()
	var year, month *int
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			v.Add("year", "must be a positive integer")
		} else {
			year = &parsed
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed >= accrual.MonthsPerYear {
			v.Add("month", "must be between 0 and 11")
		} else {
			month = &parsed
		}
	}
	return year, month, v
}

func Rounding(r *http.Request, v *Validator) accrual.Rounding {
	rounding, err := accrual.ParseRounding(r.URL.Query().Get("rounding"))
	if err != nil {
		v.Add("rounding", "must be none or whole")
		return accrual.RoundNone
	}
	return rounding
}

func optionalInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errPeriod
	}
	return parsed, nil
}
