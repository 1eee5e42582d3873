package accrual

import (
	"sort"
	"time"
)

// Day is a local calendar day.
type Day struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DayOf returns the calendar day t falls on in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	local := t.In(loc)
	return Day{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// DateOf reads the calendar fields of a date value as stored, without moving
// it into another zone. Joining dates come back from DATE columns at UTC
// midnight and must not shift a day west of Greenwich.
func DateOf(t time.Time) Day {
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Extractor tells the aggregator where a record keeps its instant.
type Extractor[T any] struct {
	Field string
	At    func(T) time.Time
	ID    func(T) string
}

var (
	AttendanceTime = Extractor[AttendanceRecord]{
		Field: "timestamp",
		At:    func(r AttendanceRecord) time.Time { return r.Timestamp },
		ID:    func(r AttendanceRecord) string { return r.ID },
	}
	AdvanceTime = Extractor[AdvanceRecord]{
		Field: "date",
		At:    func(r AdvanceRecord) time.Time { return r.Date },
		ID:    func(r AdvanceRecord) string { return r.ID },
	}
	PaymentTime = Extractor[PaymentRecord]{
		Field: "datePaid",
		At:    func(r PaymentRecord) time.Time { return r.DatePaid },
		ID:    func(r PaymentRecord) string { return r.ID },
	}
)

// BucketByMonth partitions the records of one year into twelve buckets by the
// local calendar month of each record. Records from other years are ignored.
// Records without an instant are rejected and returned separately.
func BucketByMonth[T any](records []T, ex Extractor[T], year int, loc *time.Location) ([MonthsPerYear][]T, []ValidationError) {
	var buckets [MonthsPerYear][]T
	var rejected []ValidationError
	for _, rec := range records {
		at := ex.At(rec)
		if at.IsZero() {
			rejected = append(rejected, ValidationError{RecordID: ex.ID(rec), Field: ex.Field, Reason: "is missing"})
			continue
		}
		day := DayOf(at, loc)
		if day.Year != year {
			continue
		}
		idx := int(day.Month) - 1
		buckets[idx] = append(buckets[idx], rec)
	}
	return buckets, rejected
}

// BucketMonth returns the records of a single month (0-11).
func BucketMonth[T any](records []T, ex Extractor[T], year, month int, loc *time.Location) ([]T, []ValidationError) {
	buckets, rejected := BucketByMonth(records, ex, year, loc)
	if month < 0 || month >= MonthsPerYear {
		return nil, rejected
	}
	return buckets[month], rejected
}

// DistinctDays collapses attendance to the sorted set of local days with at
// least one record.
func DistinctDays(records []AttendanceRecord, loc *time.Location) []Day {
	seen := make(map[Day]struct{}, len(records))
	days := make([]Day, 0, len(records))
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			continue
		}
		day := DayOf(rec.Timestamp, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// YearRange returns [Jan 1, Jan 1 next year) in loc.
func YearRange(year int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

// MonthRange returns [first of month, first of next month) in loc.
func MonthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
