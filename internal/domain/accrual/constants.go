package accrual

const (
	StatusPaid          Status = "PAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusUnpaid        Status = "UNPAID"

	MonthsPerYear = 12

	// DefaultPerDiemDivisor is the fixed number of days a monthly base salary
	// is divided by to get the daily rate, regardless of the month's length.
	DefaultPerDiemDivisor = 30

	// DefaultPaidEpsilon is the largest net due still reported as PAID.
	DefaultPaidEpsilon = "0.01"

	RecordSetAttendance = "attendance"
	RecordSetAdvances   = "advances"
	RecordSetPayments   = "payments"
)
