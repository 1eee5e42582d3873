package attendance

import "time"

type Record struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId"`
	EmployeeName   string    `json:"employeeName,omitempty"`
	EmployeeNumber string    `json:"employeeNumber,omitempty"`
	MarkedAt       time.Time `json:"markedAt"`
	Day            string    `json:"day"`
}

// Calendar is one employee's month. Absent days are counted from the later
// of the 1st and the joining day, up to yesterday for the current month.
type Calendar struct {
	EmployeeID   string   `json:"employeeId"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	PresentDates []string `json:"presentDates"`
	PresentCount int      `json:"presentCount"`
	AbsentCount  int      `json:"absentCount"`
}
