package payslip

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/domain/report"
)

type Reports interface {
	EmployeeMonth(ctx context.Context, employeeID string, year, month int, rounding accrual.Rounding) (report.EmployeeMonth, error)
}

type Service struct {
	reports Reports
	now     func() time.Time
}

func NewService(reports Reports) *Service {
	return &Service{reports: reports, now: time.Now}
}

type Document struct {
	Filename string
	Data     []byte
}

// Statement renders the employee's month as a PDF.
func (s *Service) Statement(ctx context.Context, employeeID string, year, month int) (Document, error) {
	detail, err := s.reports.EmployeeMonth(ctx, employeeID, year, month, accrual.RoundNone)
	if err != nil {
		return Document{}, err
	}
	var buf bytes.Buffer
	if err := Render(&buf, detail, s.now()); err != nil {
		return Document{}, err
	}
	return Document{Filename: Filename(detail), Data: buf.Bytes()}, nil
}

func Filename(detail report.EmployeeMonth) string {
	return fmt.Sprintf("statement-%s-%04d-%02d.pdf", detail.Employee.Number, detail.Accrual.Year, detail.Accrual.Month+1)
}

func Render(w io.Writer, detail report.EmployeeMonth, generated time.Time) error {
	m := detail.Accrual
	period := time.Date(m.Year, time.Month(m.Month+1), 1, 0, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Salary statement %s", period.Format("January 2006")), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Salary statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", detail.Employee.Name, detail.Employee.Number))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", period.Format("January 2006")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Base salary: %s", money(detail.Employee.BaseSalary)))
	pdf.Ln(10)

	lines := []struct {
		label string
		value string
	}{
		{"Present days", fmt.Sprintf("%d", m.PresentDays)},
		{"Earned salary", money(m.EarnedSalary)},
		{"Previous balance", money(m.PreviousDueBalance)},
		{"Advances", money(m.TotalAdvances)},
		{"Paid", money(m.TotalPaid)},
		{"Net due", money(m.NetAmountDue)},
		{"Status", string(m.Status)},
	}
	for _, line := range lines {
		pdf.CellFormat(60, 8, line.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, line.value, "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Payment history")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if len(detail.Payments) == 0 {
		pdf.Cell(0, 7, "No payments recorded this month.")
		pdf.Ln(7)
	}
	for _, p := range detail.Payments {
		pdf.CellFormat(60, 7, p.DatePaid.Format("02 Jan 2006"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, money(p.AmountPaid), "1", 1, "R", false, 0, "")
	}
	if len(detail.Advances) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Advances")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, a := range detail.Advances {
			pdf.CellFormat(60, 7, a.Date.Format("02 Jan 2006"), "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 7, money(a.Amount), "1", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", generated.Format(time.RFC1123)))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
