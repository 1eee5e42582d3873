package shared

import (
	"net/http/httptest"
	"testing"
	"time"

	"staffledger/internal/domain/accrual"
)

func TestPeriodDefaultsToNow(t *testing.T) {
	req := httptest.NewRequest("GET", "/reports/payroll", nil)
	now := time.Date(2025, time.December, 31, 20, 0, 0, 0, time.UTC)
	year, month, v := Period(req, now, time.FixedZone("IST", 5*3600+1800))
	if v.HasIssues() {
		t.Fatalf("unexpected issues %v", v.Issues())
	}
	if year != 2026 || month != 0 {
		t.Fatalf("expected January 2026 in IST, got %d-%d", year, month)
	}
}

func TestPeriodRejectsBadValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/reports/payroll?year=abc&month=12", nil)
	_, _, v := Period(req, time.Now(), time.UTC)
	issues := v.Issues()
	if len(issues) != 2 || issues[0].Field != "month" || issues[1].Field != "year" {
		t.Fatalf("unexpected issues %v", issues)
	}
}

func TestOptionalPeriod(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?month=3", nil)
	year, month, v := OptionalPeriod(req)
	if v.HasIssues() || year != nil || month == nil || *month != 3 {
		t.Fatalf("unexpected result year=%v month=%v issues=%v", year, month, v.Issues())
	}
}

func TestRounding(t *testing.T) {
	v := NewValidator()
	if got := Rounding(httptest.NewRequest("GET", "/x?rounding=whole", nil), v); got != accrual.RoundWhole {
		t.Fatalf("expected whole, got %q", got)
	}
	Rounding(httptest.NewRequest("GET", "/x?rounding=up", nil), v)
	if !v.HasIssues() {
		t.Fatal("expected rounding issue")
	}
}
