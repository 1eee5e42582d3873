package reporthandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/payslip"
	"staffledger/internal/domain/report"
	"staffledger/internal/platform/jobs"
	"staffledger/internal/transport/http/api"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Reports interface {
	Overview(ctx context.Context, now time.Time) (report.Overview, error)
	Dashboard(ctx context.Context, year, month int, rounding accrual.Rounding) (report.Dashboard, error)
	EmployeeMonth(ctx context.Context, employeeID string, year, month int, rounding accrual.Rounding) (report.EmployeeMonth, error)
	EmployeeHistory(ctx context.Context, employeeID string, year int, rounding accrual.Rounding) (report.History, error)
}

type Statements interface {
	Statement(ctx context.Context, employeeID string, year, month int) (payslip.Document, error)
}

type Jobs interface {
	WarmYear(ctx context.Context, year int) (any, error)
	ListRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

type Handler struct {
	Reports    Reports
	Statements Statements
	Jobs       Jobs
	Location   *time.Location
	Now        func() time.Time
}

func NewHandler(reports Reports, statements Statements, jobs Jobs, loc *time.Location) *Handler {
	return &Handler{Reports: reports, Statements: statements, Jobs: jobs, Location: loc, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admin := r.With(middleware.RequireRole(auth.RoleAdmin))
	admin.Get("/reports/overview", h.handleOverview)
	admin.Get("/reports/payroll", h.handlePayroll)
	admin.Get("/reports/payroll/{employeeID}", h.handleEmployeeMonth)
	admin.Get("/reports/payroll/{employeeID}/history", h.handleHistory)
	admin.Get("/reports/payroll/{employeeID}/statement.pdf", h.handleStatement)
	admin.Post("/reports/refresh", h.handleRefresh)
	admin.Get("/reports/jobs", h.handleJobs)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	overview, err := h.Reports.Overview(r.Context(), h.Now())
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	api.Success(w, overview, reqID)
}

func (h *Handler) handlePayroll(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year, month, v := shared.Period(r, h.Now(), h.Location)
	rounding := shared.Rounding(r, v)
	if v.Reject(w, reqID) {
		return
	}
	dashboard, err := h.Reports.Dashboard(r.Context(), year, month, rounding)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

func (h *Handler) handleEmployeeMonth(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	WriteEmployeeMonth(w, r, h.Reports, employeeID, h.Now(), h.Location)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	WriteHistory(w, r, h.Reports, employeeID, h.Now(), h.Location)
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	year, month, v := shared.Period(r, h.Now(), h.Location)
	if v.Reject(w, reqID) {
		return
	}
	doc, err := h.Statements.Statement(r.Context(), employeeID, year, month)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+doc.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		slog.Warn("statement write failed", "err", err, "requestId", reqID)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year, _, v := shared.Period(r, h.Now(), h.Location)
	if v.Reject(w, reqID) {
		return
	}
	details, err := h.Jobs.WarmYear(r.Context(), year)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	api.Success(w, details, reqID)
}

func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 20, 100)
	runs, err := h.Jobs.ListRuns(r.Context(), r.URL.Query().Get("jobType"), page.Limit)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	if runs == nil {
		runs = []jobs.Run{}
	}
	api.Success(w, runs, reqID)
}

// WriteEmployeeMonth serves one employee's month drill-down.
func WriteEmployeeMonth(w http.ResponseWriter, r *http.Request, reports Reports, employeeID string, now time.Time, loc *time.Location) {
	reqID := middleware.GetRequestID(r.Context())
	year, month, v := shared.Period(r, now, loc)
	rounding := shared.Rounding(r, v)
	if v.Reject(w, reqID) {
		return
	}
	detail, err := reports.EmployeeMonth(r.Context(), employeeID, year, month, rounding)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	api.Success(w, detail, reqID)
}

// WriteHistory serves the twelve months of one employee's year.
func WriteHistory(w http.ResponseWriter, r *http.Request, reports Reports, employeeID string, now time.Time, loc *time.Location) {
	reqID := middleware.GetRequestID(r.Context())
	year, _, v := shared.Period(r, now, loc)
	rounding := shared.Rounding(r, v)
	if v.Reject(w, reqID) {
		return
	}
	history, err := reports.EmployeeHistory(r.Context(), employeeID, year, rounding)
	if err != nil {
		WriteError(w, err, reqID)
		return
	}
	api.Success(w, history, reqID)
}

func WriteError(w http.ResponseWriter, err error, reqID string) {
	var incomplete *accrual.IncompleteDataError
	switch {
	case errors.Is(err, report.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, report.ErrInvalidPeriod), errors.Is(err, accrual.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.As(err, &incomplete):
		api.FailWithDetails(w, http.StatusServiceUnavailable, "incomplete_data", "employee records could not be loaded",
			map[string]string{"employeeId": incomplete.EmployeeID, "recordSet": incomplete.RecordSet}, reqID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusServiceUnavailable, "report_unavailable", "report build was interrupted", reqID)
	default:
		slog.Error("report request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "report_error", "report request failed", reqID)
	}
}
