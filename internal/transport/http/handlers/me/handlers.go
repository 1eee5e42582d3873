package mehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/attendance"
	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/employee"
	"staffledger/internal/transport/http/api"
	ledgerhandler "staffledger/internal/transport/http/handlers/ledger"
	reporthandler "staffledger/internal/transport/http/handlers/reports"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Users interface {
	User(ctx context.Context, userID string) (auth.User, error)
}

type Employees interface {
	Get(ctx context.Context, employeeID string) (employee.Employee, error)
}

type Calendars interface {
	MonthCalendar(ctx context.Context, employeeID string, year, month int, today time.Time) (attendance.Calendar, error)
}

// Handler serves the signed-in employee's own records.
type Handler struct {
	Users        Users
	Employees    Employees
	Reports      reporthandler.Reports
	Transactions ledgerhandler.TransactionLister
	Calendars    Calendars
	Location     *time.Location
	Now          func() time.Time
}

type profile struct {
	User     auth.User          `json:"user"`
	Employee *employee.Employee `json:"employee,omitempty"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/me", h.handleProfile)
	self := r.With(middleware.RequireRole(auth.RoleEmployee))
	self.Get("/me/summary", h.handleSummary)
	self.Get("/me/transactions", h.handleTransactions)
	self.Get("/me/history", h.handleHistory)
	self.Get("/me/calendar", h.handleCalendar)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())
	user, err := h.Users.User(r.Context(), actor.UserID)
	if errors.Is(err, auth.ErrUserNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
		return
	}
	if err != nil {
		slog.Error("profile lookup failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "profile_error", "failed to load profile", reqID)
		return
	}
	out := profile{User: user}
	if user.EmployeeID != "" {
		emp, err := h.Employees.Get(r.Context(), user.EmployeeID)
		switch {
		case err == nil:
			out.Employee = &emp
		case !errors.Is(err, employee.ErrNotFound):
			slog.Warn("profile employee lookup failed", "err", err, "requestId", reqID)
		}
	}
	api.Success(w, out, reqID)
}

// selfID returns the caller's employee id or fails the request.
func selfID(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, _ := middleware.GetUser(r.Context())
	if actor.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_profile", "account has no employee profile", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return actor.EmployeeID, true
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := selfID(w, r)
	if !ok {
		return
	}
	reporthandler.WriteEmployeeMonth(w, r, h.Reports, employeeID, h.now(), h.Location)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := selfID(w, r)
	if !ok {
		return
	}
	reporthandler.WriteHistory(w, r, h.Reports, employeeID, h.now(), h.Location)
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := selfID(w, r)
	if !ok {
		return
	}
	ledgerhandler.WriteTransactions(w, r, h.Transactions, employeeID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := selfID(w, r)
	if !ok {
		return
	}
	now := h.now()
	year, month, v := shared.Period(r, now, h.Location)
	if v.Reject(w, reqID) {
		return
	}
	cal, err := h.Calendars.MonthCalendar(r.Context(), employeeID, year, month, now)
	if errors.Is(err, employee.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	}
	if err != nil {
		slog.Error("calendar failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "calendar_error", "failed to load calendar", reqID)
		return
	}
	api.Success(w, cal, reqID)
}
