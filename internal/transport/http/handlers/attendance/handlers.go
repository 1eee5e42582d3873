package attendancehandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/attendance"
	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/employee"
	"staffledger/internal/transport/http/api"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Service interface {
	Mark(ctx context.Context, employeeID string, now time.Time, mfaCode string) (attendance.Record, error)
	Today(ctx context.Context, now time.Time) ([]attendance.Record, error)
	OnDate(ctx context.Context, date time.Time) ([]attendance.Record, error)
	MonthCalendar(ctx context.Context, employeeID string, year, month int, today time.Time) (attendance.Calendar, error)
}

type Handler struct {
	Service  Service
	Location *time.Location
	Now      func() time.Time
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{Service: service, Location: loc, Now: time.Now}
}

type markRequest struct {
	MFACode string `json:"mfaCode"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(auth.RoleEmployee)).Post("/attendance", h.handleMark)
	admin := r.With(middleware.RequireRole(auth.RoleAdmin))
	admin.Get("/attendance", h.handleOnDate)
	admin.Get("/attendance/today", h.handleToday)
	admin.Get("/employees/{employeeID}/calendar", h.handleCalendar)
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_profile", "account has no employee profile", reqID)
		return
	}
	var payload markRequest
	if err := api.Decode(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	rec, err := h.Service.Mark(r.Context(), user.EmployeeID, h.Now(), strings.TrimSpace(payload.MFACode))
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, rec, reqID)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	records, err := h.Service.Today(r.Context(), h.Now())
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, nonNil(records), reqID)
}

func (h *Handler) handleOnDate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	date, _ := v.Date("date", r.URL.Query().Get("date"))
	if v.Reject(w, reqID) {
		return
	}
	records, err := h.Service.OnDate(r.Context(), date)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, nonNil(records), reqID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	now := h.Now()
	year, month, v := shared.Period(r, now, h.Location)
	if v.Reject(w, reqID) {
		return
	}
	cal, err := h.Service.MonthCalendar(r.Context(), employeeID, year, month, now)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, cal, reqID)
}

func nonNil(records []attendance.Record) []attendance.Record {
	if records == nil {
		return []attendance.Record{}
	}
	return records
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyMarked):
		api.Fail(w, http.StatusConflict, "already_marked", "attendance already marked today", reqID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
	case errors.Is(err, auth.ErrMFAInvalid), errors.Is(err, auth.ErrMFANotSetup):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, attendance.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "validation_error", "invalid period", reqID)
	default:
		slog.Error("attendance request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "attendance_error", "attendance request failed", reqID)
	}
}
