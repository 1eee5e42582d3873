package employeehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/employee"
	"staffledger/internal/transport/http/api"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Service interface {
	Enroll(ctx context.Context, input employee.EnrollInput) (employee.Employee, error)
	List(ctx context.Context) ([]employee.Employee, error)
	Get(ctx context.Context, employeeID string) (employee.Employee, error)
	Delete(ctx context.Context, employeeID string) error
	BackfillNumbers(ctx context.Context) ([]employee.Assignment, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type enrollRequest struct {
	Name        string          `json:"name" validate:"notblank,max=200"`
	Email       string          `json:"email" validate:"required,email"`
	Phone       string          `json:"phone" validate:"max=32"`
	NationalID  string          `json:"nationalId" validate:"max=64"`
	BaseSalary  decimal.Decimal `json:"baseSalary" validate:"gt=0"`
	JoiningDate string          `json:"joiningDate"`
	Password    string          `json:"password" validate:"required,min=8"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admin := r.With(middleware.RequireRole(auth.RoleAdmin))
	admin.Get("/employees", h.handleList)
	admin.Post("/employees", h.handleEnroll)
	admin.Post("/employees/backfill-numbers", h.handleBackfillNumbers)
	admin.Get("/employees/{employeeID}", h.handleGet)
	admin.Delete("/employees/{employeeID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employees, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if employees == nil {
		employees = []employee.Employee{}
	}
	api.Success(w, employees, reqID)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload enrollRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	joined, _ := v.Date("joiningDate", payload.JoiningDate)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Enroll(r.Context(), employee.EnrollInput{
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		NationalID:  payload.NationalID,
		BaseSalary:  payload.BaseSalary,
		JoiningDate: joined,
		Password:    payload.Password,
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	emp, err := h.Service.Get(r.Context(), employeeID)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), employeeID); err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": employeeID, "status": "deleted"}, reqID)
}

func (h *Handler) handleBackfillNumbers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	assigned, err := h.Service.BackfillNumbers(r.Context())
	if err != nil {
		slog.Warn("employee number backfill stopped", "assigned", len(assigned), "err", err, "requestId", reqID)
		writeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]any{"updated": len(assigned), "employees": assigned}, reqID)
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrInvalidInput):
		message := strings.TrimPrefix(err.Error(), employee.ErrInvalidInput.Error()+": ")
		api.Fail(w, http.StatusBadRequest, "validation_error", message, reqID)
	case errors.Is(err, employee.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, employee.ErrNumberSpace):
		api.Fail(w, http.StatusServiceUnavailable, "number_unavailable", "could not allocate an employee number, retry", reqID)
	default:
		slog.Error("employee request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "employee_error", "employee request failed", reqID)
	}
}
