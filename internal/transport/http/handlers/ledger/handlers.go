package ledgerhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"staffledger/internal/domain/auth"
	"staffledger/internal/domain/employee"
	"staffledger/internal/domain/ledger"
	"staffledger/internal/transport/http/api"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Service interface {
	RecordAdvance(ctx context.Context, employeeID string, input ledger.AdvanceInput) (ledger.Advance, error)
	RecordPayment(ctx context.Context, employeeID string, input ledger.PaymentInput) (ledger.Payment, error)
	ListAdvances(ctx context.Context, employeeID string) ([]ledger.Advance, error)
	Transactions(ctx context.Context, employeeID string, filter ledger.Filter) ([]ledger.Transaction, error)
}

type TransactionLister interface {
	Transactions(ctx context.Context, employeeID string, filter ledger.Filter) ([]ledger.Transaction, error)
}

type Handler struct {
	Service  Service
	Replayer middleware.Replayer
}

// NewHandler builds the ledger routes. A nil replayer disables
// Idempotency-Key handling on payments.
func NewHandler(service Service, replayer middleware.Replayer) *Handler {
	return &Handler{Service: service, Replayer: replayer}
}

type advanceRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Date   string          `json:"date"`
	Note   string          `json:"note" validate:"max=500"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Date   string          `json:"date"`
	Month  *int            `json:"month" validate:"omitempty,gte=0,lte=11"`
	Year   *int            `json:"year" validate:"omitempty,gt=0"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admin := r.With(middleware.RequireRole(auth.RoleAdmin))
	admin.Get("/employees/{employeeID}/advances", h.handleListAdvances)
	admin.Post("/employees/{employeeID}/advances", h.handleRecordAdvance)
	admin.With(middleware.Idempotent(h.Replayer)).Post("/employees/{employeeID}/payments", h.handleRecordPayment)
	admin.Get("/employees/{employeeID}/transactions", h.handleTransactions)
}

func (h *Handler) handleRecordAdvance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	var payload advanceRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	date := v.OptionalDate("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}
	created, err := h.Service.RecordAdvance(r.Context(), employeeID, ledger.AdvanceInput{
		Amount: payload.Amount,
		Date:   date,
		Note:   payload.Note,
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	var payload paymentRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	date := v.OptionalDate("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}
	created, err := h.Service.RecordPayment(r.Context(), employeeID, ledger.PaymentInput{
		Amount: payload.Amount,
		Date:   date,
		Month:  payload.Month,
		Year:   payload.Year,
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleListAdvances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	advances, err := h.Service.ListAdvances(r.Context(), employeeID)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if advances == nil {
		advances = []ledger.Advance{}
	}
	api.Success(w, advances, reqID)
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := shared.PathID(w, r, "employeeID", reqID)
	if !ok {
		return
	}
	WriteTransactions(w, r, h.Service, employeeID)
}

// WriteTransactions serves an employee statement filtered by the optional
// year and month query parameters.
func WriteTransactions(w http.ResponseWriter, r *http.Request, service TransactionLister, employeeID string) {
	reqID := middleware.GetRequestID(r.Context())
	year, month, v := shared.OptionalPeriod(r)
	if v.Reject(w, reqID) {
		return
	}
	txns, err := service.Transactions(r.Context(), employeeID, ledger.Filter{Year: year, Month: month})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}
	api.Success(w, txns, reqID)
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, ledger.ErrInvalidAmount):
		api.Fail(w, http.StatusBadRequest, "validation_error", "amount must be greater than zero", reqID)
	case errors.Is(err, ledger.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "validation_error", "invalid period", reqID)
	default:
		slog.Error("ledger request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "ledger_error", "ledger request failed", reqID)
	}
}
