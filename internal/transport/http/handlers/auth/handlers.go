package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/auth"
	"staffledger/internal/transport/http/api"
	"staffledger/internal/transport/http/middleware"
	"staffledger/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.LoginResult, error)
	User(ctx context.Context, userID string) (auth.User, error)
	SetupMFA(ctx context.Context, userID, accountName string) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, userID, code string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type loginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"notblank"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.With(middleware.RequireAuth).Post("/auth/mfa/setup", h.HandleMFASetup)
	r.With(middleware.RequireAuth).Post("/auth/mfa/enable", h.HandleMFAEnable)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := api.Decode(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password, strings.TrimSpace(payload.MFACode))
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	account, err := h.Service.User(r.Context(), user.UserID)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user.UserID, account.Email)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, setup, reqID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if err := api.Decode(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Service.EnableMFA(r.Context(), user.UserID, strings.TrimSpace(payload.Code)); err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]bool{"mfaEnabled": true}, reqID)
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
	case errors.Is(err, auth.ErrMFANotSetup):
		api.Fail(w, http.StatusBadRequest, "mfa_not_setup", "mfa setup required", reqID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa requires an encryption key", reqID)
	case errors.Is(err, auth.ErrUserNotFound):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "account no longer exists", reqID)
	default:
		slog.Error("auth request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "auth_error", "authentication failed", reqID)
	}
}
