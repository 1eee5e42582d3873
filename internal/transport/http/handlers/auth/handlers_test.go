package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/auth"
	"staffledger/internal/transport/http/middleware"
)

const secret = "test-secret"

type fakeService struct {
	loginErr   error
	setupFor   string
	enableCode string
}

func (f *fakeService) Login(ctx context.Context, email, password, mfaCode string) (auth.LoginResult, error) {
	if f.loginErr != nil {
		return auth.LoginResult{}, f.loginErr
	}
	return auth.LoginResult{Token: "tok", User: auth.User{ID: "u1", Email: email, Role: auth.RoleAdmin}}, nil
}

func (f *fakeService) User(ctx context.Context, userID string) (auth.User, error) {
	return auth.User{ID: userID, Email: "admin@example.com"}, nil
}

func (f *fakeService) SetupMFA(ctx context.Context, userID, accountName string) (auth.MFASetup, error) {
	f.setupFor = accountName
	return auth.MFASetup{Secret: "SECRET", OTPAuthURL: "otpauth://totp/x"}, nil
}

func (f *fakeService) EnableMFA(ctx context.Context, userID, code string) error {
	f.enableCode = code
	if code != "123456" {
		return auth.ErrMFAInvalid
	}
	return nil
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(secret))
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", Role: auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return "Bearer " + token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return env
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		loginErr error
		want     int
		wantCode string
	}{
		{"success", `{"email":"a@example.com","password":"pw"}`, nil, http.StatusOK, ""},
		{"missing password", `{"email":"a@example.com"}`, nil, http.StatusBadRequest, "validation_error"},
		{"unknown field", `{"email":"a@example.com","password":"pw","tenant":"x"}`, nil, http.StatusBadRequest, "invalid_payload"},
		{"bad credentials", `{"email":"a@example.com","password":"pw"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"mfa required", `{"email":"a@example.com","password":"pw"}`, auth.ErrMFARequired, http.StatusUnauthorized, "mfa_required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&fakeService{loginErr: tc.loginErr})
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.wantCode != "" {
				errBody, _ := decodeEnvelope(t, rec)["error"].(map[string]any)
				if errBody["code"] != tc.wantCode {
					t.Fatalf("expected code %s, got %v", tc.wantCode, errBody["code"])
				}
			}
		})
	}
}

func TestMFASetupUsesAccountEmail(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/auth/mfa/setup", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.setupFor != "admin@example.com" {
		t.Fatalf("unexpected account name %q", svc.setupFor)
	}
}

func TestMFAEnable(t *testing.T) {
	router := newRouter(&fakeService{})

	anonymous := httptest.NewRequest(http.MethodPost, "/auth/mfa/enable", bytes.NewBufferString(`{"code":"123456"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, anonymous)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	wrong := httptest.NewRequest(http.MethodPost, "/auth/mfa/enable", bytes.NewBufferString(`{"code":"000000"}`))
	wrong.Header.Set("Authorization", bearer(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, wrong)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", rec.Code)
	}

	right := httptest.NewRequest(http.MethodPost, "/auth/mfa/enable", bytes.NewBufferString(`{"code":" 123456 "}`))
	right.Header.Set("Authorization", bearer(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, right)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
