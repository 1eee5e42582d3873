// Package handlertest holds helpers shared by the handler tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"staffledger/internal/domain/auth"
	"staffledger/internal/transport/http/middleware"
)

const Secret = "handler-test-secret"

type Registrar interface {
	RegisterRoutes(r chi.Router)
}

func Router(handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(Secret))
	for _, h := range handlers {
		h.RegisterRoutes(r)
	}
	return r
}

func Token(t *testing.T, role, userID, employeeID string) string {
	t.Helper()
	token, err := auth.GenerateToken(Secret, auth.Claims{UserID: userID, Role: role, EmployeeID: employeeID}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func Admin(t *testing.T) string {
	return Token(t, auth.RoleAdmin, "00000000-0000-0000-0000-00000000000a", "")
}

func Employee(t *testing.T, employeeID string) string {
	return Token(t, auth.RoleEmployee, "00000000-0000-0000-0000-00000000000e", employeeID)
}

func Do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return DoWithHeaders(t, h, method, path, token, body, nil)
}

func DoWithHeaders(t *testing.T, h http.Handler, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Decode(t *testing.T, rec *httptest.ResponseRecorder, data any) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("invalid data: %v", err)
		}
	}
	return env
}

func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := Decode(t, rec, nil)
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}
