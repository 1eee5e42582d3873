package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"staffledger/internal/platform/requestctx"
)

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte("payload"))
	hash2 := RequestHash([]byte("payload"))
	hash3 := RequestHash([]byte("other"))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

type memoryReplayer struct {
	entries map[string]struct {
		hash     string
		response json.RawMessage
	}
}

func (m *memoryReplayer) Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	entry, ok := m.entries[userID+endpoint+key]
	if !ok {
		return nil, false, nil
	}
	if entry.hash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return entry.response, true, nil
}

func (m *memoryReplayer) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if m.entries == nil {
		m.entries = map[string]struct {
			hash     string
			response json.RawMessage
		}{}
	}
	m.entries[userID+endpoint+key] = struct {
		hash     string
		response json.RawMessage
	}{requestHash, response}
	return nil
}

func TestIdempotentReplaysFirstResponse(t *testing.T) {
	calls := 0
	handler := Idempotent(&memoryReplayer{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"pay-1"}}`))
	}))
	ctx := requestctx.WithActor(context.Background(), requestctx.Actor{UserID: "u1", Role: "admin"})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/employees/e1/payments", bytes.NewBufferString(body)).WithContext(ctx)
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"amount":"100"}`)
	second := send(`{"amount":"100"}`)
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies, got %q and %q", first.Body.String(), second.Body.String())
	}

	conflict := send(`{"amount":"200"}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", conflict.Code)
	}
}

func TestIdempotentSkipsFailures(t *testing.T) {
	calls := 0
	handler := Idempotent(&memoryReplayer{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	ctx := requestctx.WithActor(context.Background(), requestctx.Actor{UserID: "u1", Role: "admin"})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/employees/e1/payments", bytes.NewBufferString(`{}`)).WithContext(ctx)
		req.Header.Set(IdempotencyHeader, "key-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected failed responses not to be stored, got %d calls", calls)
	}
}
