package ledgerhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffledger/internal/domain/employee"
	"staffledger/internal/domain/ledger"
	"staffledger/internal/transport/http/handlers/handlertest"
	"staffledger/internal/transport/http/middleware"
)

const knownID = "11111111-1111-1111-1111-111111111111"

type fakeService struct {
	payments []ledger.PaymentInput
	advances []ledger.AdvanceInput
	filter   ledger.Filter
}

func (f *fakeService) RecordAdvance(ctx context.Context, id string, input ledger.AdvanceInput) (ledger.Advance, error) {
	if id != knownID {
		return ledger.Advance{}, employee.ErrNotFound
	}
	f.advances = append(f.advances, input)
	return ledger.Advance{ID: "a1", EmployeeID: id, Amount: input.Amount, Date: input.Date, Note: input.Note}, nil
}

func (f *fakeService) RecordPayment(ctx context.Context, id string, input ledger.PaymentInput) (ledger.Payment, error) {
	if id != knownID {
		return ledger.Payment{}, employee.ErrNotFound
	}
	f.payments = append(f.payments, input)
	return ledger.Payment{ID: "p1", EmployeeID: id, AmountPaid: input.Amount, Month: input.Month, Year: input.Year}, nil
}

func (f *fakeService) ListAdvances(ctx context.Context, id string) ([]ledger.Advance, error) {
	return nil, nil
}

func (f *fakeService) Transactions(ctx context.Context, id string, filter ledger.Filter) ([]ledger.Transaction, error) {
	f.filter = filter
	return []ledger.Transaction{{ID: "p1", Kind: ledger.KindPayment, Amount: decimal.NewFromInt(100)}}, nil
}

type memoryReplayer struct {
	hashes    map[string]string
	responses map[string]json.RawMessage
}

func newReplayer() *memoryReplayer {
	return &memoryReplayer{hashes: map[string]string{}, responses: map[string]json.RawMessage{}}
}

func (m *memoryReplayer) Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	id := userID + endpoint + key
	hash, ok := m.hashes[id]
	if !ok {
		return nil, false, nil
	}
	if hash != requestHash {
		return nil, false, middleware.ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *memoryReplayer) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	id := userID + endpoint + key
	m.hashes[id] = requestHash
	m.responses[id] = response
	return nil
}

func TestRecordAdvance(t *testing.T) {
	svc := &fakeService{}
	router := handlertest.Router(NewHandler(svc, nil))

	rec := handlertest.Do(t, router, http.MethodPost, "/employees/"+knownID+"/advances", handlertest.Admin(t),
		map[string]any{"amount": "250.50", "date": "2025-03-04", "note": "rent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, svc.advances, 1)
	assert.True(t, svc.advances[0].Amount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC), svc.advances[0].Date)

	rec = handlertest.Do(t, router, http.MethodPost, "/employees/"+knownID+"/advances", handlertest.Admin(t),
		map[string]any{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = handlertest.Do(t, router, http.MethodPost, "/employees/22222222-2222-2222-2222-222222222222/advances", handlertest.Admin(t),
		map[string]any{"amount": "10"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordPaymentValidatesPeriod(t *testing.T) {
	svc := &fakeService{}
	router := handlertest.Router(NewHandler(svc, nil))

	rec := handlertest.Do(t, router, http.MethodPost, "/employees/"+knownID+"/payments", handlertest.Admin(t),
		map[string]any{"amount": "100", "month": 12, "year": 2025})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.payments)

	rec = handlertest.Do(t, router, http.MethodPost, "/employees/"+knownID+"/payments", handlertest.Admin(t),
		map[string]any{"amount": "100", "month": 0, "year": 2025})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.payments, 1)
	assert.Equal(t, 0, *svc.payments[0].Month)
	assert.True(t, svc.payments[0].Date.IsZero())
}

func TestRecordPaymentReplaysIdempotencyKey(t *testing.T) {
	svc := &fakeService{}
	router := handlertest.Router(NewHandler(svc, newReplayer()))
	token := handlertest.Admin(t)

	do := func(amount string) (int, string) {
		rec := handlertest.DoWithHeaders(t, router, http.MethodPost, "/employees/"+knownID+"/payments", token,
			map[string]any{"amount": amount}, map[string]string{middleware.IdempotencyHeader: "pay-1"})
		return rec.Code, rec.Header().Get("Idempotent-Replayed")
	}

	code, replayed := do("100")
	assert.Equal(t, http.StatusCreated, code)
	assert.Empty(t, replayed)

	code, replayed = do("100")
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "true", replayed)
	assert.Len(t, svc.payments, 1)

	code, _ = do("200")
	assert.Equal(t, http.StatusConflict, code)
	assert.Len(t, svc.payments, 1)
}

func TestTransactionsFilter(t *testing.T) {
	svc := &fakeService{}
	router := handlertest.Router(NewHandler(svc, nil))

	rec := handlertest.Do(t, router, http.MethodGet, "/employees/"+knownID+"/transactions?year=2025&month=2", handlertest.Admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.Year)
	require.NotNil(t, svc.filter.Month)
	assert.Equal(t, 2025, *svc.filter.Year)
	assert.Equal(t, 2, *svc.filter.Month)

	rec = handlertest.Do(t, router, http.MethodGet, "/employees/"+knownID+"/transactions", handlertest.Admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.filter.Year)

	rec = handlertest.Do(t, router, http.MethodGet, "/employees/"+knownID+"/transactions", handlertest.Employee(t, knownID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
