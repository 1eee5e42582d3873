package audithandler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffledger/internal/domain/audit"
	"staffledger/internal/transport/http/handlers/handlertest"
)

type fakeService struct {
	filter        audit.Filter
	limit, offset int
}

func (f *fakeService) Count(ctx context.Context, filter audit.Filter) (int, error) {
	return 42, nil
}

func (f *fakeService) List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error) {
	f.filter, f.limit, f.offset = filter, limit, offset
	return []audit.Event{{
		ID:         "ev1",
		Action:     audit.ActionPaymentRecorded,
		EntityType: audit.EntityPayment,
		EntityID:   "p1",
		CreatedAt:  time.Date(2025, time.May, 1, 9, 30, 0, 0, time.UTC),
	}}, nil
}

func TestListEventsPassesFilterAndTotal(t *testing.T) {
	svc := &fakeService{}
	router := handlertest.Router(NewHandler(svc))

	rec := handlertest.Do(t, router, http.MethodGet, "/audit/events?action=payment.recorded&limit=1000&offset=5", handlertest.Admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, audit.ActionPaymentRecorded, svc.filter.Action)
	assert.Equal(t, 500, svc.limit)
	assert.Equal(t, 5, svc.offset)
}

func TestExportEventsWritesCSV(t *testing.T) {
	router := handlertest.Router(NewHandler(&fakeService{}))

	rec := handlertest.Do(t, router, http.MethodGet, "/audit/events/export", handlertest.Admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,actor_user_id,action"))
	assert.Contains(t, lines[1], "2025-05-01T09:30:00Z")
}

func TestAuditRequiresAdmin(t *testing.T) {
	router := handlertest.Router(NewHandler(&fakeService{}))
	rec := handlertest.Do(t, router, http.MethodGet, "/audit/events", handlertest.Employee(t, "e1"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
