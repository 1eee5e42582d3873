package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffledger/internal/platform/requestctx"
)

type capturingDB struct {
	sql  string
	args []any
}

func (c *capturingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql, c.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (c *capturingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *capturingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestRecordTakesActorAndRequestFromContext(t *testing.T) {
	db := &capturingDB{}
	ctx := requestctx.WithActor(context.Background(), requestctx.Actor{UserID: "u-admin", Role: "admin"})
	ctx = requestctx.WithRequestID(ctx, "req-7")
	ctx = requestctx.WithClientIP(ctx, "198.51.100.4")

	err := New(db).Record(ctx, Entry{
		Action:     ActionAdvanceRecorded,
		EntityType: EntityAdvance,
		EntityID:   "a1",
		After:      map[string]string{"amount": "250.00"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{"u-admin", ActionAdvanceRecorded, EntityAdvance, "a1"}
	for i, v := range want {
		if db.args[i] != v {
			t.Fatalf("arg %d: expected %v, got %v", i, v, db.args[i])
		}
	}
	if db.args[4] != nil && len(db.args[4].([]byte)) != 0 {
		t.Fatalf("expected no before snapshot, got %v", db.args[4])
	}
	if string(db.args[5].([]byte)) != `{"amount":"250.00"}` {
		t.Fatalf("unexpected after snapshot %s", db.args[5])
	}
	if db.args[6] != "req-7" || db.args[7] != "198.51.100.4" {
		t.Fatalf("unexpected request context args %v", db.args[6:])
	}
}

func TestFilterWhereEmpty(t *testing.T) {
	query, args := Filter{}.where()
	if query != "" || args != nil {
		t.Fatalf("expected no clause, got %q %v", query, args)
	}
}

func TestFilterWhereNumbersPlaceholders(t *testing.T) {
	query, args := Filter{Action: ActionPaymentRecorded, EntityID: "p1"}.where()
	if query != " WHERE action = $1 AND entity_id = $2" {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 2 || args[0] != ActionPaymentRecorded || args[1] != "p1" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestMarshalOptional(t *testing.T) {
	raw, err := marshalOptional(nil)
	if err != nil || raw != nil {
		t.Fatalf("expected nil for nil value, got %q %v", raw, err)
	}
	raw, err = marshalOptional(map[string]string{"amount": "10.00"})
	if err != nil || string(raw) != `{"amount":"10.00"}` {
		t.Fatalf("unexpected json %q %v", raw, err)
	}
}
