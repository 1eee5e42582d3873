package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"staffledger/internal/platform/querier"
	"staffledger/internal/platform/requestctx"
)

const (
	ActionAdvanceRecorded  = "advance.recorded"
	ActionPaymentRecorded  = "payment.recorded"
	ActionEmployeeEnrolled = "employee.enrolled"
	ActionEmployeeDeleted  = "employee.deleted"
	ActionEmployeeNumbered = "employee.numbered"

	EntityAdvance  = "advance"
	EntityPayment  = "payment"
	EntityEmployee = "employee"
)

// Entry is one write to be recorded. The actor, request id and client address
// are taken from the request context.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

// Service is the append-only audit trail of writes to employees and the
// salary ledger.
type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	before, err := marshalOptional(entry.Before)
	if err != nil {
		return err
	}
	after, err := marshalOptional(entry.After)
	if err != nil {
		return err
	}
	actor, _ := requestctx.GetActor(ctx)
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
  `, actor.UserID, entry.Action, entry.EntityType, entry.EntityID, before, after,
		requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx))
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.where()
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total)
	return total, err
}

// List returns events newest first. Before/after snapshots are loaded only
// when includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	cols := "id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id, COALESCE(request_id, ''), COALESCE(ip, ''), created_at"
	if includeDetails {
		cols += ", before_json, after_json"
	}
	where, args := filter.where()
	args = append(args, limit, offset)
	query := "SELECT " + cols + " FROM audit_events" + where +
		" ORDER BY created_at DESC, id LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includeDetails {
			dest = append(dest, &evt.Before, &evt.After)
		}
		return evt, row.Scan(dest...)
	})
	if events == nil {
		events = []Event{}
	}
	return events, err
}

// where renders the non-empty filter fields as a WHERE clause with numbered
// placeholders.
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"action", f.Action},
		{"entity_type", f.EntityType},
		{"entity_id", f.EntityID},
		{"actor_user_id::text", f.ActorUser},
	} {
		if c.value == "" {
			continue
		}
		args = append(args, c.value)
		conds = append(conds, c.column+" = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalOptional(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}
