package employee

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffledger/internal/domain/audit"
	"staffledger/internal/domain/auth"
	"staffledger/internal/platform/requestctx"
)

type fakeStore struct {
	collisions int
	enrolled   []Employee
	hashes     []string
	byID       map[string]Employee
	unnumbered []Employee
	numbers    map[string]string
}

func (f *fakeStore) Enroll(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	if f.collisions > 0 {
		f.collisions--
		return Employee{}, ErrNumberTaken
	}
	emp.ID = "emp-1"
	emp.UserID = "user-1"
	f.enrolled = append(f.enrolled, emp)
	f.hashes = append(f.hashes, passwordHash)
	if f.byID == nil {
		f.byID = map[string]Employee{}
	}
	f.byID[emp.ID] = emp
	return emp, nil
}

func (f *fakeStore) List(ctx context.Context) ([]Employee, error) { return f.enrolled, nil }

func (f *fakeStore) Get(ctx context.Context, id string) (Employee, error) {
	emp, ok := f.byID[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return emp, nil
}

func (f *fakeStore) GetByUserID(ctx context.Context, userID string) (Employee, error) {
	for _, emp := range f.byID {
		if emp.UserID == userID {
			return emp, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakeStore) ListUnnumbered(ctx context.Context) ([]Employee, error) {
	var out []Employee
	for _, emp := range f.unnumbered {
		if f.numbers[emp.ID] == "" {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (f *fakeStore) AssignNumber(ctx context.Context, id, number string) (bool, error) {
	if f.collisions > 0 {
		f.collisions--
		return false, ErrNumberTaken
	}
	if f.numbers == nil {
		f.numbers = map[string]string{}
	}
	if f.numbers[id] != "" {
		return false, nil
	}
	f.numbers[id] = number
	return true, nil
}

type countingRoster struct{ resets int }

func (c *countingRoster) Reset() { c.resets++ }

type recordedAudit struct {
	actorID, action, entityID, requestID string
}

type fakeAuditor struct{ events []recordedAudit }

func (f *fakeAuditor) Record(ctx context.Context, entry audit.Entry) error {
	actor, _ := requestctx.GetActor(ctx)
	f.events = append(f.events, recordedAudit{
		actorID:   actor.UserID,
		action:    entry.Action,
		entityID:  entry.EntityID,
		requestID: requestctx.GetRequestID(ctx),
	})
	return nil
}

func validInput() EnrollInput {
	return EnrollInput{
		Name:        " Asha Rao ",
		Email:       "Asha@Example.com",
		BaseSalary:  decimal.NewFromInt(9000),
		JoiningDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Password:    "ChangeMe123!",
	}
}

func newTestService(store *fakeStore) (*Service, *countingRoster, *fakeAuditor) {
	roster := &countingRoster{}
	auditor := &fakeAuditor{}
	svc := NewService(store, roster, auditor)
	svc.now = func() time.Time { return time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC) }
	svc.random = func(n int) int { return 42 }
	return svc, roster, auditor
}

func TestEnrollNormalisesAndHashes(t *testing.T) {
	store := &fakeStore{}
	svc, roster, auditor := newTestService(store)
	ctx := requestctx.WithActor(requestctx.WithRequestID(context.Background(), "req-1"), requestctx.Actor{UserID: "admin-1", Role: auth.RoleAdmin})

	emp, err := svc.Enroll(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, "Asha Rao", emp.Name)
	assert.Equal(t, "asha@example.com", emp.Email)
	assert.Equal(t, "EMP2503042", emp.EmployeeNumber)
	require.Len(t, store.hashes, 1)
	assert.NoError(t, auth.CheckPassword(store.hashes[0], "ChangeMe123!"))
	assert.Equal(t, 1, roster.resets)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, recordedAudit{actorID: "admin-1", action: "employee.enrolled", entityID: "emp-1", requestID: "req-1"}, auditor.events[0])
}

func TestEnrollRetriesNumberCollisions(t *testing.T) {
	store := &fakeStore{collisions: 2}
	svc, _, _ := newTestService(store)

	_, err := svc.Enroll(context.Background(), validInput())
	require.NoError(t, err)
	assert.Len(t, store.enrolled, 1)

	store = &fakeStore{collisions: numberAttempts}
	svc, roster, _ := newTestService(store)
	_, err = svc.Enroll(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrNumberSpace)
	assert.Zero(t, roster.resets)
}

func TestEnrollValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EnrollInput)
	}{
		{"missing name", func(in *EnrollInput) { in.Name = "  " }},
		{"bad email", func(in *EnrollInput) { in.Email = "not-an-email" }},
		{"zero salary", func(in *EnrollInput) { in.BaseSalary = decimal.Zero }},
		{"negative salary", func(in *EnrollInput) { in.BaseSalary = decimal.NewFromInt(-5) }},
		{"no joining date", func(in *EnrollInput) { in.JoiningDate = time.Time{} }},
		{"short password", func(in *EnrollInput) { in.Password = "short" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestService(&fakeStore{})
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Enroll(context.Background(), input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDeleteResetsRoster(t *testing.T) {
	store := &fakeStore{}
	svc, roster, auditor := newTestService(store)
	emp, err := svc.Enroll(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), emp.ID))
	assert.Equal(t, 2, roster.resets)
	assert.Equal(t, "employee.deleted", auditor.events[len(auditor.events)-1].action)

	assert.ErrorIs(t, svc.Delete(context.Background(), emp.ID), ErrNotFound)
}

func TestBackfillNumbersAssignsOnlyMissing(t *testing.T) {
	store := &fakeStore{
		unnumbered: []Employee{{ID: "legacy-1", Name: "Ravi"}, {ID: "legacy-2", Name: "Meena"}},
		numbers:    map[string]string{"legacy-2": "EMP2401001"},
		collisions: 1,
	}
	svc, roster, auditor := newTestService(store)

	assigned, err := svc.BackfillNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, Assignment{EmployeeID: "legacy-1", Name: "Ravi", EmployeeNumber: "EMP2503042"}, assigned[0])
	assert.Equal(t, "EMP2503042", store.numbers["legacy-1"])
	assert.Equal(t, "EMP2401001", store.numbers["legacy-2"])
	assert.Equal(t, 1, roster.resets)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, "employee.numbered", auditor.events[0].action)

	again, err := svc.BackfillNumbers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, roster.resets)
}

func TestBackfillNumbersGivesUpAfterCollisions(t *testing.T) {
	store := &fakeStore{
		unnumbered: []Employee{{ID: "legacy-1"}},
		collisions: numberAttempts,
	}
	svc, roster, _ := newTestService(store)

	assigned, err := svc.BackfillNumbers(context.Background())
	assert.ErrorIs(t, err, ErrNumberSpace)
	assert.Empty(t, assigned)
	assert.Zero(t, roster.resets)
}

func TestNewEmployeeNumberFormat(t *testing.T) {
	got := NewEmployeeNumber(time.Date(2031, time.November, 2, 0, 0, 0, 0, time.UTC), func(int) int { return 7 })
	assert.Equal(t, "EMP3111007", got)
	assert.Regexp(t, `^EMP\d{7}$`, NewEmployeeNumber(time.Now(), nil))
}

func TestAccrualProjection(t *testing.T) {
	emp := Employee{ID: "e1", Name: "Asha", BaseSalary: decimal.NewFromInt(100), JoiningDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	acc := emp.Accrual()
	assert.Equal(t, "e1", acc.ID)
	assert.True(t, acc.BaseSalary.Equal(emp.BaseSalary))
}
