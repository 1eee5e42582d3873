package auth

import (
	"context"

	"github.com/jackc/pgx/v5"

	"staffledger/internal/platform/querier"
)

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	FindUser(ctx context.Context, userID string) (User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const userColumns = `
    SELECT u.id, u.email, u.role, COALESCE(e.id::text, ''), u.password_hash, u.mfa_enabled, u.mfa_secret_enc
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
`

// FindActiveUserByEmail returns pgx.ErrNoRows for unknown or disabled users.
func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, userColumns+" WHERE u.email = $1 AND u.status = $2", email, UserStatusActive))
}

func (s *Store) FindUser(ctx context.Context, userID string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, userColumns+" WHERE u.id = $1", userID))
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.EmployeeID, &u.PasswordHash, &u.MFAEnabled, &u.MFASecretEnc)
	return u, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}
