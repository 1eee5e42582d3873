package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"staffledger/internal/domain/auth"
	"staffledger/internal/platform/config"
	"staffledger/internal/platform/querier"
)

// Seed creates the administrator account named by SEED_ADMIN_EMAIL when it
// does not exist yet.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	return ensureAdminUser(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureAdminUser(ctx context.Context, db querier.Querier, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1, $2, $3)
    ON CONFLICT (email) DO NOTHING
  `, email, hash, auth.RoleAdmin)
	return err
}
