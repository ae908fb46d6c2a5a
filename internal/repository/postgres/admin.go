package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
)

type AdminRepo struct {
	DB DBTX
}

const createAdmin = `-- name: CreateAdmin
INSERT INTO admins (id, username, password_hash)
VALUES ($1, $2, $3)
RETURNING id, created_at, username, password_hash
`

func (r *AdminRepo) CreateAdmin(ctx context.Context, username string, hashedPassword string) (models.Admin, error) {
	rows, _ := r.DB.Query(ctx, createAdmin, uuid.New(), username, hashedPassword)
	admin, err := pgx.CollectOneRow(rows, rowToAdmin)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return admin, apperrors.ErrAdminAlreadyExists
		}

		return admin, fmt.Errorf("db error: %w", err)
	}

	return admin, nil
}

func (r *AdminRepo) GetAdminByID(ctx context.Context, adminID uuid.UUID) (models.Admin, error) {
	const getAdminByID = `
	SELECT id, created_at, username, password_hash FROM admins
	WHERE id = $1
	`

	rows, _ := r.DB.Query(ctx, getAdminByID, adminID)
	return collectAdmin(rows)
}

func (r *AdminRepo) GetAdminByUsername(ctx context.Context, username string) (models.Admin, error) {
	const getAdminByUsername = `
	SELECT id, created_at, username, password_hash FROM admins
	WHERE username = $1
	`

	rows, _ := r.DB.Query(ctx, getAdminByUsername, username)
	return collectAdmin(rows)
}

func collectAdmin(rows pgx.Rows) (models.Admin, error) {
	admin, err := pgx.CollectOneRow(rows, rowToAdmin)

	switch {
	case err == nil:
		return admin, nil
	case errors.Is(err, pgx.ErrNoRows):
		return admin, apperrors.ErrAdminNotFound
	default:
		return admin, fmt.Errorf("db error: %w", err)
	}
}

func rowToAdmin(row pgx.CollectableRow) (models.Admin, error) {
	var a models.Admin
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Username, &a.HashedPassword)
	return a, err
}
