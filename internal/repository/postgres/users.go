package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

// refresh_token is nullable: NULL means logged out
const userColumns = `id, created_at, username, email, full_name, password_hash, COALESCE(refresh_token, ''), avatar_url, cover_url`

const createUser = `-- name: CreateUser
INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_url)
VALUES (lower($1), lower($2), $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, arg.Username, arg.Email, arg.FullName, arg.HashedPassword, arg.AvatarURL, arg.CoverURL)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, fmt.Errorf("repo error: %w", apperrors.ErrUserAlreadyExists)
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByLogin = `-- name: GetUserByLogin
SELECT ` + userColumns + ` FROM users
WHERE username = lower($1) OR email = lower($1)
`

// GetUserByLogin matches the login against username and email at once
func (r *UserRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByLogin, login)
	return collectUser(rows)
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users SET refresh_token = $2
WHERE id = $1
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := r.DB.Exec(ctx, setRefreshToken, userID, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return nil
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users SET refresh_token = $3
WHERE id = $1 AND refresh_token = $2
`

// RotateRefreshToken compares and swaps the stored token in one statement,
// so two concurrent refresh calls can never both succeed on the same value.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, current string, next string) error {
	tag, err := r.DB.Exec(ctx, rotateRefreshToken, userID, current, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenUsed)
	}
	return nil
}

const clearRefreshToken = `-- name: ClearRefreshToken
UPDATE users SET refresh_token = NULL
WHERE id = $1
`

func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, clearRefreshToken, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return nil
}

const updatePassword = `-- name: UpdatePassword
UPDATE users SET password_hash = $2
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, userID, hashedPassword)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return nil
}

const updateAccount = `-- name: UpdateAccount
UPDATE users SET full_name = $2, email = lower($3)
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateAccount(ctx context.Context, userID uuid.UUID, arg repository.UpdateAccountParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateAccount, userID, arg.FullName, arg.Email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, fmt.Errorf("repo error: %w", apperrors.ErrUserAlreadyExists)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const setAvatarURL = `-- name: SetAvatarURL
UPDATE users SET avatar_url = $2
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setAvatarURL, userID, url)
	return collectUser(rows)
}

const setCoverURL = `-- name: SetCoverURL
UPDATE users SET cover_url = $2
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) SetCoverURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setCoverURL, userID, url)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.FullName, &u.HashedPassword, &u.RefreshToken, &u.AvatarURL, &u.CoverURL)
	return u, err
}
