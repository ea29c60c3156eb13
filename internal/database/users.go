package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matt-dz/streamhub/internal/user"
)

const uniqueViolation = "23505"

// Store implements user.Store and session.RefreshStore on the users table.
type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (username, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.FullName, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectUser = `
		SELECT id, username, email, full_name, password_hash, refresh_token, created_at, updated_at
		FROM users
	`

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u       user.User
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return &u, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE username = $1 OR email = $1 LIMIT 1`, identifier))
}

// GetProfile never selects the password hash or refresh token.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, username, email, full_name, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u user.User
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	n, err := s.exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	n, err := s.exec(ctx, `UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`, token, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// SwapRefreshToken relies on the row lock taken by UPDATE: of two concurrent
// swaps from the same prev, the second re-evaluates the predicate after the
// first commits and matches no row.
func (s *Store) SwapRefreshToken(ctx context.Context, userID uuid.UUID, prev, next string) (bool, error) {
	n, err := s.exec(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2 AND refresh_token = $3`,
		next, userID, prev)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	n, err := s.exec(ctx, `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
