package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-dz/streamhub/internal/user"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(db), mock
}

var userColumns = []string{
	"id", "username", "email", "full_name", "password_hash", "refresh_token", "created_at", "updated_at",
}

func TestCreate(t *testing.T) {
	q := `(?s)^\s*INSERT\s+INTO\s+users\s*\(username,\s*email,\s*full_name,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	t.Run("success", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		id := uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(q).
			WithArgs("alice", "alice@example.com", "Alice", "hash").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id.String(), now, now))

		u := &user.User{Username: "alice", Email: "alice@example.com", FullName: "Alice", PasswordHash: "hash"}
		require.NoError(t, store.Create(context.Background(), u))
		assert.Equal(t, id, u.ID)
		assert.Equal(t, now, u.CreatedAt)
	})

	t.Run("unique violation", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		err := store.Create(context.Background(), &user.User{Username: "alice"})
		assert.ErrorIs(t, err, user.ErrConflict)
	})

	t.Run("db error", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("db down"))

		err := store.Create(context.Background(), &user.User{Username: "alice"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, user.ErrConflict)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestGetByIdentifier(t *testing.T) {
	q := `(?s)SELECT\s+id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$1`

	t.Run("found with refresh token", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(q).
			WithArgs("alice@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(id.String(), "alice", "alice@example.com", "Alice", "hash", "tok", now, now))

		got, err := store.GetByIdentifier(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
		require.NotNil(t, got.RefreshToken)
		assert.Equal(t, "tok", *got.RefreshToken)
	})

	t.Run("found without refresh token", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		now := time.Now().UTC()
		mock.ExpectQuery(q).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(uuid.NewString(), "alice", "alice@example.com", "Alice", "hash", nil, now, now))

		got, err := store.GetByIdentifier(context.Background(), "alice")
		require.NoError(t, err)
		assert.Nil(t, got.RefreshToken)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

		_, err := store.GetByIdentifier(context.Background(), "ghost")
		assert.ErrorIs(t, err, user.ErrNotFound)
	})
}

func TestGetByID(t *testing.T) {
	q := `(?s)SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`
	store, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(q).WithArgs(id.String()).WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestGetProfile(t *testing.T) {
	q := `(?s)^\s*SELECT\s+id,\s*username,\s*email,\s*full_name,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	store, mock := newStoreWithMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(q).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "full_name", "created_at", "updated_at"}).
			AddRow(id.String(), "alice", "alice@example.com", "Alice", now, now))

	got, err := store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.PasswordHash)
	assert.Nil(t, got.RefreshToken)
}

func TestSwapRefreshToken(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$2\s+AND\s+refresh_token\s*=\s*\$3$`
	id := uuid.New()

	tests := []struct {
		name     string
		affected int64
		err      error
		want     bool
		wantErr  bool
	}{
		{name: "current token", affected: 1, want: true},
		{name: "superseded token", affected: 0, want: false},
		{name: "db error", err: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newStoreWithMock(t)
			exp := mock.ExpectExec(q).WithArgs("next", id.String(), "prev")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			got, err := store.SwapRefreshToken(context.Background(), id, "prev", "next")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetAndClearRefreshToken(t *testing.T) {
	id := uuid.New()

	t.Run("set", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1`).
			WithArgs("tok", id.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, store.SetRefreshToken(context.Background(), id, "tok"))
	})

	t.Run("set unknown user", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, store.SetRefreshToken(context.Background(), id, "tok"), user.ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token\s*=\s*NULL`).
			WithArgs(id.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, store.ClearRefreshToken(context.Background(), id))
	})
}

func TestUpdatePasswordHash(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1`).
		WithArgs("new-hash", id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdatePasswordHash(context.Background(), id, "new-hash"))
}

func TestMigrate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	called := false
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.True(t, called)
}

func TestMigrateError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying migrations")
}

func TestConnString(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
	}{
		{name: "plain", user: "app", password: "secret"},
		{name: "special characters", user: "app", password: "p@ss/w#rd:?%"},
		{name: "special user", user: "a@pp", password: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := ConnString("db", 5432, tt.user, tt.password, "streamhub")

			parsed, err := url.Parse(dsn)
			require.NoError(t, err)
			assert.Equal(t, "postgres", parsed.Scheme)
			assert.Equal(t, "db:5432", parsed.Host)
			assert.Equal(t, "/streamhub", parsed.Path)
			assert.Equal(t, tt.user, parsed.User.Username())
			password, ok := parsed.User.Password()
			assert.True(t, ok)
			assert.Equal(t, tt.password, password)

			cfg, err := pgconn.ParseConfig(dsn)
			require.NoError(t, err)
			assert.Equal(t, "db", cfg.Host)
			assert.Equal(t, uint16(5432), cfg.Port)
			assert.Equal(t, tt.user, cfg.User)
			assert.Equal(t, tt.password, cfg.Password)
			assert.Equal(t, "streamhub", cfg.Database)
		})
	}
}
