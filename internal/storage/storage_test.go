// internal/storage/storage_test.go
package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseURL(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		wantDialect Dialect
		wantDSN     string
		wantErr     bool
	}{
		{"sqlite relative", "sqlite:///./data/app.db", DialectSQLite, "./data/app.db", false},
		{"sqlite absolute", "sqlite:////var/lib/app.db", DialectSQLite, "/var/lib/app.db", false},
		{"sqlite two slashes", "sqlite://data/app.db", DialectSQLite, "data/app.db", false},
		{"sqlite3 scheme", "sqlite3:///app.db", DialectSQLite, "app.db", false},
		{"sqlite memory", "sqlite://", DialectSQLite, ":memory:", false},
		{"bare path", "data/app.db", DialectSQLite, "data/app.db", false},
		{"file uri", "file:test.db?cache=shared", DialectSQLite, "file:test.db?cache=shared", false},
		{"postgres", "postgres://u:p@db:5432/app?sslmode=disable", DialectPostgres, "postgres://u:p@db:5432/app?sslmode=disable", false},
		{"postgresql", "postgresql://u:p@db/app", DialectPostgres, "postgres://u:p@db/app", false},
		{"postgresql with driver", "postgresql+psycopg2://u:p@db/app", DialectPostgres, "postgres://u:p@db/app", false},
		{"mysql unsupported", "mysql://u:p@db/app", "", "", true},
		{"empty", "  ", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dialect, dsn, err := ParseDatabaseURL(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedDatabaseURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantDialect, dialect)
			assert.Equal(t, tc.wantDSN, dsn)
		})
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM users WHERE email = ? AND user_id = ?`

	sqlite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, q, sqlite.Rebind(q))

	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, `SELECT * FROM users WHERE email = $1 AND user_id = $2`, pg.Rebind(q))
}

// testDBSetup creates a temporary SQLite DB and returns the pool.
func testDBSetup(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "test_users.db")
	db, err := Connect(context.Background(), "sqlite:///"+dbPath)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return db
}

func TestUserRepositorySQLite(t *testing.T) {
	db := testDBSetup(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, " alice ", "Alice@Example.com ", "hash-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserId)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "alice@example.com", created.Email)

	t.Run("find by email is case insensitive", func(t *testing.T) {
		found, err := repo.FindUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.UserId, found.UserId)
		assert.Equal(t, "hash-1", found.PasswordHash)
		assert.WithinDuration(t, created.CreatedAt, found.CreatedAt, time.Second)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindUserByID(ctx, created.UserId)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", found.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, "alice2", "alice@example.com", "hash-2")
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.FindUserByID(ctx, "missing-id")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, repo.UpdatePasswordHash(ctx, created.UserId, "hash-updated"))
		found, err := repo.FindUserByID(ctx, created.UserId)
		require.NoError(t, err)
		assert.Equal(t, "hash-updated", found.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, "missing-id", "x"), ErrUserNotFound)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, db.HealthCheck(ctx))
	})
}

func TestConnectInMemory(t *testing.T) {
	db, err := Connect(context.Background(), "sqlite://")
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	_, err = repo.CreateUser(context.Background(), "bob", "bob@example.com", "hash")
	require.NoError(t, err)
	_, err = repo.FindUserByEmail(context.Background(), "bob@example.com")
	assert.NoError(t, err)
}

func TestConnectUnsupportedScheme(t *testing.T) {
	_, err := Connect(context.Background(), "mongodb://localhost/app")
	assert.ErrorIs(t, err, ErrUnsupportedDatabaseURL)
}

func newPostgresMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{DB: sqlDB, Dialect: DialectPostgres}, mock
}

func TestUserRepositoryPostgresDialect(t *testing.T) {
	insertSQL := regexp.QuoteMeta(`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`)
	selectByEmailSQL := regexp.QuoteMeta(`SELECT user_id, username, email, password_hash, created_at FROM users WHERE email = $1 LIMIT 1`)
	columns := []string{"user_id", "username", "email", "password_hash", "created_at"}

	t.Run("create", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectExec(insertSQL).
			WithArgs(sqlmock.AnyArg(), "carol", "carol@example.com", "hash", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := NewUserRepository(db).CreateUser(context.Background(), "carol", "carol@example.com", "hash")
		require.NoError(t, err)
		assert.NotEmpty(t, user.UserId)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectExec(insertSQL).WillReturnError(&pq.Error{Code: pqUniqueViolation})

		_, err := NewUserRepository(db).CreateUser(context.Background(), "carol", "carol@example.com", "hash")
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		now := time.Now().UTC()
		mock.ExpectQuery(selectByEmailSQL).
			WithArgs("carol@example.com").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("id-1", "carol", "carol@example.com", "hash", now))

		user, err := NewUserRepository(db).FindUserByEmail(context.Background(), "Carol@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "id-1", user.UserId)
		assert.Equal(t, now, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find no rows", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectQuery(selectByEmailSQL).WillReturnRows(sqlmock.NewRows(columns))

		_, err := NewUserRepository(db).FindUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("find driver error", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectQuery(selectByEmailSQL).WillReturnError(sql.ErrConnDone)

		_, err := NewUserRepository(db).FindUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NotErrorIs(t, err, ErrUserNotFound)
	})
}

func TestHealthCheckMock(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		assert.NoError(t, db.HealthCheck(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping fails", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		err := db.HealthCheck(context.Background())
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}
