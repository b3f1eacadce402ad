// internal/storage/database.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Driver registration
	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/whoopclone/backend/internal/logger"
)

var (
	ErrUnsupportedDatabaseURL = errors.New("unsupported DATABASE_URL scheme")
	customLog                 = logger.NewLogger()
)

// Dialect selects driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DB is a connection pool tagged with the SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// ParseDatabaseURL maps DATABASE_URL to a driver dialect and DSN.
//
// sqlite URLs follow the SQLAlchemy convention: sqlite:///rel/path.db is
// relative, sqlite:////abs/path.db is absolute. A bare path is sqlite too.
func ParseDatabaseURL(databaseURL string) (Dialect, string, error) {
	u := strings.TrimSpace(databaseURL)
	if u == "" {
		return "", "", fmt.Errorf("%w: empty", ErrUnsupportedDatabaseURL)
	}

	scheme, rest, hasScheme := strings.Cut(u, "://")
	if !hasScheme {
		return DialectSQLite, u, nil
	}
	// postgresql+psycopg2:// and friends
	if base, _, ok := strings.Cut(scheme, "+"); ok {
		scheme = base
	}

	switch strings.ToLower(scheme) {
	case "file":
		return DialectSQLite, u, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return DialectSQLite, path, nil
	case "postgres", "postgresql":
		return DialectPostgres, "postgres://" + rest, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDatabaseURL, scheme)
	}
}

// Connect opens the pool for DATABASE_URL, verifies it and ensures the users table exists.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	dialect, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	customLog.Printf("Storage: Initializing %s database", dialect)

	if dialect == DialectSQLite {
		dsn, err = prepareSQLite(dsn)
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		customLog.Warnf("Storage: Failed to open %s database: %v", dialect, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// every new connection would see a fresh in-memory database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		customLog.Warnf("Storage: Failed to ping %s database: %v", dialect, err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, Dialect: dialect}
	if err = db.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	customLog.Println("Storage: Database connection successful.")
	return db, nil
}

func prepareSQLite(path string) (string, error) {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			customLog.Warnf("Storage: Error creating data directory '%s': %v", dir, err)
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return path + "?_foreign_keys=on", nil
}

const createUsersTableSQL = `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

// EnsureSchema creates the users table when missing. The DDL is valid for both dialects.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, createUsersTableSQL); err != nil {
		customLog.Warnf("Storage: Failed to create users table: %v", err)
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	customLog.Debugln("Storage: Users table ensured.")
	return nil
}

// HealthCheck pings the database and runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}
	return nil
}

// Rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
