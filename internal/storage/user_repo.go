// internal/storage/user_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/whoopclone/backend/internal/domain"
)

// Specific errors for user operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const pqUniqueViolation = "23505"

// UserRepository persists user accounts.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a repository on an open pool.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// NormalizeEmail is applied on every write and lookup so emails match case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new user and returns it with a generated user_id.
func (r *UserRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	user := &domain.User{
		UserId:       uuid.New().String(),
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	sqlStatement := r.db.Rebind(`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, sqlStatement, user.UserId, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", user.Email, err)
		return nil, fmt.Errorf("database error during user creation: %w", err)
	}
	return user, nil
}

// FindUserByEmail retrieves a user by their email address.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = NormalizeEmail(email)
	sqlStatement := r.db.Rebind(`SELECT user_id, username, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1`)
	user, err := scanUser(r.db.QueryRowContext(ctx, sqlStatement, email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		customLog.Warnf("Storage: Failed to find user by email %s: %v", email, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by user_id.
func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	sqlStatement := r.db.Rebind(`SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id = ? LIMIT 1`)
	user, err := scanUser(r.db.QueryRowContext(ctx, sqlStatement, userID))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		customLog.Warnf("Storage: Failed to find user by user_id %s: %v", userID, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored digest, e.g. after a cost upgrade.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	sqlStatement := r.db.Rebind(`UPDATE users SET password_hash = ? WHERE user_id = ?`)
	result, err := r.db.ExecContext(ctx, sqlStatement, passwordHash, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed to update password for user %s: %v", userID, err)
		return fmt.Errorf("database error updating password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.UserId, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
