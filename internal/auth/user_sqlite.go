//go:build sqlite

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGO-less SQLite driver
)

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL DEFAULT '',
	display_name  TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'user',
	password_hash BLOB,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	last_login_at TEXT,
	auth_provider TEXT NOT NULL DEFAULT 'local'
);
`

// SQLiteUserStore is a SQLite-backed implementation of UserStore.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore creates a SQLite-backed user store at dsn, creating the
// users table if needed.
func NewSQLiteUserStore(dsn string) (*SQLiteUserStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(userSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &SQLiteUserStore{db: db}, nil
}

// NewSQLiteUserStoreFromDB creates a store using an existing DB connection.
func NewSQLiteUserStoreFromDB(db *sql.DB) (*SQLiteUserStore, error) {
	if _, err := db.Exec(userSchema); err != nil {
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &SQLiteUserStore{db: db}, nil
}

func (s *SQLiteUserStore) Close() error { return s.db.Close() }

func (s *SQLiteUserStore) Create(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" || user.Username == "" {
		return ErrUserNotFound
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, display_name, role, password_hash, is_active, created_at, updated_at, auth_provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID, user.Username, user.Email, user.DisplayName, string(user.Role),
		user.PasswordHash, userBoolToInt(user.IsActive),
		user.CreatedAt.Format(time.RFC3339Nano), user.UpdatedAt.Format(time.RFC3339Nano),
		user.AuthProvider,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, display_name, role, password_hash, is_active, created_at, updated_at, last_login_at, auth_provider`

func (s *SQLiteUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	return scanStoredUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanStoredUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *SQLiteUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanStoredUser(rows)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = nil // never expose hashes in list
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteUserStore) Update(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return ErrUserNotFound
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, display_name = ?, role = ?,
			password_hash = ?, is_active = ?, updated_at = ?, auth_provider = ?
		WHERE id = ?
	`,
		user.Username, user.Email, user.DisplayName, string(user.Role),
		user.PasswordHash, userBoolToInt(user.IsActive),
		time.Now().UTC().Format(time.RFC3339Nano), user.AuthProvider,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteUserStore) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		t.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type userRowScanner interface {
	Scan(dest ...any) error
}

func scanStoredUser(row userRowScanner) (*User, error) {
	var (
		u                    User
		role                 string
		isActive             int
		createdAt, updatedAt string
		lastLoginAt          sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &role,
		&u.PasswordHash, &isActive, &createdAt, &updatedAt, &lastLoginAt, &u.AuthProvider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	u.IsActive = isActive != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if lastLoginAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, lastLoginAt.String)
		u.LastLoginAt = &t
	}
	return &u, nil
}

func userBoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}
