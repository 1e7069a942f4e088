// Package store persists analysis history and user accounts in Postgres.
// The core pipeline only writes verdicts here; history is read back solely
// for the listing endpoint.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open connects and verifies the database is reachable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, for tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// Record is one persisted analysis outcome.
type Record struct {
	ID         int64
	InputType  string // "url" or "pdf"
	InputValue string
	Label      string
	Confidence float64
	UserID     *int64
	CreatedAt  time.Time
}

// SaveAnalysis inserts a completed verdict and returns its row id.
func (s *Store) SaveAnalysis(ctx context.Context, rec Record) (int64, error) {
	const q = `INSERT INTO history (input_type, input_value, result, confidence, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`
	var id int64
	err := s.db.QueryRowContext(ctx, q, rec.InputType, rec.InputValue, rec.Label, rec.Confidence, rec.UserID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return id, nil
}

// RecentHistory returns the newest records, most recent first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, input_type, input_value, result, confidence, user_id, created_at
		FROM history ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var userID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.InputType, &rec.InputValue, &rec.Label, &rec.Confidence, &userID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if userID.Valid {
			rec.UserID = &userID.Int64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// User is a stored account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// CreateUser inserts an account and returns its id.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, q, username, email, passwordHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// UserByEmail looks up an account for login.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT id, username, email, password_hash FROM users WHERE email = $1`
	var u User
	err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
