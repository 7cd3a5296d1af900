package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 5 * time.Second

// PostgresStore keeps each user record as a row with a JSONB storage column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over an established pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the records table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS storage_records (
    storage_id    TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    storage       JSONB NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	if err != nil {
		return fmt.Errorf("ensure storage_records: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, storageID string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
SELECT storage_id, password_hash, created_at, storage
FROM storage_records
WHERE storage_id = $1;`

	var (
		user    User
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query, storageID).Scan(&user.StorageID, &user.PasswordHash, &user.CreatedAt, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get storage record: %w", err)
	}
	if err := json.Unmarshal(payload, &user.Storage); err != nil {
		return User{}, fmt.Errorf("decode storage record: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) Create(ctx context.Context, user User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	payload, err := json.Marshal(user.Storage)
	if err != nil {
		return fmt.Errorf("encode storage record: %w", err)
	}

	query := `
INSERT INTO storage_records (storage_id, password_hash, created_at, storage)
VALUES ($1, $2, $3, $4);`

	if _, err := s.pool.Exec(ctx, query, user.StorageID, user.PasswordHash, user.CreatedAt, payload); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create storage record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, user User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	payload, err := json.Marshal(user.Storage)
	if err != nil {
		return fmt.Errorf("encode storage record: %w", err)
	}

	query := `
UPDATE storage_records
SET password_hash = $2, storage = $3, updated_at = NOW()
WHERE storage_id = $1;`

	tag, err := s.pool.Exec(ctx, query, user.StorageID, user.PasswordHash, payload)
	if err != nil {
		return fmt.Errorf("update storage record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
