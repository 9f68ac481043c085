package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS scriptc_artifacts (
	digest     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	insertSQL = `INSERT INTO scriptc_artifacts (digest, name, size, data)
VALUES ($1, $2, $3, $4) ON CONFLICT (digest) DO NOTHING`
	selectSQL = `SELECT data FROM scriptc_artifacts WHERE digest = $1`
)

// PostgresStore keeps artifacts in the scriptc_artifacts table.
type PostgresStore struct {
	db    Querier
	close func(context.Context) error
}

// NewPostgresStore wraps an open connection and ensures the table exists.
func NewPostgresStore(ctx context.Context, db Querier) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("creating artifact table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// ConnectPostgres opens a connection from a postgres:// URL.
func ConnectPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return ownPostgresStore(ctx, conn, conn.Close)
}

// ownPostgresStore is NewPostgresStore for a connection the store owns.
// closeConn runs on Close, or right away if the table setup fails.
func ownPostgresStore(ctx context.Context, db Querier, closeConn func(context.Context) error) (*PostgresStore, error) {
	s, err := NewPostgresStore(ctx, db)
	if err != nil {
		if closeErr := closeConn(ctx); closeErr != nil {
			return nil, multierror.Append(err, closeErr)
		}
		return nil, err
	}
	s.close = closeConn
	return s, nil
}

// Close releases the connection if the store opened it. A store built
// with NewPostgresStore leaves the Querier to its owner.
func (s *PostgresStore) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	closeConn := s.close
	s.close = nil
	return closeConn(ctx)
}

// Put inserts data unless the digest is already present.
func (s *PostgresStore) Put(ctx context.Context, name string, data []byte) (Ref, error) {
	digest := Digest(data)
	if _, err := s.db.Exec(ctx, insertSQL, digest, name, len(data), data); err != nil {
		return Ref{}, fmt.Errorf("inserting artifact %s: %w", digest, err)
	}
	return Ref{Digest: digest, Size: len(data), Location: "postgres:scriptc_artifacts/" + digest}, nil
}

// Get fetches and verifies the artifact for digest.
func (s *PostgresStore) Get(ctx context.Context, digest string) ([]byte, error) {
	if err := validDigest(digest); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRow(ctx, selectSQL, digest).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}
	if err != nil {
		return nil, err
	}
	return verify(digest, data)
}
