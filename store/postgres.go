package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id                     TEXT PRIMARY KEY,
	email                  VARCHAR(120) NOT NULL UNIQUE,
	password_hash          VARCHAR(256) NOT NULL,
	reset_token            VARCHAR(300) UNIQUE,
	reset_token_expiration TIMESTAMPTZ,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createRevokedSessionsTable = `
CREATE TABLE IF NOT EXISTS revoked_sessions (
	session_id TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
)`

const selectUserColumns = `SELECT id, email, password_hash, COALESCE(reset_token, ''), reset_token_expiration, created_at FROM users`

// Postgres stores users in a PostgreSQL "users" table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to the given DSN and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := p.pool.Exec(ctx, createRevokedSessionsTable); err != nil {
		return fmt.Errorf("create revoked_sessions table: %w", err)
	}
	return nil
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := p.pool.QueryRow(ctx, selectUserColumns+` WHERE email = $1`, NormalizeEmail(email))
	return scanUser(row)
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*User, error) {
	row := p.pool.QueryRow(ctx, selectUserColumns+` WHERE id = $1`, id)
	return scanUser(row)
}

func (p *Postgres) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = NormalizeEmail(u.Email)

	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, reset_token, reset_token_expiration, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.ResetToken, u.ResetTokenExpiration, u.CreatedAt,
	)
	return translateError(err)
}

func (p *Postgres) Update(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET email = $2, password_hash = $3, reset_token = NULLIF($4, ''), reset_token_expiration = $5
		 WHERE id = $1`,
		u.ID, u.Email, u.PasswordHash, u.ResetToken, u.ResetTokenExpiration,
	)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at <= now()`); err != nil {
		return fmt.Errorf("prune revoked sessions: %w", err)
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO revoked_sessions (session_id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET expires_at = GREATEST(revoked_sessions.expires_at, EXCLUDED.expires_at)`,
		sessionID, until.UTC(),
	)
	return err
}

func (p *Postgres) SessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	var revoked bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = $1 AND expires_at > now())`,
		sessionID,
	).Scan(&revoked)
	return revoked, err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.ResetToken, &u.ResetTokenExpiration, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}
