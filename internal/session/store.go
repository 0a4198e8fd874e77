package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

// PgxPool is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversation sessions in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("session: pgx pool required")
	}
	return &Store{pool: pool}
}

// The no-op DO UPDATE makes the upsert return a row in every case, including
// the losing side of a concurrent first contact (a DO NOTHING arm plus a
// fallback select can miss a row committed after the statement snapshot).
// xmax = 0 distinguishes a freshly inserted row from a conflicted one.
const getOrCreateQuery = `
	INSERT INTO sessions (id, address, state, locale, display_name, context)
	VALUES ($1, $2, 'active', $3, $4, '{}'::jsonb)
	ON CONFLICT (address) DO UPDATE SET address = EXCLUDED.address
	RETURNING id, address, state, locale, display_name, context, linked_account_id, last_activity_at, created_at, (xmax = 0) AS created
`

// GetOrCreate returns the session for address, creating it atomically when
// absent. Two concurrent first-contact calls for the same address resolve to
// the same row; exactly one observes isNew=true. The locale argument is only
// applied on creation; an existing session's locale is authoritative.
func (s *Store) GetOrCreate(ctx context.Context, address string, locale language.Locale, displayName string) (*Session, bool, error) {
	row := s.pool.QueryRow(ctx, getOrCreateQuery, uuid.New(), address, string(locale.OrDefault()), displayName)
	sess, isNew, err := scanSessionWithCreated(row)
	if err != nil {
		return nil, false, fmt.Errorf("session: get or create: %w", err)
	}
	return sess, isNew, nil
}

// Touch bumps last-activity and optionally merges context keys. Callers treat
// a failure here as non-fatal; the reply path must not block on it.
func (s *Store) Touch(ctx context.Context, id uuid.UUID, contextUpdates map[string]string) error {
	if len(contextUpdates) == 0 {
		query := `UPDATE sessions SET last_activity_at = now() WHERE id = $1`
		if _, err := s.pool.Exec(ctx, query, id); err != nil {
			return fmt.Errorf("session: touch: %w", err)
		}
		return nil
	}
	blob, err := json.Marshal(contextUpdates)
	if err != nil {
		return fmt.Errorf("session: marshal context: %w", err)
	}
	query := `
		UPDATE sessions
		SET last_activity_at = now(),
			context = context || $2::jsonb
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, id, blob); err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Session, error) {
	query := `
		SELECT id, address, state, locale, display_name, context, linked_account_id, last_activity_at, created_at
		FROM sessions
		ORDER BY last_activity_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("session: scan: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess    Session
		locale  string
		state   string
		blob    []byte
		account *string
	)
	if err := row.Scan(&sess.ID, &sess.Address, &state, &locale, &sess.DisplayName, &blob, &account, &sess.LastActivityAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return finishSession(&sess, state, locale, blob, account)
}

func scanSessionWithCreated(row rowScanner) (*Session, bool, error) {
	var (
		sess    Session
		locale  string
		state   string
		blob    []byte
		account *string
		created bool
	)
	if err := row.Scan(&sess.ID, &sess.Address, &state, &locale, &sess.DisplayName, &blob, &account, &sess.LastActivityAt, &sess.CreatedAt, &created); err != nil {
		return nil, false, err
	}
	out, err := finishSession(&sess, state, locale, blob, account)
	return out, created, err
}

func finishSession(sess *Session, state, locale string, blob []byte, account *string) (*Session, error) {
	sess.State = State(state)
	sess.Locale = language.Locale(locale).OrDefault()
	if account != nil {
		sess.LinkedAccountID = *account
	}
	sess.Context = map[string]string{}
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &sess.Context); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
	}
	return sess, nil
}
