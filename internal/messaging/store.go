package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the append-only message log in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("messaging: pgx pool required")
	}
	return &Store{pool: pool}
}

// InsertMessage appends one message row and returns its id.
func (s *Store) InsertMessage(ctx context.Context, rec Message) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusQueued
	}
	query := `
		INSERT INTO messages (
			id, session_id, direction, kind, body,
			media_url, template_key, provider_sid, status, error_code, error_message
		)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),$9,NULLIF($10,''),NULLIF($11,''))
		RETURNING id
	`
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query,
		rec.ID, rec.SessionID, string(rec.Direction), string(rec.Kind), rec.Body,
		rec.MediaURL, rec.TemplateKey, rec.ProviderSID, string(rec.Status), rec.ErrorCode, rec.ErrorMessage,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	return id, nil
}

// UpdateStatusBySid applies a delivery-status transition for the message with
// the given provider sid. The rank guard in the WHERE clause makes the update
// monotonic: a late "sent" callback after "delivered" is a harmless no-op.
// Returns false when no row matched (unknown sid or regressive transition).
func (s *Store) UpdateStatusBySid(ctx context.Context, providerSID string, status Status, errorCode, errorMessage string) (bool, error) {
	if providerSID == "" || StatusRank(status) < 0 {
		return false, nil
	}
	query := `
		UPDATE messages
		SET status = $2,
			error_code = COALESCE(NULLIF($3,''), error_code),
			error_message = COALESCE(NULLIF($4,''), error_message)
		WHERE provider_sid = $1
			AND (CASE status WHEN 'queued' THEN 0 WHEN 'sent' THEN 1 ELSE 2 END)
				< (CASE $2 WHEN 'queued' THEN 0 WHEN 'sent' THEN 1 ELSE 2 END)
	`
	ct, err := s.pool.Exec(ctx, query, providerSID, string(status), errorCode, errorMessage)
	if err != nil {
		return false, fmt.Errorf("messaging: update status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListBySession returns messages for a session, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]Message, error) {
	query := `
		SELECT id, session_id, direction, kind, body,
			COALESCE(media_url,''), COALESCE(template_key,''), COALESCE(provider_sid,''),
			status, COALESCE(error_code,''), COALESCE(error_message,''), created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("messaging: list messages: %w", err)
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var (
			rec       Message
			direction string
			kind      string
			status    string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &direction, &kind, &rec.Body,
			&rec.MediaURL, &rec.TemplateKey, &rec.ProviderSID,
			&status, &rec.ErrorCode, &rec.ErrorMessage, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		rec.Direction = Direction(direction)
		rec.Kind = Kind(kind)
		rec.Status = Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
