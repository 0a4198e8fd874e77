package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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

// Record is one persisted end-to-end analysis result. Failed runs produce no
// record; failures are reported to the user only.
type Record struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	DocumentType DocumentType
	RiskScore    int
	Findings     RiskAssessment
	CreatedAt    time.Time
}

// RecordStore persists analysis records in Postgres.
type RecordStore struct {
	pool PgxPool
}

func NewRecordStore(pool PgxPool) *RecordStore {
	if pool == nil {
		panic("analysis: pgx pool required")
	}
	return &RecordStore{pool: pool}
}

// InsertRecord writes one analysis record.
func (s *RecordStore) InsertRecord(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	findings, err := json.Marshal(rec.Findings)
	if err != nil {
		return fmt.Errorf("analysis: marshal findings: %w", err)
	}
	query := `
		INSERT INTO analysis_records (id, session_id, document_type, risk_score, findings)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, rec.ID, rec.SessionID, string(rec.DocumentType), rec.RiskScore, findings); err != nil {
		return fmt.Errorf("analysis: insert record: %w", err)
	}
	return nil
}

// ListBySession returns analysis records for one session, newest first.
func (s *RecordStore) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Record, error) {
	query := `
		SELECT id, session_id, document_type, risk_score, findings, created_at
		FROM analysis_records
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("analysis: list records: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec      Record
			docType  string
			findings []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &docType, &rec.RiskScore, &findings, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("analysis: scan record: %w", err)
		}
		rec.DocumentType = DocumentType(docType)
		if len(findings) > 0 {
			if err := json.Unmarshal(findings, &rec.Findings); err != nil {
				return nil, fmt.Errorf("analysis: decode findings: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
