package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// SessionRepository stores analysis sessions and their iteration logs.
// Iterations are never updated or deleted.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSession(ctx context.Context, session domain.Session) (*domain.Session, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO analysis_sessions (id, origin_analysis_id, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (origin_analysis_id) DO NOTHING
`, session.ID, session.OriginAnalysisID, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT id, origin_analysis_id, created_at
FROM analysis_sessions
WHERE origin_analysis_id = $1
`, session.OriginAnalysisID)
	out, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "ensure session",
				fmt.Errorf("origin_analysis_id=%s", session.OriginAnalysisID))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &out, nil
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, origin_analysis_id, created_at
FROM analysis_sessions
WHERE id = $1
`, sessionID)
	out, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", sessionID))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &out, nil
}

// AppendIteration locks the session row so that seq is gap-free and matches
// commit order within one session.
func (r *SessionRepository) AppendIteration(ctx context.Context, it domain.Iteration) (domain.Iteration, error) {
	payload, err := json.Marshal(it.Payload)
	if err != nil {
		return domain.Iteration{}, fmt.Errorf("marshal iteration payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Iteration{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM analysis_sessions WHERE id = $1 FOR UPDATE`, it.SessionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Iteration{}, domain.WrapError(domain.ErrSessionNotFound, "append iteration",
				fmt.Errorf("id=%s", it.SessionID))
		}
		return domain.Iteration{}, fmt.Errorf("lock session: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
INSERT INTO session_iterations (session_id, seq, id, kind, payload, created_at)
SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5
FROM session_iterations
WHERE session_id = $1
RETURNING seq
`, it.SessionID, it.ID, string(it.Kind), payload, it.Timestamp).Scan(&it.Seq)
	if err != nil {
		return domain.Iteration{}, fmt.Errorf("insert iteration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Iteration{}, fmt.Errorf("commit append tx: %w", err)
	}
	return it, nil
}

func (r *SessionRepository) ListIterations(ctx context.Context, sessionID string) ([]domain.Iteration, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, seq, id, kind, payload, created_at
FROM session_iterations
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Iteration, 0)
	for rows.Next() {
		var it domain.Iteration
		var kind string
		var payload []byte
		if err := rows.Scan(&it.SessionID, &it.Seq, &it.ID, &kind, &payload, &it.Timestamp); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		if err := json.Unmarshal(payload, &it.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal iteration payload: %w", err)
		}
		it.Kind = domain.IterationKind(kind)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate iterations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.OriginAnalysisID, &s.CreatedAt); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}
