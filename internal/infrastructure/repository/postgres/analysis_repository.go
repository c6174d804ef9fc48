package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Create stores the full document. Category columns mirror the document and
// take precedence on read.
func (r *AnalysisRepository) Create(ctx context.Context, doc *domain.ComplianceDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal analysis document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (
	id, category, detected_category, category_confirmed, overall_status, document, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		doc.ID, doc.Category, doc.DetectedCategory, doc.CategoryConfirmed, string(doc.OverallStatus),
		payload, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "insert analysis", fmt.Errorf("id=%s already exists", doc.ID))
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.ComplianceDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, category, detected_category, category_confirmed, document, created_at, updated_at
FROM analyses
WHERE id = $1
`, id)

	var (
		docID, category, detected string
		confirmed                 bool
		raw                       []byte
		createdAt, updatedAt      time.Time
	)
	if err := row.Scan(&docID, &category, &detected, &confirmed, &raw, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis by id", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	var doc domain.ComplianceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal analysis document: %w", err)
	}
	doc.ID = docID
	doc.Category = category
	doc.DetectedCategory = detected
	doc.CategoryConfirmed = confirmed
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	return &doc, nil
}

func (r *AnalysisRepository) UpdateCategory(ctx context.Context, id, category string, confirmed bool) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET category = $2, category_confirmed = $3, updated_at = $4
WHERE id = $1
`, id, category, confirmed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update analysis category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update analysis category rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, "update analysis category", fmt.Errorf("id=%s", id))
	}
	return nil
}
