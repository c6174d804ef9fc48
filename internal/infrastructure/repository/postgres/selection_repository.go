package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// SelectionRepository is the append-only category selection log.
type SelectionRepository struct {
	db *sql.DB
}

func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) RecordSelection(ctx context.Context, selection domain.CategorySelection) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO category_selections (analysis_id, selected_category, detected_category, reason, changed, selected_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		selection.AnalysisID, selection.SelectedCategory, selection.DetectedCategory,
		selection.Reason, selection.Changed, selection.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert category selection: %w", err)
	}
	return nil
}

func (r *SelectionRepository) ListSelections(ctx context.Context, analysisID string) ([]domain.CategorySelection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT analysis_id, selected_category, detected_category, reason, changed, selected_at
FROM category_selections
WHERE analysis_id = $1
ORDER BY id ASC
`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list category selections: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CategorySelection, 0)
	for rows.Next() {
		var s domain.CategorySelection
		if err := rows.Scan(&s.AnalysisID, &s.SelectedCategory, &s.DetectedCategory, &s.Reason, &s.Changed, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan category selection: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category selections: %w", err)
	}
	return out, nil
}
