package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nidhogg/skillbook/internal/skill"
)

const summaryColumns = `id, description, language_code, version, misconception_count,
	worked_examples_count, skill_model_created_on, skill_model_last_updated`

func upsertSummary(ctx context.Context, tx pgx.Tx, sum skill.Summary) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO skill_summaries (`+summaryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			language_code = EXCLUDED.language_code,
			version = EXCLUDED.version,
			misconception_count = EXCLUDED.misconception_count,
			worked_examples_count = EXCLUDED.worked_examples_count,
			skill_model_last_updated = EXCLUDED.skill_model_last_updated`,
		sum.ID, sum.Description, sum.LanguageCode, sum.Version,
		sum.MisconceptionCount, sum.WorkedExamplesCount, sum.CreatedOn, sum.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", sum.ID, err)
	}
	return nil
}

// GetSummary retrieves the summary of one skill.
func (s *Store) GetSummary(ctx context.Context, id string) (skill.Summary, error) {
	row := s.db.QueryRow(ctx, `SELECT `+summaryColumns+` FROM skill_summaries WHERE id = $1`, id)
	sum, err := scanSummary(row)
	if err != nil {
		return skill.Summary{}, fmt.Errorf("get summary %s: %w", id, notFound(err))
	}
	return sum, nil
}

// ListSummaries returns every skill summary, most recently updated first.
func (s *Store) ListSummaries(ctx context.Context) ([]skill.Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+summaryColumns+` FROM skill_summaries
		ORDER BY skill_model_last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := []skill.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func scanSummary(row pgx.Row) (skill.Summary, error) {
	var sum skill.Summary
	err := row.Scan(&sum.ID, &sum.Description, &sum.LanguageCode, &sum.Version,
		&sum.MisconceptionCount, &sum.WorkedExamplesCount, &sum.CreatedOn, &sum.LastUpdated)
	return sum, err
}
