package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nidhogg/skillbook/internal/skill"
)

// GetRights retrieves the rights of a skill.
func (s *Store) GetRights(ctx context.Context, skillID string) (skill.Rights, error) {
	var r skill.Rights
	err := s.db.QueryRow(ctx, `
		SELECT skill_id, skill_is_private, creator_id
		FROM skill_rights WHERE skill_id = $1`, skillID,
	).Scan(&r.SkillID, &r.SkillIsPrivate, &r.CreatorID)
	if err != nil {
		return skill.Rights{}, fmt.Errorf("get rights %s: %w", skillID, notFound(err))
	}
	return r, nil
}

// SaveRights stores r and records the rights commit.
func (s *Store) SaveRights(ctx context.Context, r skill.Rights, commit Commit) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE skill_rights SET skill_is_private = $2, creator_id = $3, updated_at = NOW()
			WHERE skill_id = $1`,
			r.SkillID, r.SkillIsPrivate, r.CreatorID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return insertCommit(ctx, tx, commit)
	})
	if err != nil {
		return fmt.Errorf("save rights %s: %w", r.SkillID, err)
	}
	return nil
}
