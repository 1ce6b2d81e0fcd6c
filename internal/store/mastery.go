package store

import (
	"context"
	"fmt"

	"github.com/nidhogg/skillbook/internal/skill"
)

// GetMastery retrieves a user's degree of mastery of a skill.
func (s *Store) GetMastery(ctx context.Context, userID, skillID string) (skill.UserSkillMastery, error) {
	m := skill.UserSkillMastery{UserID: userID, SkillID: skillID}
	err := s.db.QueryRow(ctx, `
		SELECT degree_of_mastery FROM user_skill_mastery
		WHERE user_id = $1 AND skill_id = $2`, userID, skillID,
	).Scan(&m.DegreeOfMastery)
	if err != nil {
		return skill.UserSkillMastery{}, fmt.Errorf("get mastery %s/%s: %w", userID, skillID, notFound(err))
	}
	return m, nil
}

// PutMastery upserts a user's degree of mastery of a skill.
func (s *Store) PutMastery(ctx context.Context, m skill.UserSkillMastery) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_skill_mastery (user_id, skill_id, degree_of_mastery)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET
			degree_of_mastery = EXCLUDED.degree_of_mastery,
			updated_at = NOW()`,
		m.UserID, m.SkillID, m.DegreeOfMastery,
	)
	if err != nil {
		return fmt.Errorf("put mastery %s/%s: %w", m.UserID, m.SkillID, err)
	}
	return nil
}
