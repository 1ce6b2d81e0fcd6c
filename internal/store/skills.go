package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/skill"
)

// Commit kinds.
const (
	CommitKindSkill  = "skill"
	CommitKindRights = "rights"
)

// Commit is one saved change list.
type Commit struct {
	ID          string      `json:"id"`
	SkillID     string      `json:"skill_id"`
	Kind        string      `json:"kind"`
	Version     int         `json:"version"`
	CommitterID string      `json:"committer_id"`
	Message     string      `json:"commit_message"`
	Cmds        []dict.Dict `json:"commit_cmds"`
	CreatedOn   time.Time   `json:"created_on"`
	// Snapshot is the skill as first saved. Only the version 1 skill commit
	// carries one; replays start from it.
	Snapshot dict.Dict `json:"snapshot,omitempty"`
}

// CreateSkill inserts a new skill at version 1 together with its rights,
// summary and creation commit. An existing id is a version conflict.
func (s *Store) CreateSkill(ctx context.Context, sk *skill.Skill, rights skill.Rights, commit Commit) error {
	data, err := json.Marshal(sk.ToDict())
	if err != nil {
		return fmt.Errorf("marshal skill %s: %w", sk.ID(), err)
	}
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO skills (id, version, data, created_on, last_updated)
			VALUES ($1, $2, $3, $4, $5)`,
			sk.ID(), sk.Version(), data, sk.CreatedOn(), sk.LastUpdated(),
		); err != nil {
			if isUniqueViolation(err) {
				return ErrVersionConflict
			}
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO skill_rights (skill_id, skill_is_private, creator_id)
			VALUES ($1, $2, $3)`,
			rights.SkillID, rights.SkillIsPrivate, rights.CreatorID,
		); err != nil {
			return err
		}
		if err := upsertSummary(ctx, tx, sk.Summary()); err != nil {
			return err
		}
		return insertCommit(ctx, tx, commit)
	})
	if err != nil {
		return fmt.Errorf("create skill %s: %w", sk.ID(), err)
	}
	s.logger.Debug("Skill created", zap.String("skill_id", sk.ID()))
	return nil
}

// UpdateSkill stores sk, whose version must be expectedVersion+1, together
// with its regenerated summary and the commit. If the stored version is not
// expectedVersion nothing is written and ErrVersionConflict is returned.
func (s *Store) UpdateSkill(ctx context.Context, sk *skill.Skill, expectedVersion int, commit Commit) error {
	data, err := json.Marshal(sk.ToDict())
	if err != nil {
		return fmt.Errorf("marshal skill %s: %w", sk.ID(), err)
	}
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE skills SET version = $2, data = $3, last_updated = $4
			WHERE id = $1 AND version = $5`,
			sk.ID(), sk.Version(), data, sk.LastUpdated(), expectedVersion,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM skills WHERE id = $1)`, sk.ID()).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		if err := upsertSummary(ctx, tx, sk.Summary()); err != nil {
			return err
		}
		return insertCommit(ctx, tx, commit)
	})
	if err != nil {
		return fmt.Errorf("update skill %s: %w", sk.ID(), err)
	}
	return nil
}

// GetSkill loads a skill, migrating any stale sub-record blob. The result is
// not validated.
func (s *Store) GetSkill(ctx context.Context, id string) (*skill.Skill, error) {
	var (
		version     int
		data        []byte
		createdOn   time.Time
		lastUpdated time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT version, data, created_on, last_updated
		FROM skills WHERE id = $1`, id,
	).Scan(&version, &data, &createdOn, &lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("get skill %s: %w", id, notFound(err))
	}

	var d dict.Dict
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, LoadError(id, err)
	}
	sk, err := skill.FromDict(d)
	if err != nil {
		return nil, LoadError(id, err)
	}
	sk.SetStorageMetadata(version, createdOn, lastUpdated)
	if steps := sk.AppliedMigrations(); len(steps) > 0 {
		s.logger.Info("Skill migrated on load",
			zap.String("skill_id", id), zap.Int("steps", len(steps)))
	}
	return sk, nil
}

// ListCommits returns the commits of a skill, oldest first.
func (s *Store) ListCommits(ctx context.Context, skillID string) ([]Commit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, skill_id, kind, version, committer_id, commit_message, commit_cmds, created_on, snapshot
		FROM skill_commits WHERE skill_id = $1
		ORDER BY created_on, version`, skillID)
	if err != nil {
		return nil, fmt.Errorf("list commits %s: %w", skillID, err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var (
			c        Commit
			cmds     []byte
			snapshot []byte
		)
		if err := rows.Scan(&c.ID, &c.SkillID, &c.Kind, &c.Version, &c.CommitterID, &c.Message, &cmds, &c.CreatedOn, &snapshot); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		if err := json.Unmarshal(cmds, &c.Cmds); err != nil {
			return nil, fmt.Errorf("decode commit %s: %w", c.ID, err)
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &c.Snapshot); err != nil {
				return nil, fmt.Errorf("decode commit snapshot %s: %w", c.ID, err)
			}
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

func insertCommit(ctx context.Context, tx pgx.Tx, c Commit) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		id = uuid.New()
	}
	cmds, err := json.Marshal(c.Cmds)
	if err != nil {
		return fmt.Errorf("marshal commit cmds: %w", err)
	}
	var snapshot []byte
	if c.Snapshot != nil {
		if snapshot, err = json.Marshal(c.Snapshot); err != nil {
			return fmt.Errorf("marshal commit snapshot: %w", err)
		}
	}
	createdOn := c.CreatedOn
	if createdOn.IsZero() {
		createdOn = time.Now()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO skill_commits (id, skill_id, kind, version, committer_id, commit_message, commit_cmds, created_on, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id.String(), c.SkillID, c.Kind, c.Version, c.CommitterID, c.Message, cmds, createdOn, snapshot,
	)
	if err != nil {
		return fmt.Errorf("insert commit: %w", err)
	}
	return nil
}
