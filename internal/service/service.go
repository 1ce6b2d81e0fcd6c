// Package service runs the skill use cases: it loads aggregates, applies
// change lists, validates and saves them, then notifies the read models.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/change"
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/events"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

// ErrForbidden means the committer may not perform the operation.
var ErrForbidden = errors.New("forbidden")

// Repository is the persistence boundary. *store.Store implements it.
type Repository interface {
	CreateSkill(ctx context.Context, sk *skill.Skill, rights skill.Rights, commit store.Commit) error
	UpdateSkill(ctx context.Context, sk *skill.Skill, expectedVersion int, commit store.Commit) error
	GetSkill(ctx context.Context, id string) (*skill.Skill, error)
	GetSummary(ctx context.Context, id string) (skill.Summary, error)
	ListSummaries(ctx context.Context) ([]skill.Summary, error)
	ListCommits(ctx context.Context, skillID string) ([]store.Commit, error)
	GetRights(ctx context.Context, skillID string) (skill.Rights, error)
	SaveRights(ctx context.Context, r skill.Rights, commit store.Commit) error
	GetMastery(ctx context.Context, userID, skillID string) (skill.UserSkillMastery, error)
	PutMastery(ctx context.Context, m skill.UserSkillMastery) error
}

// Graph is the prerequisite read model. *graph.PrerequisiteGraph implements it.
type Graph interface {
	SyncSkill(ctx context.Context, skillID, description string, version int, prereqIDs []string) error
	WouldCreateCycle(ctx context.Context, skillID, prereqID string) (bool, error)
	Prerequisites(ctx context.Context, skillID string, transitive bool) ([]string, error)
}

// Publisher announces saved commits. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, ev events.SkillCommitted) error
}

// Service coordinates skill use cases.
type Service struct {
	repo      Repository
	graph     Graph
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a Service. The graph and publisher are optional.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// SetGraph enables prerequisite graph sync and cycle checks.
func (s *Service) SetGraph(g Graph) { s.graph = g }

// SetPublisher enables commit events.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateRequest describes a new skill.
type CreateRequest struct {
	// ID is optional; a fresh id is generated when empty.
	ID          string
	Description string
	Rubrics     []skill.Rubric
	CommitterID string
}

// CreateSkill stores a new default skill owned by the committer.
func (s *Service) CreateSkill(ctx context.Context, req CreateRequest) (*skill.Skill, error) {
	id := req.ID
	if id == "" {
		id = skill.NewSkillID()
	}
	if err := skill.RequireValidSkillID(id); err != nil {
		return nil, err
	}
	if req.CommitterID == "" {
		return nil, domainerr.Validationf("Expected a committer id.")
	}
	rubrics := req.Rubrics
	if len(rubrics) == 0 {
		rubrics = skill.DefaultRubrics()
	}

	sk := skill.CreateDefaultSkill(id, req.Description, rubrics)
	now := s.now()
	sk.SetStorageMetadata(1, now, now)
	if err := sk.Validate(); err != nil {
		return nil, err
	}

	cmds := change.EncodeAll([]change.SkillChange{change.CreateNew{}})
	commit := s.newCommit(id, store.CommitKindSkill, 1, req.CommitterID, "New skill created.", cmds)
	commit.Snapshot = sk.ToDict()
	if err := s.repo.CreateSkill(ctx, sk, skill.NewRights(id, req.CommitterID), commit); err != nil {
		return nil, err
	}
	s.logger.Info("Skill created", zap.String("skill_id", id), zap.String("committer_id", req.CommitterID))
	s.afterCommit(ctx, events.KindSkillCreated, sk, req.CommitterID, cmds)
	return sk, nil
}

// GetSkill loads a skill and checks it is valid.
func (s *Service) GetSkill(ctx context.Context, id string) (*skill.Skill, error) {
	sk, err := s.repo.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sk.Validate(); err != nil {
		s.logger.Error("Stored skill is invalid", zap.String("skill_id", id), zap.Error(err))
		return nil, store.LoadError(id, err)
	}
	return sk, nil
}

// UpdateRequest is a change list against a known version of a skill.
type UpdateRequest struct {
	SkillID         string
	ExpectedVersion int
	CommitterID     string
	Message         string
	Changes         []dict.Dict
}

// UpdateSkill applies a change list. Nothing is saved unless every change
// applies and the result validates. The saved commit starts with a migrate
// command for each blob family upgraded while loading.
func (s *Service) UpdateSkill(ctx context.Context, req UpdateRequest) (*skill.Skill, error) {
	if len(req.Changes) == 0 {
		return nil, domainerr.Validationf("Unexpected error: received an invalid change list when trying to save skill %s", req.SkillID)
	}
	if req.CommitterID == "" {
		return nil, domainerr.Validationf("Expected a committer id.")
	}
	changes, err := change.DecodeSkillChanges(req.Changes)
	if err != nil {
		return nil, err
	}

	sk, err := s.repo.GetSkill(ctx, req.SkillID)
	if err != nil {
		return nil, err
	}
	if sk.Version() != req.ExpectedVersion {
		return nil, fmt.Errorf("skill %s is at version %d, change list is against %d: %w",
			req.SkillID, sk.Version(), req.ExpectedVersion, store.ErrVersionConflict)
	}
	if err := s.checkPrerequisiteCycles(ctx, req.SkillID, changes); err != nil {
		return nil, err
	}

	if err := change.ApplyAll(sk, changes); err != nil {
		return nil, err
	}
	if err := sk.Validate(); err != nil {
		return nil, err
	}

	version := req.ExpectedVersion + 1
	sk.SetStorageMetadata(version, sk.CreatedOn(), s.now())
	all := append(change.MigrationChanges(sk.AppliedMigrations()), changes...)
	cmds := change.EncodeAll(all)
	commit := s.newCommit(req.SkillID, store.CommitKindSkill, version, req.CommitterID, req.Message, cmds)
	if err := s.repo.UpdateSkill(ctx, sk, req.ExpectedVersion, commit); err != nil {
		return nil, err
	}
	s.logger.Info("Skill updated",
		zap.String("skill_id", req.SkillID),
		zap.Int("version", version),
		zap.Int("changes", len(all)))
	s.afterCommit(ctx, events.KindSkillUpdated, sk, req.CommitterID, cmds)
	return sk, nil
}

func (s *Service) checkPrerequisiteCycles(ctx context.Context, skillID string, changes []change.SkillChange) error {
	for _, c := range changes {
		var ids []string
		switch c := c.(type) {
		case change.AddPrerequisiteSkill:
			ids = []string{c.SkillID}
		case change.UpdateSkillProperty:
			if c.PropertyName == change.SkillPropertyPrerequisiteSkillIDs {
				ids, _ = dict.Strings(c.NewValue)
			}
		}
		for _, id := range ids {
			if id == skillID {
				return domainerr.Operationf(change.CmdAddPrerequisiteSkill, "A skill cannot be its own prerequisite.")
			}
			if s.graph == nil {
				continue
			}
			cyclic, err := s.graph.WouldCreateCycle(ctx, skillID, id)
			if err != nil {
				s.logger.Warn("Prerequisite cycle check skipped", zap.String("skill_id", skillID), zap.Error(err))
				continue
			}
			if cyclic {
				return domainerr.Operationf(change.CmdAddPrerequisiteSkill,
					"Adding prerequisite %s would create a cycle.", id)
			}
		}
	}
	return nil
}

// PublishSkill makes a private skill public. Only its creator may do so.
func (s *Service) PublishSkill(ctx context.Context, skillID, committerID string) (skill.Rights, error) {
	rights, err := s.repo.GetRights(ctx, skillID)
	if err != nil {
		return skill.Rights{}, err
	}
	if !rights.IsCreator(committerID) {
		return skill.Rights{}, fmt.Errorf("publish skill %s as %s: %w", skillID, committerID, ErrForbidden)
	}
	if err := change.ApplyRights(&rights, change.PublishSkill{}); err != nil {
		return skill.Rights{}, err
	}
	sum, err := s.repo.GetSummary(ctx, skillID)
	if err != nil {
		return skill.Rights{}, err
	}

	cmds := []dict.Dict{change.PublishSkill{}.ToDict()}
	commit := s.newCommit(skillID, store.CommitKindRights, sum.Version, committerID, "Published the skill.", cmds)
	if err := s.repo.SaveRights(ctx, rights, commit); err != nil {
		return skill.Rights{}, err
	}
	s.logger.Info("Skill published", zap.String("skill_id", skillID), zap.String("committer_id", committerID))
	s.publish(ctx, events.SkillCommitted{
		Kind:        events.KindSkillPublished,
		SkillID:     skillID,
		Version:     sum.Version,
		CommitterID: committerID,
		Cmds:        cmdNames(cmds),
	})
	return rights, nil
}

// GetSummary returns the stored summary of a skill.
func (s *Service) GetSummary(ctx context.Context, id string) (skill.Summary, error) {
	return s.repo.GetSummary(ctx, id)
}

// ListSummaries returns every skill summary.
func (s *Service) ListSummaries(ctx context.Context) ([]skill.Summary, error) {
	return s.repo.ListSummaries(ctx)
}

// ListCommits returns the commit log of a skill.
func (s *Service) ListCommits(ctx context.Context, skillID string) ([]store.Commit, error) {
	return s.repo.ListCommits(ctx, skillID)
}

// GetRights returns the rights of a skill.
func (s *Service) GetRights(ctx context.Context, skillID string) (skill.Rights, error) {
	return s.repo.GetRights(ctx, skillID)
}

// GetMastery returns a user's mastery of a skill.
func (s *Service) GetMastery(ctx context.Context, userID, skillID string) (skill.UserSkillMastery, error) {
	return s.repo.GetMastery(ctx, userID, skillID)
}

// PutMastery records a user's mastery of a skill. The degree is stored as
// given.
func (s *Service) PutMastery(ctx context.Context, m skill.UserSkillMastery) error {
	if m.UserID == "" || m.SkillID == "" {
		return domainerr.Validationf("Expected user_id and skill_id to be non-empty.")
	}
	return s.repo.PutMastery(ctx, m)
}

// Prerequisites returns the prerequisite ids of a skill, sorted. Without a
// graph the transitive closure is walked through the repository.
func (s *Service) Prerequisites(ctx context.Context, skillID string, transitive bool) ([]string, error) {
	if s.graph != nil {
		ids, err := s.graph.Prerequisites(ctx, skillID, transitive)
		if err == nil {
			return ids, nil
		}
		s.logger.Warn("Prerequisite graph unavailable, reading from store", zap.String("skill_id", skillID), zap.Error(err))
	}
	return s.walkPrerequisites(ctx, skillID, transitive)
}

func (s *Service) walkPrerequisites(ctx context.Context, skillID string, transitive bool) ([]string, error) {
	root, err := s.repo.GetSkill(ctx, skillID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	queue := root.PrerequisiteSkillIDs()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok || id == skillID {
			continue
		}
		seen[id] = struct{}{}
		if !transitive {
			continue
		}
		sk, err := s.repo.GetSkill(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		queue = append(queue, sk.PrerequisiteSkillIDs()...)
	}
	return sortedIDs(seen), nil
}

func (s *Service) newCommit(skillID, kind string, version int, committerID, message string, cmds []dict.Dict) store.Commit {
	return store.Commit{
		ID:          newCommitID(),
		SkillID:     skillID,
		Kind:        kind,
		Version:     version,
		CommitterID: committerID,
		Message:     message,
		Cmds:        cmds,
		CreatedOn:   s.now(),
	}
}

// afterCommit updates the read models. Failures are logged, never returned:
// the commit is already durable.
func (s *Service) afterCommit(ctx context.Context, kind string, sk *skill.Skill, committerID string, cmds []dict.Dict) {
	if s.graph != nil {
		if err := s.graph.SyncSkill(ctx, sk.ID(), sk.Description(), sk.Version(), sk.PrerequisiteSkillIDs()); err != nil {
			s.logger.Warn("Prerequisite graph sync failed", zap.String("skill_id", sk.ID()), zap.Error(err))
		}
	}
	s.publish(ctx, events.SkillCommitted{
		Kind:        kind,
		SkillID:     sk.ID(),
		Version:     sk.Version(),
		CommitterID: committerID,
		Cmds:        cmdNames(cmds),
	})
}

func (s *Service) publish(ctx context.Context, ev events.SkillCommitted) {
	if s.publisher == nil {
		return
	}
	ev.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("Publish skill event failed", zap.String("skill_id", ev.SkillID), zap.Error(err))
	}
}
