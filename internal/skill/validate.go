package skill

import (
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/locale"
)

// Validate checks every invariant of the aggregate and returns the first
// violation found.
func (s *Skill) Validate() error {
	if err := RequireValidDescription(s.description); err != nil {
		return err
	}
	if err := RequireValidMisconceptionID(s.nextMisconceptionID); err != nil {
		return err
	}

	if s.misconceptionsSchemaVersion != CurrentMisconceptionsSchemaVersion {
		return domainerr.Validationf("Expected misconceptions schema version to be %d, received %d",
			CurrentMisconceptionsSchemaVersion, s.misconceptionsSchemaVersion)
	}
	if s.rubricSchemaVersion != CurrentRubricSchemaVersion {
		return domainerr.Validationf("Expected rubric schema version to be %d, received %d",
			CurrentRubricSchemaVersion, s.rubricSchemaVersion)
	}
	if s.skillContentsSchemaVersion != CurrentSkillContentsSchemaVersion {
		return domainerr.Validationf("Expected skill contents schema version to be %d, received %d",
			CurrentSkillContentsSchemaVersion, s.skillContentsSchemaVersion)
	}

	if !locale.IsValid(s.languageCode) {
		return domainerr.Validationf("Invalid language code: %s", s.languageCode)
	}

	if err := s.contents.Validate(); err != nil {
		return err
	}

	if err := s.validateRubrics(); err != nil {
		return err
	}
	if err := s.validateMisconceptions(); err != nil {
		return err
	}

	for _, id := range s.prerequisiteSkillIDs {
		if id == "" {
			return domainerr.Validationf("Expected each skill ID to be a non-empty string, received %q", id)
		}
	}

	if s.allQuestionsMerged && s.supersedingSkillID == nil {
		return domainerr.Validationf("Expected a value for superseding_skill_id when all_questions_merged is True.")
	}
	if s.supersedingSkillID != nil && !s.allQuestionsMerged {
		return domainerr.Validationf("Expected a value for all_questions_merged when superseding_skill_id is set.")
	}
	return nil
}

func (s *Skill) validateRubrics() error {
	seen := make(map[Difficulty]struct{}, len(s.rubrics))
	for _, r := range s.rubrics {
		if _, dup := seen[r.Difficulty]; dup {
			return domainerr.Validationf("Duplicate rubric found for: %s", r.Difficulty)
		}
		seen[r.Difficulty] = struct{}{}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if len(s.rubrics) != len(Difficulties) {
		return domainerr.Validationf("All 3 difficulties should be addressed in rubrics")
	}
	for i, r := range s.rubrics {
		if r.Difficulty != Difficulties[i] {
			return domainerr.Validationf("%s", canonicalOrderMessage())
		}
	}
	return nil
}

func (s *Skill) validateMisconceptions() error {
	seen := make(map[int]struct{}, len(s.misconceptions))
	for _, m := range s.misconceptions {
		if _, dup := seen[m.ID]; dup {
			return domainerr.Validationf("Duplicate misconception ID found: %d", m.ID)
		}
		seen[m.ID] = struct{}{}
		if m.ID >= s.nextMisconceptionID {
			return domainerr.Validationf("The misconception with id %d is out of bounds.", m.ID)
		}
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}
