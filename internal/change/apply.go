package change

import (
	"fmt"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/skill"
)

type indexedError struct {
	index int
	err   error
}

func (e *indexedError) Error() string { return fmt.Sprintf("change %d: %v", e.index, e.err) }
func (e *indexedError) Unwrap() error { return e.err }

// Apply performs one change on s. Migrate commands do nothing: the load path
// has already migrated the aggregate they describe.
func Apply(s *skill.Skill, c SkillChange) error {
	switch c := c.(type) {
	case CreateNew, MigrateSchema:
		return nil
	case AddSkillMisconception:
		s.AddMisconception(c.Misconception)
		return nil
	case DeleteSkillMisconception:
		return s.DeleteMisconception(c.MisconceptionID)
	case AddPrerequisiteSkill:
		return s.AddPrerequisiteSkill(c.SkillID)
	case DeletePrerequisiteSkill:
		return s.DeletePrerequisiteSkill(c.SkillID)
	case UpdateRubrics:
		return s.UpdateRubric(c.Difficulty, c.Explanation)
	case UpdateSkillMisconceptionsProperty:
		return applyMisconceptionProperty(s, c)
	case UpdateSkillProperty:
		return applySkillProperty(s, c)
	case UpdateSkillContentsProperty:
		return applyContentsProperty(s, c)
	}
	return domainerr.Operationf("apply_change", "Unsupported change %T", c)
}

// ApplyAll applies changes in order and stops at the first failure. s is
// left as it was after the last successful change; callers discard it.
func ApplyAll(s *skill.Skill, changes []SkillChange) error {
	for i, c := range changes {
		if err := Apply(s, c); err != nil {
			return &indexedError{index: i, err: err}
		}
	}
	return nil
}

// Replay rebuilds a skill from its full change log, starting from the
// default skill.
func Replay(id, description string, rubrics []skill.Rubric, changes []SkillChange) (*skill.Skill, error) {
	return ReplayFrom(skill.CreateDefaultSkill(id, description, rubrics), changes)
}

// ReplayFrom applies changes to a copy of base, usually the skill as it was
// first saved.
func ReplayFrom(base *skill.Skill, changes []SkillChange) (*skill.Skill, error) {
	s := base.Clone()
	if err := ApplyAll(s, changes); err != nil {
		return nil, err
	}
	return s, nil
}

func applyMisconceptionProperty(s *skill.Skill, c UpdateSkillMisconceptionsProperty) error {
	op := CmdUpdateSkillMisconceptionsProperty
	switch c.PropertyName {
	case MisconceptionPropertyName:
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		return s.UpdateMisconceptionName(c.MisconceptionID, v)
	case MisconceptionPropertyNotes:
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		return s.UpdateMisconceptionNotes(c.MisconceptionID, v)
	case MisconceptionPropertyFeedback:
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		return s.UpdateMisconceptionFeedback(c.MisconceptionID, v)
	case MisconceptionPropertyMustBeAddressed:
		v, ok := c.NewValue.(bool)
		if !ok {
			return domainerr.Operationf(op, "must_be_addressed should be a bool value.")
		}
		return s.UpdateMisconceptionMustBeAddressed(c.MisconceptionID, v)
	}
	return unknownProperty(op, c.PropertyName)
}

func applySkillProperty(s *skill.Skill, c UpdateSkillProperty) error {
	op := CmdUpdateSkillProperty
	switch c.PropertyName {
	case SkillPropertyDescription:
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		s.UpdateDescription(v)
		return nil
	case SkillPropertyLanguageCode:
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		s.UpdateLanguageCode(v)
		return nil
	case SkillPropertySupersedingSkillID:
		if c.NewValue == nil {
			s.UpdateSupersedingSkillID("")
			return nil
		}
		v, err := stringValue(op, c.NewValue)
		if err != nil {
			return err
		}
		s.UpdateSupersedingSkillID(v)
		return nil
	case SkillPropertyAllQuestionsMerged:
		v, ok := c.NewValue.(bool)
		if !ok {
			return domainerr.Operationf(op, "all_questions_merged should be a bool value.")
		}
		s.RecordAllQuestionsMerged(v)
		return nil
	case SkillPropertyPrerequisiteSkillIDs:
		ids, ok := dict.Strings(c.NewValue)
		if !ok {
			return domainerr.Operationf(op, "prerequisite_skill_ids should be a list of strings.")
		}
		s.ReplacePrerequisiteSkills(ids)
		return nil
	}
	return unknownProperty(op, c.PropertyName)
}

func applyContentsProperty(s *skill.Skill, c UpdateSkillContentsProperty) error {
	switch c.PropertyName {
	case ContentsPropertyExplanation:
		explanation, err := skill.SubtitledHTMLFromValue(c.NewValue)
		if err != nil {
			return err
		}
		return s.UpdateExplanation(explanation)
	case ContentsPropertyWorkedExamples:
		examples, err := skill.SubtitledHTMLListFromValue(c.NewValue)
		if err != nil {
			return err
		}
		return s.UpdateWorkedExamples(examples)
	}
	return unknownProperty(CmdUpdateSkillContentsProperty, c.PropertyName)
}

func stringValue(op string, newValue interface{}) (string, error) {
	v, ok := newValue.(string)
	if !ok {
		return "", domainerr.Operationf(op, "Expected new_value to be a string, received %v", newValue)
	}
	return v, nil
}

func unknownProperty(op, name string) error {
	return domainerr.Operationf(op, "Invalid change property %s", name)
}
