package skill

import (
	"github.com/nidhogg/skillbook/internal/content"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/sanitize"
)

// The plain field setters below do not validate: mutation does not imply
// validity, and callers must run Validate before persisting.

// UpdateDescription replaces the description.
func (s *Skill) UpdateDescription(description string) {
	s.description = description
}

// UpdateLanguageCode replaces the language code.
func (s *Skill) UpdateLanguageCode(code string) {
	s.languageCode = code
}

// UpdateSupersedingSkillID sets the skill this one merges into. An empty id
// clears it.
func (s *Skill) UpdateSupersedingSkillID(id string) {
	if id == "" {
		s.supersedingSkillID = nil
		return
	}
	s.supersedingSkillID = &id
}

// RecordAllQuestionsMerged sets whether every question has moved to the
// superseding skill.
func (s *Skill) RecordAllQuestionsMerged(merged bool) {
	s.allQuestionsMerged = merged
}

// UpdateExplanation replaces the explanation and moves its voiceover and
// translation entries from the old content id to the new one.
func (s *Skill) UpdateExplanation(explanation content.SubtitledHTML) error {
	oldIDs := []string{s.contents.explanation.ContentID}
	newIDs := []string{explanation.ContentID}
	if err := content.Reconcile(&s.contents.recordedVoiceovers, &s.contents.writtenTranslations, oldIDs, newIDs); err != nil {
		return err
	}
	s.contents.explanation = explanation
	return nil
}

// UpdateWorkedExamples replaces the worked examples and reconciles the
// auxiliary maps against the old and new example ids.
func (s *Skill) UpdateWorkedExamples(examples []content.SubtitledHTML) error {
	oldIDs := content.IDs(s.contents.workedExamples...)
	newIDs := content.IDs(examples...)
	if err := content.Reconcile(&s.contents.recordedVoiceovers, &s.contents.writtenTranslations, oldIDs, newIDs); err != nil {
		return err
	}
	s.contents.workedExamples = append([]content.SubtitledHTML{}, examples...)
	return nil
}

// AddMisconception appends m and raises the watermark past m.ID. Id
// collisions are not checked here; Validate reports them.
func (s *Skill) AddMisconception(m Misconception) {
	s.misconceptions = append(s.misconceptions, m)
	if next := m.ID + 1; next > s.nextMisconceptionID {
		s.nextMisconceptionID = next
	}
}

func (s *Skill) findMisconception(id int) int {
	for i, m := range s.misconceptions {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Skill) misconceptionIndex(op string, id int) (int, error) {
	i := s.findMisconception(id)
	if i < 0 {
		return -1, domainerr.Operationf(op, "There is no misconception with the given id.")
	}
	return i, nil
}

// DeleteMisconception removes the first misconception with the given id.
func (s *Skill) DeleteMisconception(id int) error {
	i, err := s.misconceptionIndex("delete_misconception", id)
	if err != nil {
		return err
	}
	s.misconceptions = append(s.misconceptions[:i], s.misconceptions[i+1:]...)
	return nil
}

// UpdateMisconceptionName renames a misconception.
func (s *Skill) UpdateMisconceptionName(id int, name string) error {
	i, err := s.misconceptionIndex("update_misconception_name", id)
	if err != nil {
		return err
	}
	s.misconceptions[i].Name = name
	return nil
}

// UpdateMisconceptionNotes replaces a misconception's notes.
func (s *Skill) UpdateMisconceptionNotes(id int, notes string) error {
	i, err := s.misconceptionIndex("update_misconception_notes", id)
	if err != nil {
		return err
	}
	s.misconceptions[i].Notes = sanitize.Clean(notes)
	return nil
}

// UpdateMisconceptionFeedback replaces a misconception's feedback.
func (s *Skill) UpdateMisconceptionFeedback(id int, feedback string) error {
	i, err := s.misconceptionIndex("update_misconception_feedback", id)
	if err != nil {
		return err
	}
	s.misconceptions[i].Feedback = sanitize.Clean(feedback)
	return nil
}

// UpdateMisconceptionMustBeAddressed sets whether linked questions must
// address the misconception.
func (s *Skill) UpdateMisconceptionMustBeAddressed(id int, mustBeAddressed bool) error {
	i, err := s.misconceptionIndex("update_misconception_must_be_addressed", id)
	if err != nil {
		return err
	}
	s.misconceptions[i].MustBeAddressed = mustBeAddressed
	return nil
}

func (s *Skill) findPrerequisite(id string) int {
	for i, existing := range s.prerequisiteSkillIDs {
		if existing == id {
			return i
		}
	}
	return -1
}

// AddPrerequisiteSkill appends id to the prerequisites.
func (s *Skill) AddPrerequisiteSkill(id string) error {
	if s.findPrerequisite(id) >= 0 {
		return domainerr.Operationf("add_prerequisite_skill", "The skill is already a prerequisite skill.")
	}
	s.prerequisiteSkillIDs = append(s.prerequisiteSkillIDs, id)
	return nil
}

// DeletePrerequisiteSkill removes id from the prerequisites.
func (s *Skill) DeletePrerequisiteSkill(id string) error {
	i := s.findPrerequisite(id)
	if i < 0 {
		return domainerr.Operationf("delete_prerequisite_skill", "The skill to remove is not a prerequisite skill.")
	}
	s.prerequisiteSkillIDs = append(s.prerequisiteSkillIDs[:i], s.prerequisiteSkillIDs[i+1:]...)
	return nil
}

// ReplacePrerequisiteSkills swaps the whole prerequisite list.
func (s *Skill) ReplacePrerequisiteSkills(ids []string) {
	s.prerequisiteSkillIDs = append([]string{}, ids...)
}

// UpdateRubric replaces the explanation of the rubric for difficulty. It
// never creates a rubric.
func (s *Skill) UpdateRubric(difficulty Difficulty, explanation string) error {
	for i := range s.rubrics {
		if s.rubrics[i].Difficulty == difficulty {
			s.rubrics[i].Explanation = sanitize.Clean(explanation)
			return nil
		}
	}
	return domainerr.Operationf("update_rubric", "There is no rubric for the given difficulty.")
}
