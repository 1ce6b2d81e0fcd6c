// Package change defines the closed vocabulary of skill change commands used
// to record, audit and replay the history of a skill.
package change

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/schema"
	"github.com/nidhogg/skillbook/internal/skill"
)

// Command names. They are stored in commit logs and must never change.
const (
	CmdCreateNew                         = "create_new"
	CmdAddSkillMisconception             = "add_skill_misconception"
	CmdDeleteSkillMisconception          = "delete_skill_misconception"
	CmdAddPrerequisiteSkill              = "add_prerequisite_skill"
	CmdDeletePrerequisiteSkill           = "delete_prerequisite_skill"
	CmdUpdateRubrics                     = "update_rubrics"
	CmdUpdateSkillMisconceptionsProperty = "update_skill_misconceptions_property"
	CmdUpdateSkillProperty               = "update_skill_property"
	CmdUpdateSkillContentsProperty       = "update_skill_contents_property"
	CmdMigrateContentsSchema             = "migrate_contents_schema_to_latest_version"
	CmdMigrateMisconceptionsSchema       = "migrate_misconceptions_schema_to_latest_version"
	CmdMigrateRubricsSchema              = "migrate_rubrics_schema_to_latest_version"
)

// Property names accepted by the update_* commands.
const (
	SkillPropertyDescription          = "description"
	SkillPropertyLanguageCode         = "language_code"
	SkillPropertySupersedingSkillID   = "superseding_skill_id"
	SkillPropertyAllQuestionsMerged   = "all_questions_merged"
	SkillPropertyPrerequisiteSkillIDs = "prerequisite_skill_ids"

	ContentsPropertyExplanation    = "explanation"
	ContentsPropertyWorkedExamples = "worked_examples"

	MisconceptionPropertyName            = "name"
	MisconceptionPropertyNotes           = "notes"
	MisconceptionPropertyFeedback        = "feedback"
	MisconceptionPropertyMustBeAddressed = "must_be_addressed"
)

var (
	SkillProperties = []string{
		SkillPropertyDescription, SkillPropertyLanguageCode, SkillPropertySupersedingSkillID,
		SkillPropertyAllQuestionsMerged, SkillPropertyPrerequisiteSkillIDs,
	}
	ContentsProperties      = []string{ContentsPropertyExplanation, ContentsPropertyWorkedExamples}
	MisconceptionProperties = []string{
		MisconceptionPropertyName, MisconceptionPropertyNotes,
		MisconceptionPropertyFeedback, MisconceptionPropertyMustBeAddressed,
	}
)

// SkillChange is one recorded mutation of a skill. The set of
// implementations is closed to this package.
type SkillChange interface {
	Cmd() string
	ToDict() dict.Dict
	skillChange()
}

// CreateNew marks the creation of the skill.
type CreateNew struct{}

// AddSkillMisconception appends a misconception.
type AddSkillMisconception struct {
	Misconception skill.Misconception
}

// DeleteSkillMisconception removes a misconception by id.
type DeleteSkillMisconception struct {
	MisconceptionID int
}

// AddPrerequisiteSkill adds a prerequisite skill id.
type AddPrerequisiteSkill struct {
	SkillID string
}

// DeletePrerequisiteSkill removes a prerequisite skill id.
type DeletePrerequisiteSkill struct {
	SkillID string
}

// UpdateRubrics replaces the explanation of one rubric.
type UpdateRubrics struct {
	Difficulty  skill.Difficulty
	Explanation string
}

// UpdateSkillMisconceptionsProperty changes one field of a misconception.
type UpdateSkillMisconceptionsProperty struct {
	MisconceptionID int
	PropertyName    string
	NewValue        interface{}
	OldValue        interface{}
}

// UpdateSkillProperty changes one top-level skill field.
type UpdateSkillProperty struct {
	PropertyName string
	NewValue     interface{}
	OldValue     interface{}
}

// UpdateSkillContentsProperty replaces the explanation or the worked examples.
type UpdateSkillContentsProperty struct {
	PropertyName string
	NewValue     interface{}
	OldValue     interface{}
}

// MigrateSchema records that a stored blob family was migrated on load.
type MigrateSchema struct {
	Family      schema.Family
	FromVersion int
	ToVersion   int
}

func (CreateNew) Cmd() string                         { return CmdCreateNew }
func (AddSkillMisconception) Cmd() string             { return CmdAddSkillMisconception }
func (DeleteSkillMisconception) Cmd() string          { return CmdDeleteSkillMisconception }
func (AddPrerequisiteSkill) Cmd() string              { return CmdAddPrerequisiteSkill }
func (DeletePrerequisiteSkill) Cmd() string           { return CmdDeletePrerequisiteSkill }
func (UpdateRubrics) Cmd() string                     { return CmdUpdateRubrics }
func (UpdateSkillMisconceptionsProperty) Cmd() string { return CmdUpdateSkillMisconceptionsProperty }
func (UpdateSkillProperty) Cmd() string               { return CmdUpdateSkillProperty }
func (UpdateSkillContentsProperty) Cmd() string       { return CmdUpdateSkillContentsProperty }

func (c MigrateSchema) Cmd() string {
	return migrateCmdByFamily[c.Family]
}

var migrateCmdByFamily = map[schema.Family]string{
	skill.FamilySkillContents:  CmdMigrateContentsSchema,
	skill.FamilyMisconceptions: CmdMigrateMisconceptionsSchema,
	skill.FamilyRubrics:        CmdMigrateRubricsSchema,
}

// MigrationChanges turns the steps applied while loading a skill into one
// migrate command per family, spanning its first and last version.
func MigrationChanges(steps []schema.Step) []SkillChange {
	var order []schema.Family
	spans := make(map[schema.Family]*MigrateSchema)
	for _, st := range steps {
		span, ok := spans[st.Family]
		if !ok {
			span = &MigrateSchema{Family: st.Family, FromVersion: st.From}
			spans[st.Family] = span
			order = append(order, st.Family)
		}
		span.ToVersion = st.To
	}
	out := make([]SkillChange, 0, len(order))
	for _, f := range order {
		out = append(out, *spans[f])
	}
	return out
}

func (CreateNew) skillChange()                         {}
func (AddSkillMisconception) skillChange()             {}
func (DeleteSkillMisconception) skillChange()          {}
func (AddPrerequisiteSkill) skillChange()              {}
func (DeletePrerequisiteSkill) skillChange()           {}
func (UpdateRubrics) skillChange()                     {}
func (UpdateSkillMisconceptionsProperty) skillChange() {}
func (UpdateSkillProperty) skillChange()               {}
func (UpdateSkillContentsProperty) skillChange()       {}
func (MigrateSchema) skillChange()                     {}
