// Package skill implements the Skill aggregate: its sub-records, invariants,
// mutation operations and the versioned storage form.
package skill

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nidhogg/skillbook/internal/content"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/locale"
	"github.com/nidhogg/skillbook/internal/schema"
)

// Do not change these values: stored blobs and change logs depend on them.
const (
	CurrentSkillContentsSchemaVersion  = 1
	CurrentMisconceptionsSchemaVersion = 2
	CurrentRubricSchemaVersion         = 1

	DefaultExplanationContentID = "explanation"
	DefaultExplanationHTML      = ""

	// IDLength is the exact length of a skill id.
	IDLength = 12
)

// Skill is the aggregate root. Its fields can only be changed through the
// mutation methods, which keep the content id maps in sync.
type Skill struct {
	id                          string
	description                 string
	misconceptions              []Misconception
	rubrics                     []Rubric
	contents                    SkillContents
	misconceptionsSchemaVersion int
	rubricSchemaVersion         int
	skillContentsSchemaVersion  int
	languageCode                string
	version                     int
	nextMisconceptionID         int
	supersedingSkillID          *string
	allQuestionsMerged          bool
	prerequisiteSkillIDs        []string
	createdOn                   time.Time
	lastUpdated                 time.Time

	// migrations applied while loading from storage.
	migrations []schema.Step
}

// Params is the full field set of a Skill. It is used by loaders and tests
// that need to build a skill in an arbitrary, possibly invalid, state.
type Params struct {
	ID                          string
	Description                 string
	Misconceptions              []Misconception
	Rubrics                     []Rubric
	Contents                    SkillContents
	MisconceptionsSchemaVersion int
	RubricSchemaVersion         int
	SkillContentsSchemaVersion  int
	LanguageCode                string
	Version                     int
	NextMisconceptionID         int
	SupersedingSkillID          *string
	AllQuestionsMerged          bool
	PrerequisiteSkillIDs        []string
	CreatedOn                   time.Time
	LastUpdated                 time.Time
}

// New builds a Skill from p without validating it.
func New(p Params) *Skill {
	return &Skill{
		id:                          p.ID,
		description:                 p.Description,
		misconceptions:              append([]Misconception{}, p.Misconceptions...),
		rubrics:                     append([]Rubric{}, p.Rubrics...),
		contents:                    p.Contents.clone(),
		misconceptionsSchemaVersion: p.MisconceptionsSchemaVersion,
		rubricSchemaVersion:         p.RubricSchemaVersion,
		skillContentsSchemaVersion:  p.SkillContentsSchemaVersion,
		languageCode:                p.LanguageCode,
		version:                     p.Version,
		nextMisconceptionID:         p.NextMisconceptionID,
		supersedingSkillID:          copyString(p.SupersedingSkillID),
		allQuestionsMerged:          p.AllQuestionsMerged,
		prerequisiteSkillIDs:        append([]string{}, p.PrerequisiteSkillIDs...),
		createdOn:                   p.CreatedOn,
		lastUpdated:                 p.LastUpdated,
	}
}

// CreateDefaultSkill returns a blank skill as first shown to its creator:
// no misconceptions, the given rubrics, an empty explanation and watermark 0.
func CreateDefaultSkill(id, description string, rubrics []Rubric) *Skill {
	explanation := content.NewSubtitledHTML(DefaultExplanationContentID, DefaultExplanationHTML)
	return New(Params{
		ID:          id,
		Description: description,
		Rubrics:     rubrics,
		Contents: NewSkillContents(
			explanation, nil,
			content.NewRecordedVoiceovers(DefaultExplanationContentID),
			content.NewWrittenTranslations(DefaultExplanationContentID),
		),
		MisconceptionsSchemaVersion: CurrentMisconceptionsSchemaVersion,
		RubricSchemaVersion:         CurrentRubricSchemaVersion,
		SkillContentsSchemaVersion:  CurrentSkillContentsSchemaVersion,
		LanguageCode:                locale.DefaultLanguageCode,
	})
}

// NewSkillID returns a fresh random skill id of IDLength characters.
func NewSkillID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:IDLength]
}

// RequireValidSkillID checks id has the fixed skill id length.
func RequireValidSkillID(id string) error {
	if len(id) != IDLength {
		return domainerr.Validationf("Invalid skill id.")
	}
	return nil
}

// RequireValidDescription checks the description is present.
func RequireValidDescription(description string) error {
	if description == "" {
		return domainerr.Validationf("Description field should not be empty")
	}
	return nil
}

func (s *Skill) ID() string                       { return s.id }
func (s *Skill) Description() string              { return s.description }
func (s *Skill) LanguageCode() string             { return s.languageCode }
func (s *Skill) Version() int                     { return s.version }
func (s *Skill) NextMisconceptionID() int         { return s.nextMisconceptionID }
func (s *Skill) AllQuestionsMerged() bool         { return s.allQuestionsMerged }
func (s *Skill) MisconceptionsSchemaVersion() int { return s.misconceptionsSchemaVersion }
func (s *Skill) RubricSchemaVersion() int         { return s.rubricSchemaVersion }
func (s *Skill) SkillContentsSchemaVersion() int  { return s.skillContentsSchemaVersion }
func (s *Skill) CreatedOn() time.Time             { return s.createdOn }
func (s *Skill) LastUpdated() time.Time           { return s.lastUpdated }

// SupersedingSkillID returns the id this skill merges into, if any.
func (s *Skill) SupersedingSkillID() (string, bool) {
	if s.supersedingSkillID == nil {
		return "", false
	}
	return *s.supersedingSkillID, true
}

// Misconceptions returns a copy of the misconceptions in order.
func (s *Skill) Misconceptions() []Misconception {
	return append([]Misconception{}, s.misconceptions...)
}

// Rubrics returns a copy of the rubrics in order.
func (s *Skill) Rubrics() []Rubric {
	return append([]Rubric{}, s.rubrics...)
}

// Contents returns a deep copy of the skill contents.
func (s *Skill) Contents() SkillContents {
	return s.contents.clone()
}

// PrerequisiteSkillIDs returns a copy of the prerequisite ids.
func (s *Skill) PrerequisiteSkillIDs() []string {
	return append([]string{}, s.prerequisiteSkillIDs...)
}

// AppliedMigrations lists the schema steps run when this skill was loaded.
func (s *Skill) AppliedMigrations() []schema.Step {
	return append([]schema.Step{}, s.migrations...)
}

// SetStorageMetadata records the fields owned by the persistence layer.
func (s *Skill) SetStorageMetadata(version int, createdOn, lastUpdated time.Time) {
	s.version = version
	s.createdOn = createdOn
	s.lastUpdated = lastUpdated
}

// Clone returns a deep copy of s.
func (s *Skill) Clone() *Skill {
	c := New(s.params())
	c.migrations = s.AppliedMigrations()
	return c
}

func (s *Skill) params() Params {
	return Params{
		ID:                          s.id,
		Description:                 s.description,
		Misconceptions:              s.misconceptions,
		Rubrics:                     s.rubrics,
		Contents:                    s.contents,
		MisconceptionsSchemaVersion: s.misconceptionsSchemaVersion,
		RubricSchemaVersion:         s.rubricSchemaVersion,
		SkillContentsSchemaVersion:  s.skillContentsSchemaVersion,
		LanguageCode:                s.languageCode,
		Version:                     s.version,
		NextMisconceptionID:         s.nextMisconceptionID,
		SupersedingSkillID:          s.supersedingSkillID,
		AllQuestionsMerged:          s.allQuestionsMerged,
		PrerequisiteSkillIDs:        s.prerequisiteSkillIDs,
		CreatedOn:                   s.createdOn,
		LastUpdated:                 s.lastUpdated,
	}
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
