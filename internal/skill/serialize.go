package skill

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/schema"
)

var skillKeys = []string{
	"id", "description", "misconceptions", "rubrics", "skill_contents",
	"language_code", "misconceptions_schema_version", "rubric_schema_version",
	"skill_contents_schema_version", "version", "next_misconception_id",
	"superseding_skill_id", "all_questions_merged", "prerequisite_skill_ids",
}

// ToDict returns the serialized form of the skill. Field names are part of
// the storage contract.
func (s *Skill) ToDict() dict.Dict {
	misconceptions := make([]interface{}, 0, len(s.misconceptions))
	for _, m := range s.misconceptions {
		misconceptions = append(misconceptions, m.ToDict())
	}
	rubrics := make([]interface{}, 0, len(s.rubrics))
	for _, r := range s.rubrics {
		rubrics = append(rubrics, r.ToDict())
	}
	prereqs := make([]interface{}, 0, len(s.prerequisiteSkillIDs))
	for _, id := range s.prerequisiteSkillIDs {
		prereqs = append(prereqs, id)
	}
	var superseding interface{}
	if s.supersedingSkillID != nil {
		superseding = *s.supersedingSkillID
	}
	return dict.Dict{
		"id":                            s.id,
		"description":                   s.description,
		"misconceptions":                misconceptions,
		"rubrics":                       rubrics,
		"skill_contents":                s.contents.ToDict(),
		"language_code":                 s.languageCode,
		"misconceptions_schema_version": s.misconceptionsSchemaVersion,
		"rubric_schema_version":         s.rubricSchemaVersion,
		"skill_contents_schema_version": s.skillContentsSchemaVersion,
		"version":                       s.version,
		"next_misconception_id":         s.nextMisconceptionID,
		"superseding_skill_id":          superseding,
		"all_questions_merged":          s.allQuestionsMerged,
		"prerequisite_skill_ids":        prereqs,
	}
}

// FromDict rebuilds a skill from its serialized form. Each nested blob whose
// schema version is behind current is migrated first; if any family fails
// to migrate no skill is returned. The result is not validated.
func FromDict(d dict.Dict) (*Skill, error) {
	if err := requireKeys(d, "skill", skillKeys...); err != nil {
		return nil, err
	}

	contentsBlob, err := versionedBlob(d, "skill_contents", "skill_contents_schema_version")
	if err != nil {
		return nil, err
	}
	misconceptionsBlob, err := versionedBlob(d, "misconceptions", "misconceptions_schema_version")
	if err != nil {
		return nil, err
	}
	rubricsBlob, err := versionedBlob(d, "rubrics", "rubric_schema_version")
	if err != nil {
		return nil, err
	}

	var steps []schema.Step
	migrate := func(f schema.Family, blob schema.VersionedBlob) (schema.VersionedBlob, error) {
		out, applied, err := Migrations.Migrate(f, blob)
		if err != nil {
			return blob, domainerr.Migration("migrate "+string(f), err)
		}
		steps = append(steps, applied...)
		return out, nil
	}
	if contentsBlob, err = migrate(FamilySkillContents, contentsBlob); err != nil {
		return nil, err
	}
	if misconceptionsBlob, err = migrate(FamilyMisconceptions, misconceptionsBlob); err != nil {
		return nil, err
	}
	if rubricsBlob, err = migrate(FamilyRubrics, rubricsBlob); err != nil {
		return nil, err
	}

	p := Params{
		MisconceptionsSchemaVersion: misconceptionsBlob.SchemaVersion,
		RubricSchemaVersion:         rubricsBlob.SchemaVersion,
		SkillContentsSchemaVersion:  contentsBlob.SchemaVersion,
	}

	contentsDict, ok := contentsBlob.Payload.(map[string]interface{})
	if !ok {
		return nil, domainerr.Validationf("Expected skill_contents to be a dict, received %v", contentsBlob.Payload)
	}
	if p.Contents, err = SkillContentsFromDict(contentsDict); err != nil {
		return nil, err
	}
	if p.Misconceptions, err = listFromDict(misconceptionsBlob.Payload, "misconceptions", MisconceptionFromDict); err != nil {
		return nil, err
	}
	if p.Rubrics, err = listFromDict(rubricsBlob.Payload, "rubrics", RubricFromDict); err != nil {
		return nil, err
	}

	if p.ID, ok = d["id"].(string); !ok {
		return nil, domainerr.Validationf("Skill id should be a string.")
	}
	if p.Description, ok = d["description"].(string); !ok {
		return nil, domainerr.Validationf("Description should be a string.")
	}
	if p.LanguageCode, ok = d["language_code"].(string); !ok {
		return nil, domainerr.Validationf("Expected language code to be a string, received %v", d["language_code"])
	}
	if p.Version, ok = dict.Int(d["version"]); !ok {
		return nil, domainerr.Validationf("Expected version to be an integer, received %v", d["version"])
	}
	if p.NextMisconceptionID, ok = dict.Int(d["next_misconception_id"]); !ok {
		return nil, domainerr.Validationf("Expected misconception ID to be an integer, received %v", d["next_misconception_id"])
	}
	switch v := d["superseding_skill_id"].(type) {
	case nil:
	case string:
		p.SupersedingSkillID = &v
	default:
		return nil, domainerr.Validationf("Expected superseding_skill_id to be a string, received %v", v)
	}
	if p.AllQuestionsMerged, ok = d["all_questions_merged"].(bool); !ok {
		return nil, domainerr.Validationf("Expected all_questions_merged to be a bool, received %v", d["all_questions_merged"])
	}
	if p.PrerequisiteSkillIDs, ok = dict.Strings(d["prerequisite_skill_ids"]); !ok {
		return nil, domainerr.Validationf("Expected prerequisite_skill_ids to be a list of strings, received %v", d["prerequisite_skill_ids"])
	}

	s := New(p)
	s.migrations = steps
	return s, nil
}

func versionedBlob(d dict.Dict, payloadKey, versionKey string) (schema.VersionedBlob, error) {
	v, ok := dict.Int(d[versionKey])
	if !ok {
		return schema.VersionedBlob{}, domainerr.Validationf("Expected %s to be an integer, received %v", versionKey, d[versionKey])
	}
	return schema.VersionedBlob{SchemaVersion: v, Payload: d[payloadKey]}, nil
}

func listFromDict[T any](payload interface{}, kind string, parse func(dict.Dict) (T, error)) ([]T, error) {
	items, ok := payload.([]interface{})
	if !ok {
		return nil, domainerr.Validationf("Expected %s to be a list, received %v", kind, payload)
	}
	out := make([]T, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			return nil, domainerr.Validationf("Expected each of %s to be a dict, received %v", kind, raw)
		}
		parsed, err := parse(item)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
