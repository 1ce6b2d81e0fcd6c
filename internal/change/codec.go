package change

import (
	"sort"
	"strings"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/schema"
	"github.com/nidhogg/skillbook/internal/skill"
)

// Spec describes the attributes a command accepts.
type Spec struct {
	Name          string
	Required      []string
	Optional      []string
	AllowedValues map[string][]string
}

var versionAttrs = []string{"from_version", "to_version"}

var skillSpecs = specTable(
	Spec{Name: CmdCreateNew},
	Spec{Name: CmdAddSkillMisconception, Required: []string{"new_misconception_dict"}},
	Spec{Name: CmdDeleteSkillMisconception, Required: []string{"misconception_id"}},
	Spec{Name: CmdAddPrerequisiteSkill, Required: []string{"skill_id"}},
	Spec{Name: CmdDeletePrerequisiteSkill, Required: []string{"skill_id"}},
	Spec{Name: CmdUpdateRubrics, Required: []string{"difficulty", "explanation"}},
	Spec{
		Name:          CmdUpdateSkillMisconceptionsProperty,
		Required:      []string{"misconception_id", "property_name", "new_value", "old_value"},
		AllowedValues: map[string][]string{"property_name": MisconceptionProperties},
	},
	Spec{
		Name:          CmdUpdateSkillProperty,
		Required:      []string{"property_name", "new_value", "old_value"},
		AllowedValues: map[string][]string{"property_name": SkillProperties},
	},
	Spec{
		Name:          CmdUpdateSkillContentsProperty,
		Required:      []string{"property_name", "new_value", "old_value"},
		AllowedValues: map[string][]string{"property_name": ContentsProperties},
	},
	Spec{Name: CmdMigrateContentsSchema, Required: versionAttrs},
	Spec{Name: CmdMigrateMisconceptionsSchema, Required: versionAttrs},
	Spec{Name: CmdMigrateRubricsSchema, Required: versionAttrs},
)

func specTable(specs ...Spec) map[string]Spec {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}
	return m
}

// SkillCommands returns the skill command specs sorted by name.
func SkillCommands() []Spec {
	return sortedSpecs(skillSpecs)
}

func sortedSpecs(m map[string]Spec) []Spec {
	out := make([]Spec, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// checkAttributes validates d against the spec table and returns the spec of
// its command.
func checkAttributes(d dict.Dict, specs map[string]Spec) (Spec, error) {
	raw, ok := d["cmd"]
	if !ok {
		return Spec{}, domainerr.Validationf("Missing cmd key in change dict")
	}
	cmd, _ := raw.(string)
	spec, ok := specs[cmd]
	if !ok {
		return Spec{}, domainerr.Validationf("Command %v is not allowed", raw)
	}

	allowed := map[string]struct{}{"cmd": {}}
	var missing []string
	for _, name := range spec.Required {
		allowed[name] = struct{}{}
		if _, ok := d[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Spec{}, domainerr.Validationf("The following required attributes are missing: %s", strings.Join(missing, ", "))
	}
	for _, name := range spec.Optional {
		allowed[name] = struct{}{}
	}
	var extra []string
	for name := range d {
		if _, ok := allowed[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return Spec{}, domainerr.Validationf("The following extra attributes are present: %s", strings.Join(extra, ", "))
	}

	for attr, values := range spec.AllowedValues {
		v, _ := d[attr].(string)
		if !contains(values, v) {
			return Spec{}, domainerr.Validationf("Value for %s in cmd %s: %v is not allowed", attr, cmd, d[attr])
		}
	}
	return spec, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// DecodeSkillChange parses a change dict into its typed command.
func DecodeSkillChange(d dict.Dict) (SkillChange, error) {
	spec, err := checkAttributes(d, skillSpecs)
	if err != nil {
		return nil, err
	}

	switch spec.Name {
	case CmdCreateNew:
		return CreateNew{}, nil

	case CmdAddSkillMisconception:
		raw, ok := d["new_misconception_dict"].(map[string]interface{})
		if !ok {
			return nil, domainerr.Validationf("Expected new_misconception_dict to be a dict, received %v", d["new_misconception_dict"])
		}
		m, err := skill.MisconceptionFromDict(raw)
		if err != nil {
			return nil, err
		}
		return AddSkillMisconception{Misconception: m}, nil

	case CmdDeleteSkillMisconception:
		id, err := intAttr(d, "misconception_id")
		if err != nil {
			return nil, err
		}
		return DeleteSkillMisconception{MisconceptionID: id}, nil

	case CmdAddPrerequisiteSkill, CmdDeletePrerequisiteSkill:
		id, err := stringAttr(d, "skill_id")
		if err != nil {
			return nil, err
		}
		if spec.Name == CmdAddPrerequisiteSkill {
			return AddPrerequisiteSkill{SkillID: id}, nil
		}
		return DeletePrerequisiteSkill{SkillID: id}, nil

	case CmdUpdateRubrics:
		difficulty, err := stringAttr(d, "difficulty")
		if err != nil {
			return nil, err
		}
		explanation, err := stringAttr(d, "explanation")
		if err != nil {
			return nil, err
		}
		return UpdateRubrics{Difficulty: skill.Difficulty(difficulty), Explanation: explanation}, nil

	case CmdUpdateSkillMisconceptionsProperty:
		id, err := intAttr(d, "misconception_id")
		if err != nil {
			return nil, err
		}
		return UpdateSkillMisconceptionsProperty{
			MisconceptionID: id,
			PropertyName:    d["property_name"].(string),
			NewValue:        dict.Clone(d["new_value"]),
			OldValue:        dict.Clone(d["old_value"]),
		}, nil

	case CmdUpdateSkillProperty:
		return UpdateSkillProperty{
			PropertyName: d["property_name"].(string),
			NewValue:     dict.Clone(d["new_value"]),
			OldValue:     dict.Clone(d["old_value"]),
		}, nil

	case CmdUpdateSkillContentsProperty:
		return UpdateSkillContentsProperty{
			PropertyName: d["property_name"].(string),
			NewValue:     dict.Clone(d["new_value"]),
			OldValue:     dict.Clone(d["old_value"]),
		}, nil

	case CmdMigrateContentsSchema, CmdMigrateMisconceptionsSchema, CmdMigrateRubricsSchema:
		from, err := intAttr(d, "from_version")
		if err != nil {
			return nil, err
		}
		to, err := intAttr(d, "to_version")
		if err != nil {
			return nil, err
		}
		return MigrateSchema{Family: familyByMigrateCmd[spec.Name], FromVersion: from, ToVersion: to}, nil
	}
	return nil, domainerr.Validationf("Command %s is not allowed", spec.Name)
}

var familyByMigrateCmd = func() map[string]schema.Family {
	m := make(map[string]schema.Family, len(migrateCmdByFamily))
	for f, cmd := range migrateCmdByFamily {
		m[cmd] = f
	}
	return m
}()

// DecodeSkillChanges parses a change list, stopping at the first bad entry.
func DecodeSkillChanges(ds []dict.Dict) ([]SkillChange, error) {
	out := make([]SkillChange, 0, len(ds))
	for i, d := range ds {
		c, err := DecodeSkillChange(d)
		if err != nil {
			return nil, &indexedError{index: i, err: err}
		}
		out = append(out, c)
	}
	return out, nil
}

// EncodeAll returns the dict form of every change.
func EncodeAll(changes []SkillChange) []dict.Dict {
	out := make([]dict.Dict, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.ToDict())
	}
	return out
}

func intAttr(d dict.Dict, name string) (int, error) {
	v, ok := dict.Int(d[name])
	if !ok {
		return 0, domainerr.Validationf("Expected %s to be an integer, received %v", name, d[name])
	}
	return v, nil
}

func stringAttr(d dict.Dict, name string) (string, error) {
	v, ok := d[name].(string)
	if !ok {
		return "", domainerr.Validationf("Expected %s to be a string, received %v", name, d[name])
	}
	return v, nil
}

func (CreateNew) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdCreateNew}
}

func (c AddSkillMisconception) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdAddSkillMisconception, "new_misconception_dict": c.Misconception.ToDict()}
}

func (c DeleteSkillMisconception) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdDeleteSkillMisconception, "misconception_id": c.MisconceptionID}
}

func (c AddPrerequisiteSkill) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdAddPrerequisiteSkill, "skill_id": c.SkillID}
}

func (c DeletePrerequisiteSkill) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdDeletePrerequisiteSkill, "skill_id": c.SkillID}
}

func (c UpdateRubrics) ToDict() dict.Dict {
	return dict.Dict{"cmd": CmdUpdateRubrics, "difficulty": string(c.Difficulty), "explanation": c.Explanation}
}

func (c UpdateSkillMisconceptionsProperty) ToDict() dict.Dict {
	return dict.Dict{
		"cmd":              CmdUpdateSkillMisconceptionsProperty,
		"misconception_id": c.MisconceptionID,
		"property_name":    c.PropertyName,
		"new_value":        dict.Clone(c.NewValue),
		"old_value":        dict.Clone(c.OldValue),
	}
}

func (c UpdateSkillProperty) ToDict() dict.Dict {
	return dict.Dict{
		"cmd":           CmdUpdateSkillProperty,
		"property_name": c.PropertyName,
		"new_value":     dict.Clone(c.NewValue),
		"old_value":     dict.Clone(c.OldValue),
	}
}

func (c UpdateSkillContentsProperty) ToDict() dict.Dict {
	return dict.Dict{
		"cmd":           CmdUpdateSkillContentsProperty,
		"property_name": c.PropertyName,
		"new_value":     dict.Clone(c.NewValue),
		"old_value":     dict.Clone(c.OldValue),
	}
}

func (c MigrateSchema) ToDict() dict.Dict {
	return dict.Dict{"cmd": c.Cmd(), "from_version": c.FromVersion, "to_version": c.ToVersion}
}
