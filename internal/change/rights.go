package change

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/skill"
)

const CmdPublishSkill = "publish_skill"

// RightsChange is one recorded change to a skill's rights.
type RightsChange interface {
	Cmd() string
	ToDict() dict.Dict
	rightsChange()
}

// CreateRights marks the creation of the rights record.
type CreateRights struct{}

// PublishSkill makes a private skill public.
type PublishSkill struct{}

func (CreateRights) Cmd() string         { return CmdCreateNew }
func (PublishSkill) Cmd() string         { return CmdPublishSkill }
func (c CreateRights) ToDict() dict.Dict { return dict.Dict{"cmd": c.Cmd()} }
func (c PublishSkill) ToDict() dict.Dict { return dict.Dict{"cmd": c.Cmd()} }
func (CreateRights) rightsChange()       {}
func (PublishSkill) rightsChange()       {}

var rightsSpecs = specTable(
	Spec{Name: CmdCreateNew},
	Spec{Name: CmdPublishSkill},
)

// RightsCommands returns the rights command specs sorted by name.
func RightsCommands() []Spec {
	return sortedSpecs(rightsSpecs)
}

// DecodeRightsChange parses a rights change dict.
func DecodeRightsChange(d dict.Dict) (RightsChange, error) {
	spec, err := checkAttributes(d, rightsSpecs)
	if err != nil {
		return nil, err
	}
	if spec.Name == CmdPublishSkill {
		return PublishSkill{}, nil
	}
	return CreateRights{}, nil
}

// ApplyRights performs c on r. Publishing an already public skill fails.
func ApplyRights(r *skill.Rights, c RightsChange) error {
	switch c.(type) {
	case CreateRights:
		return nil
	case PublishSkill:
		if !r.IsPrivate() {
			return domainerr.Operationf(CmdPublishSkill, "The skill is already published.")
		}
		r.SkillIsPrivate = false
		return nil
	}
	return domainerr.Operationf("apply_rights_change", "Unsupported change %T", c)
}
