package skill

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
)

// Rights records who created a skill and whether it is still private.
type Rights struct {
	SkillID        string
	SkillIsPrivate bool
	CreatorID      string
}

// NewRights returns the rights of a freshly created, private skill.
func NewRights(skillID, creatorID string) Rights {
	return Rights{SkillID: skillID, SkillIsPrivate: true, CreatorID: creatorID}
}

// IsCreator reports whether userID created the skill.
func (r Rights) IsCreator(userID string) bool {
	return userID != "" && userID == r.CreatorID
}

// IsPrivate reports whether the skill is unpublished.
func (r Rights) IsPrivate() bool {
	return r.SkillIsPrivate
}

func (r Rights) ToDict() dict.Dict {
	return dict.Dict{
		"skill_id":         r.SkillID,
		"skill_is_private": r.SkillIsPrivate,
		"creator_id":       r.CreatorID,
	}
}

func RightsFromDict(d dict.Dict) (Rights, error) {
	if err := requireKeys(d, "skill rights", "skill_id", "skill_is_private", "creator_id"); err != nil {
		return Rights{}, err
	}
	var r Rights
	var ok bool
	if r.SkillID, ok = d["skill_id"].(string); !ok {
		return Rights{}, domainerr.Validationf("Expected skill_id to be a string, received %v", d["skill_id"])
	}
	if r.SkillIsPrivate, ok = d["skill_is_private"].(bool); !ok {
		return Rights{}, domainerr.Validationf("Expected skill_is_private to be a bool, received %v", d["skill_is_private"])
	}
	if r.CreatorID, ok = d["creator_id"].(string); !ok {
		return Rights{}, domainerr.Validationf("Expected creator_id to be a string, received %v", d["creator_id"])
	}
	return r, nil
}
