package skill

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
)

// UserSkillMastery is one learner's degree of mastery of one skill. The
// degree is not range checked here.
type UserSkillMastery struct {
	UserID          string
	SkillID         string
	DegreeOfMastery float64
}

func (m UserSkillMastery) ToDict() dict.Dict {
	return dict.Dict{
		"user_id":           m.UserID,
		"skill_id":          m.SkillID,
		"degree_of_mastery": m.DegreeOfMastery,
	}
}

func UserSkillMasteryFromDict(d dict.Dict) (UserSkillMastery, error) {
	if err := requireKeys(d, "skill mastery", "user_id", "skill_id", "degree_of_mastery"); err != nil {
		return UserSkillMastery{}, err
	}
	var m UserSkillMastery
	var ok bool
	if m.UserID, ok = d["user_id"].(string); !ok {
		return UserSkillMastery{}, domainerr.Validationf("Expected user_id to be a string, received %v", d["user_id"])
	}
	if m.SkillID, ok = d["skill_id"].(string); !ok {
		return UserSkillMastery{}, domainerr.Validationf("Expected skill_id to be a string, received %v", d["skill_id"])
	}
	if m.DegreeOfMastery, ok = dict.Float(d["degree_of_mastery"]); !ok {
		return UserSkillMastery{}, domainerr.Validationf("Expected degree_of_mastery to be a number, received %v", d["degree_of_mastery"])
	}
	return m, nil
}
