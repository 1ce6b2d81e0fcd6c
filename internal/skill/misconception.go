package skill

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/sanitize"
	"github.com/nidhogg/skillbook/internal/validation"
)

// Misconception is a common learner error tied to a skill.
type Misconception struct {
	ID              int
	Name            string
	Notes           string // html
	Feedback        string // html
	MustBeAddressed bool
}

// NewMisconception builds a misconception with cleaned notes and feedback.
func NewMisconception(id int, name, notes, feedback string, mustBeAddressed bool) Misconception {
	return Misconception{
		ID:              id,
		Name:            name,
		Notes:           sanitize.Clean(notes),
		Feedback:        sanitize.Clean(feedback),
		MustBeAddressed: mustBeAddressed,
	}
}

// RequireValidMisconceptionID checks id is usable as a misconception id.
func RequireValidMisconceptionID(id int) error {
	if id < 0 {
		return domainerr.Validationf("Expected misconception ID to be a non-negative integer, received %d", id)
	}
	return nil
}

// Validate checks the misconception fields.
func (m Misconception) Validate() error {
	if err := RequireValidMisconceptionID(m.ID); err != nil {
		return err
	}
	return validation.RequireValidName(m.Name, "misconception_name", false)
}

// ToDict returns the serialized form.
func (m Misconception) ToDict() dict.Dict {
	return dict.Dict{
		"id":                m.ID,
		"name":              m.Name,
		"notes":             m.Notes,
		"feedback":          m.Feedback,
		"must_be_addressed": m.MustBeAddressed,
	}
}

// MisconceptionFromDict parses a current-schema misconception dict.
func MisconceptionFromDict(d dict.Dict) (Misconception, error) {
	if err := requireKeys(d, "misconception", "id", "name", "notes", "feedback", "must_be_addressed"); err != nil {
		return Misconception{}, err
	}
	id, ok := dict.Int(d["id"])
	if !ok {
		return Misconception{}, domainerr.Validationf("Expected misconception ID to be an integer, received %v", d["id"])
	}
	name, ok := d["name"].(string)
	if !ok {
		return Misconception{}, domainerr.Validationf("Expected misconception name to be a string, received %v", d["name"])
	}
	notes, ok := d["notes"].(string)
	if !ok {
		return Misconception{}, domainerr.Validationf("Expected misconception notes to be a string, received %v", d["notes"])
	}
	feedback, ok := d["feedback"].(string)
	if !ok {
		return Misconception{}, domainerr.Validationf("Expected misconception feedback to be a string, received %v", d["feedback"])
	}
	mustBeAddressed, ok := d["must_be_addressed"].(bool)
	if !ok {
		return Misconception{}, domainerr.Validationf("Expected must_be_addressed to be a bool, received %v", d["must_be_addressed"])
	}
	return NewMisconception(id, name, notes, feedback, mustBeAddressed), nil
}

func requireKeys(d dict.Dict, kind string, keys ...string) error {
	if d == nil {
		return domainerr.Validationf("Expected %s to be a dict, received nil", kind)
	}
	for _, k := range keys {
		if _, ok := d[k]; !ok {
			return domainerr.Validationf("Missing key %s in %s dict", k, kind)
		}
	}
	return nil
}
