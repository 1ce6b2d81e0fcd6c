package skill

import (
	"fmt"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/sanitize"
)

// Difficulty is a question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties is the canonical rubric order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// IsValidDifficulty reports whether d is one of Difficulties.
func IsValidDifficulty(d Difficulty) bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// Rubric explains what a question of one difficulty looks like for the skill.
type Rubric struct {
	Difficulty  Difficulty
	Explanation string // html
}

// NewRubric builds a rubric with a cleaned explanation.
func NewRubric(difficulty Difficulty, explanation string) Rubric {
	return Rubric{Difficulty: difficulty, Explanation: sanitize.Clean(explanation)}
}

// DefaultRubrics returns one blank rubric per difficulty in canonical order.
func DefaultRubrics() []Rubric {
	out := make([]Rubric, 0, len(Difficulties))
	for _, d := range Difficulties {
		out = append(out, NewRubric(d, ""))
	}
	return out
}

// Validate checks the difficulty is known.
func (r Rubric) Validate() error {
	if !IsValidDifficulty(r.Difficulty) {
		return domainerr.Validationf("Invalid difficulty received for rubric: %s", r.Difficulty)
	}
	return nil
}

// ToDict returns the serialized form.
func (r Rubric) ToDict() dict.Dict {
	return dict.Dict{
		"difficulty":  string(r.Difficulty),
		"explanation": r.Explanation,
	}
}

// RubricFromDict parses a current-schema rubric dict.
func RubricFromDict(d dict.Dict) (Rubric, error) {
	if err := requireKeys(d, "rubric", "difficulty", "explanation"); err != nil {
		return Rubric{}, err
	}
	difficulty, ok := d["difficulty"].(string)
	if !ok {
		return Rubric{}, domainerr.Validationf("Expected difficulty to be a string, received %v", d["difficulty"])
	}
	explanation, ok := d["explanation"].(string)
	if !ok {
		return Rubric{}, domainerr.Validationf("Expected explanation to be a string, received %v", d["explanation"])
	}
	return NewRubric(Difficulty(difficulty), explanation), nil
}

func canonicalOrderMessage() string {
	return fmt.Sprintf("The difficulties should be ordered as follows [%s, %s, %s]",
		Difficulties[0], Difficulties[1], Difficulties[2])
}
