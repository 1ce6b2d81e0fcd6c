package skill

import (
	"time"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/locale"
)

// Summary is the read-mostly projection of a skill used in listings. It is
// regenerated from the skill on every save.
type Summary struct {
	ID                  string
	Description         string
	LanguageCode        string
	Version             int
	MisconceptionCount  int
	WorkedExamplesCount int
	CreatedOn           time.Time
	LastUpdated         time.Time
}

// Summary derives the summary of s. Timestamps are cut to the millisecond
// precision the serialized form carries.
func (s *Skill) Summary() Summary {
	return Summary{
		ID:                  s.id,
		Description:         s.description,
		LanguageCode:        s.languageCode,
		Version:             s.version,
		MisconceptionCount:  len(s.misconceptions),
		WorkedExamplesCount: len(s.contents.workedExamples),
		CreatedOn:           s.createdOn.UTC().Truncate(time.Millisecond),
		LastUpdated:         s.lastUpdated.UTC().Truncate(time.Millisecond),
	}
}

// Validate checks the summary fields.
func (s Summary) Validate() error {
	if err := RequireValidDescription(s.Description); err != nil {
		return err
	}
	if !locale.IsValid(s.LanguageCode) {
		return domainerr.Validationf("Invalid language code: %s", s.LanguageCode)
	}
	if s.MisconceptionCount < 0 {
		return domainerr.Validationf("Expected misconception_count to be non-negative, received '%d'", s.MisconceptionCount)
	}
	if s.WorkedExamplesCount < 0 {
		return domainerr.Validationf("Expected worked_examples_count to be non-negative, received '%d'", s.WorkedExamplesCount)
	}
	return nil
}

// ToDict returns the serialized form. Timestamps are milliseconds since the
// Unix epoch.
func (s Summary) ToDict() dict.Dict {
	return dict.Dict{
		"id":                       s.ID,
		"description":              s.Description,
		"language_code":            s.LanguageCode,
		"version":                  s.Version,
		"misconception_count":      s.MisconceptionCount,
		"worked_examples_count":    s.WorkedExamplesCount,
		"skill_model_created_on":   s.CreatedOn.UnixMilli(),
		"skill_model_last_updated": s.LastUpdated.UnixMilli(),
	}
}

// SummaryFromDict parses a summary dict. Timestamps come back in UTC with
// millisecond precision.
func SummaryFromDict(d dict.Dict) (Summary, error) {
	if err := requireKeys(d, "skill summary", "id", "description", "language_code", "version",
		"misconception_count", "worked_examples_count", "skill_model_created_on", "skill_model_last_updated"); err != nil {
		return Summary{}, err
	}
	var s Summary
	var ok bool
	if s.ID, ok = d["id"].(string); !ok {
		return Summary{}, domainerr.Validationf("Skill id should be a string.")
	}
	if s.Description, ok = d["description"].(string); !ok {
		return Summary{}, domainerr.Validationf("Description should be a string.")
	}
	if s.LanguageCode, ok = d["language_code"].(string); !ok {
		return Summary{}, domainerr.Validationf("Expected language code to be a string, received %v", d["language_code"])
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"version", &s.Version},
		{"misconception_count", &s.MisconceptionCount},
		{"worked_examples_count", &s.WorkedExamplesCount},
	}
	for _, f := range ints {
		if *f.dst, ok = dict.Int(d[f.key]); !ok {
			return Summary{}, domainerr.Validationf("Expected %s to be an int, received '%v'", f.key, d[f.key])
		}
	}
	created, ok := dict.Int(d["skill_model_created_on"])
	if !ok {
		return Summary{}, domainerr.Validationf("Expected skill_model_created_on to be milliseconds, received %v", d["skill_model_created_on"])
	}
	updated, ok := dict.Int(d["skill_model_last_updated"])
	if !ok {
		return Summary{}, domainerr.Validationf("Expected skill_model_last_updated to be milliseconds, received %v", d["skill_model_last_updated"])
	}
	s.CreatedOn = time.UnixMilli(int64(created)).UTC()
	s.LastUpdated = time.UnixMilli(int64(updated)).UTC()
	return s, nil
}
