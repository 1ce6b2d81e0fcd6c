package skill

import (
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/schema"
)

// Schema families of the skill's nested blobs.
const (
	FamilySkillContents  schema.Family = "skill_contents"
	FamilyMisconceptions schema.Family = "misconceptions"
	FamilyRubrics        schema.Family = "rubrics"
)

// Migrations holds the converter chain of every skill blob family. Converters
// are append-only: stored blobs at an old version depend on them forever.
var Migrations = newMigrations()

func newMigrations() *schema.Registry {
	r := schema.NewRegistry()
	r.SetCurrent(FamilySkillContents, CurrentSkillContentsSchemaVersion)
	r.SetCurrent(FamilyMisconceptions, CurrentMisconceptionsSchemaVersion)
	r.SetCurrent(FamilyRubrics, CurrentRubricSchemaVersion)

	mustRegister(r.RegisterEach(FamilyMisconceptions, 1, convertMisconceptionV1ToV2))
	return r
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

// convertMisconceptionV1ToV2 adds must_be_addressed, which v1 lacked.
func convertMisconceptionV1ToV2(m dict.Dict) (dict.Dict, error) {
	m["must_be_addressed"] = true
	return m, nil
}
