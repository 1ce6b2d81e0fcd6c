package skill

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/skillbook/internal/content"
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/schema"
)

func newTestSkill(t *testing.T) *Skill {
	t.Helper()
	s := CreateDefaultSkill(strings.Repeat("a", IDLength), "desc", DefaultRubrics())
	if err := s.Validate(); err != nil {
		t.Fatalf("default skill invalid: %v", err)
	}
	return s
}

func requireMessage(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("got error %q, want it to contain %q", err.Error(), want)
	}
}

func TestCreateDefaultSkillValidates(t *testing.T) {
	s := newTestSkill(t)
	if s.NextMisconceptionID() != 0 {
		t.Errorf("got watermark %d, want 0", s.NextMisconceptionID())
	}
	if got := s.Contents().Explanation().ContentID; got != DefaultExplanationContentID {
		t.Errorf("got explanation id %q, want %q", got, DefaultExplanationContentID)
	}
	if got := s.LanguageCode(); got != "en" {
		t.Errorf("got language %q, want en", got)
	}
	if _, ok := s.SupersedingSkillID(); ok {
		t.Error("default skill should not be superseded")
	}
}

func TestNewSkillID(t *testing.T) {
	id := NewSkillID()
	if err := RequireValidSkillID(id); err != nil {
		t.Fatalf("generated id %q invalid: %v", id, err)
	}
	if id == NewSkillID() {
		t.Error("expected distinct ids")
	}
	requireMessage(t, RequireValidSkillID("short"), "Invalid skill id.")
}

func TestDuplicateMisconceptionID(t *testing.T) {
	s := newTestSkill(t)
	s.AddMisconception(NewMisconception(0, "First", "", "", true))
	if s.NextMisconceptionID() != 1 {
		t.Fatalf("got watermark %d, want 1", s.NextMisconceptionID())
	}
	s.AddMisconception(NewMisconception(0, "Second", "", "", true))
	err := s.Validate()
	requireMessage(t, err, "Duplicate misconception ID found: 0")
	if !domainerr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMisconceptionWatermark(t *testing.T) {
	s := newTestSkill(t)
	for _, id := range []int{0, 4, 2, 7, 1} {
		s.AddMisconception(NewMisconception(id, "Name", "", "", false))
		for _, m := range s.Misconceptions() {
			if m.ID >= s.NextMisconceptionID() {
				t.Fatalf("id %d not below watermark %d", m.ID, s.NextMisconceptionID())
			}
		}
	}
	if s.NextMisconceptionID() != 8 {
		t.Errorf("got watermark %d, want 8", s.NextMisconceptionID())
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMisconceptionOutOfBounds(t *testing.T) {
	s := New(Params{
		ID:                          strings.Repeat("b", IDLength),
		Description:                 "desc",
		Rubrics:                     DefaultRubrics(),
		Contents:                    newTestSkill(t).Contents(),
		Misconceptions:              []Misconception{NewMisconception(3, "Name", "", "", true)},
		NextMisconceptionID:         3,
		MisconceptionsSchemaVersion: CurrentMisconceptionsSchemaVersion,
		RubricSchemaVersion:         CurrentRubricSchemaVersion,
		SkillContentsSchemaVersion:  CurrentSkillContentsSchemaVersion,
		LanguageCode:                "en",
	})
	requireMessage(t, s.Validate(), "The misconception with id 3 is out of bounds.")
}

func TestMisconceptionMutations(t *testing.T) {
	s := newTestSkill(t)
	s.AddMisconception(NewMisconception(0, "Name", "<p>notes</p>", "<p>feedback</p>", true))

	if err := s.UpdateMisconceptionName(0, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := s.UpdateMisconceptionNotes(0, "<p>new notes</p>"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	if err := s.UpdateMisconceptionFeedback(0, "<p>new feedback</p>"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if err := s.UpdateMisconceptionMustBeAddressed(0, false); err != nil {
		t.Fatalf("must_be_addressed: %v", err)
	}
	got := s.Misconceptions()[0]
	want := Misconception{ID: 0, Name: "Renamed", Notes: "<p>new notes</p>", Feedback: "<p>new feedback</p>"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	err := s.UpdateMisconceptionName(9, "x")
	requireMessage(t, err, "There is no misconception with the given id.")
	if !domainerr.IsOperation(err) {
		t.Errorf("expected operation error, got %v", err)
	}

	if err := s.DeleteMisconception(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Misconceptions()) != 0 {
		t.Error("misconception not deleted")
	}
	if s.NextMisconceptionID() != 1 {
		t.Errorf("delete lowered the watermark to %d", s.NextMisconceptionID())
	}
	requireMessage(t, s.DeleteMisconception(0), "There is no misconception with the given id.")
}

func TestMisconceptionNameValidation(t *testing.T) {
	s := newTestSkill(t)
	s.AddMisconception(NewMisconception(0, "", "", "", true))
	requireMessage(t, s.Validate(), "misconception_name field should not be empty.")
}

func TestPrerequisites(t *testing.T) {
	s := newTestSkill(t)
	requireMessage(t, s.DeletePrerequisiteSkill("abc"), "not a prerequisite skill")

	if err := s.AddPrerequisiteSkill("abc"); err != nil {
		t.Fatalf("add: %v", err)
	}
	requireMessage(t, s.AddPrerequisiteSkill("abc"), "already a prerequisite skill")
	if err := s.DeletePrerequisiteSkill("abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.PrerequisiteSkillIDs()) != 0 {
		t.Errorf("got %v, want none", s.PrerequisiteSkillIDs())
	}

	s.ReplacePrerequisiteSkills([]string{"x", ""})
	requireMessage(t, s.Validate(), "Expected each skill ID to be a non-empty string")
}

func TestWorkedExamplesReconcile(t *testing.T) {
	s := newTestSkill(t)
	examples := []content.SubtitledHTML{
		content.NewSubtitledHTML("c1", "<p>one</p>"),
		content.NewSubtitledHTML("c2", "<p>two</p>"),
	}
	if err := s.UpdateWorkedExamples(examples); err != nil {
		t.Fatalf("set examples: %v", err)
	}
	requireContentIDs(t, s, "c1", "c2", "explanation")

	if err := s.UpdateWorkedExamples(nil); err != nil {
		t.Fatalf("clear examples: %v", err)
	}
	requireContentIDs(t, s, "explanation")
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContentIDInvariantAcrossUpdates(t *testing.T) {
	s := newTestSkill(t)
	steps := []func() error{
		func() error { return s.UpdateExplanation(content.NewSubtitledHTML("expl2", "<p>x</p>")) },
		func() error {
			return s.UpdateWorkedExamples([]content.SubtitledHTML{content.NewSubtitledHTML("w1", "")})
		},
		func() error {
			return s.UpdateWorkedExamples([]content.SubtitledHTML{
				content.NewSubtitledHTML("w2", ""), content.NewSubtitledHTML("w1", ""),
			})
		},
		func() error { return s.UpdateExplanation(content.NewSubtitledHTML("expl3", "")) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		requireContentIDs(t, s, s.Contents().ContentIDs()...)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateExplanationFailureLeavesSkillUntouched(t *testing.T) {
	s := newTestSkill(t)
	if err := s.UpdateWorkedExamples([]content.SubtitledHTML{content.NewSubtitledHTML("w1", "")}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateExplanation(content.NewSubtitledHTML("w1", "")); err == nil {
		t.Fatal("expected error when the new explanation id is already live")
	}
	if got := s.Contents().Explanation().ContentID; got != DefaultExplanationContentID {
		t.Errorf("explanation changed to %q", got)
	}
	requireContentIDs(t, s, "explanation", "w1")
}

func requireContentIDs(t *testing.T, s *Skill, want ...string) {
	t.Helper()
	want = append([]string{}, want...)
	sort.Strings(want)
	c := s.Contents()
	vo := c.RecordedVoiceovers().ContentIDs()
	wt := c.WrittenTranslations().ContentIDs()
	if !reflect.DeepEqual(vo, want) {
		t.Errorf("voiceover ids %v, want %v", vo, want)
	}
	if !reflect.DeepEqual(wt, want) {
		t.Errorf("translation ids %v, want %v", wt, want)
	}
}

func TestRubricValidation(t *testing.T) {
	tests := []struct {
		name    string
		rubrics []Rubric
		want    string
	}{
		{"too few", DefaultRubrics()[:2], "All 3 difficulties should be addressed in rubrics"},
		{"wrong order", []Rubric{
			NewRubric(DifficultyMedium, ""), NewRubric(DifficultyEasy, ""), NewRubric(DifficultyHard, ""),
		}, "The difficulties should be ordered as follows [Easy, Medium, Hard]"},
		{"duplicate", []Rubric{
			NewRubric(DifficultyEasy, ""), NewRubric(DifficultyEasy, ""), NewRubric(DifficultyHard, ""),
		}, "Duplicate rubric found for: Easy"},
		{"too many", append(DefaultRubrics(), NewRubric("Impossible", "")), "Invalid difficulty received for rubric: Impossible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestSkill(t).params()
			p.Rubrics = tt.rubrics
			requireMessage(t, New(p).Validate(), tt.want)
		})
	}
}

func TestUpdateRubric(t *testing.T) {
	s := newTestSkill(t)
	if err := s.UpdateRubric(DifficultyHard, "<p>hard</p>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Rubrics()[2].Explanation; got != "<p>hard</p>" {
		t.Errorf("got %q", got)
	}
	requireMessage(t, s.UpdateRubric("Trivial", "x"), "There is no rubric for the given difficulty.")
	if len(s.Rubrics()) != 3 {
		t.Error("UpdateRubric must not create rubrics")
	}
}

func TestCoPresence(t *testing.T) {
	s := newTestSkill(t)
	s.RecordAllQuestionsMerged(true)
	requireMessage(t, s.Validate(), "Expected a value for superseding_skill_id")

	s = newTestSkill(t)
	s.UpdateSupersedingSkillID("bbbbbbbbbbbb")
	requireMessage(t, s.Validate(), "Expected a value for all_questions_merged")

	s.RecordAllQuestionsMerged(true)
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLazyValidation(t *testing.T) {
	s := newTestSkill(t)
	s.UpdateDescription("")
	s.UpdateLanguageCode("zz-not-a-language")
	requireMessage(t, s.Validate(), "Description field should not be empty")
	s.UpdateDescription("ok")
	requireMessage(t, s.Validate(), "Invalid language code: zz-not-a-language")
}

func TestSchemaVersionMismatch(t *testing.T) {
	p := newTestSkill(t).params()
	p.MisconceptionsSchemaVersion = 1
	requireMessage(t, New(p).Validate(), "Expected misconceptions schema version to be 2, received 1")
}

func populatedSkill(t *testing.T) *Skill {
	t.Helper()
	s := newTestSkill(t)
	s.AddMisconception(NewMisconception(0, "Sign error", "<p>n</p>", "<p>f</p>", true))
	s.AddMisconception(NewMisconception(3, "Off by one", "", "", false))
	if err := s.UpdateWorkedExamples([]content.SubtitledHTML{content.NewSubtitledHTML("w1", "<p>ex</p>")}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPrerequisiteSkill("cccccccccccc"); err != nil {
		t.Fatal(err)
	}
	s.UpdateSupersedingSkillID("dddddddddddd")
	s.RecordAllQuestionsMerged(true)
	return s
}

func TestSkillDictRoundTrip(t *testing.T) {
	s := populatedSkill(t)

	parsed, err := FromDict(s.ToDict())
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	if !reflect.DeepEqual(parsed.ToDict(), s.ToDict()) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", parsed.ToDict(), s.ToDict())
	}
	if len(parsed.AppliedMigrations()) != 0 {
		t.Errorf("current blobs should not migrate, got %v", parsed.AppliedMigrations())
	}

	// Through JSON numbers decode as float64.
	raw, err := json.Marshal(s.ToDict())
	if err != nil {
		t.Fatal(err)
	}
	var loose dict.Dict
	if err := json.Unmarshal(raw, &loose); err != nil {
		t.Fatal(err)
	}
	fromJSON, err := FromDict(loose)
	if err != nil {
		t.Fatalf("from json dict: %v", err)
	}
	if !reflect.DeepEqual(fromJSON.ToDict(), s.ToDict()) {
		t.Error("json round trip mismatch")
	}
	if err := fromJSON.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSkillDictRoundTripKeepsVoiceovers(t *testing.T) {
	s := populatedSkill(t)
	p := s.params()
	vo := p.Contents.RecordedVoiceovers()
	vo.VoiceoversMapping[DefaultExplanationContentID]["en"] = content.Voiceover{
		Filename: "intro.mp3", FileSizeBytes: 2048, DurationSecs: 3.25,
	}
	wt := p.Contents.WrittenTranslations()
	wt.TranslationsMapping["w1"]["fr"] = content.NewWrittenTranslation("<p>exemple</p>", false)
	p.Contents = NewSkillContents(p.Contents.Explanation(), p.Contents.WorkedExamples(), vo, wt)
	withAudio := New(p)
	if err := withAudio.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(withAudio.ToDict())
	if err != nil {
		t.Fatal(err)
	}
	var loose dict.Dict
	if err := json.Unmarshal(raw, &loose); err != nil {
		t.Fatal(err)
	}
	parsed, err := FromDict(loose)
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	got := parsed.Contents().RecordedVoiceovers().VoiceoversMapping[DefaultExplanationContentID]["en"]
	if got.Filename != "intro.mp3" || got.FileSizeBytes != 2048 || got.DurationSecs != 3.25 {
		t.Errorf("voiceover lost in round trip: %+v", got)
	}
	if tr := parsed.Contents().WrittenTranslations().TranslationsMapping["w1"]["fr"]; tr.HTML != "<p>exemple</p>" {
		t.Errorf("translation lost in round trip: %+v", tr)
	}
	if !reflect.DeepEqual(parsed.ToDict(), withAudio.ToDict()) {
		t.Error("json round trip mismatch")
	}
}

func TestNonFiniteVoiceoverFailsValidation(t *testing.T) {
	p := newTestSkill(t).params()
	vo := p.Contents.RecordedVoiceovers()
	vo.VoiceoversMapping[DefaultExplanationContentID]["en"] = content.Voiceover{
		Filename: "intro.mp3", FileSizeBytes: 1, DurationSecs: math.NaN(),
	}
	p.Contents = NewSkillContents(p.Contents.Explanation(), p.Contents.WorkedExamples(), vo, p.Contents.WrittenTranslations())
	requireMessage(t, New(p).Validate(), "Expected duration_secs to be a non-negative number")
}

func TestFromDictMigratesMisconceptions(t *testing.T) {
	d := populatedSkill(t).ToDict()
	d["misconceptions_schema_version"] = 1
	d["misconceptions"] = []interface{}{
		map[string]interface{}{"id": 0, "name": "Sign error", "notes": "", "feedback": ""},
		map[string]interface{}{"id": 3, "name": "Off by one", "notes": "", "feedback": ""},
	}

	s, err := FromDict(d)
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	if s.MisconceptionsSchemaVersion() != CurrentMisconceptionsSchemaVersion {
		t.Errorf("got version %d", s.MisconceptionsSchemaVersion())
	}
	for _, m := range s.Misconceptions() {
		if !m.MustBeAddressed {
			t.Errorf("misconception %d did not gain must_be_addressed", m.ID)
		}
	}
	want := []schema.Step{{Family: FamilyMisconceptions, From: 1, To: 2}}
	if !reflect.DeepEqual(s.AppliedMigrations(), want) {
		t.Errorf("got steps %v, want %v", s.AppliedMigrations(), want)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFromDictRejectsFutureSchema(t *testing.T) {
	d := populatedSkill(t).ToDict()
	d["rubric_schema_version"] = CurrentRubricSchemaVersion + 1
	_, err := FromDict(d)
	if !domainerr.IsMigration(err) {
		t.Fatalf("expected migration error, got %v", err)
	}
}

func TestFromDictMissingKey(t *testing.T) {
	d := populatedSkill(t).ToDict()
	delete(d, "rubrics")
	_, err := FromDict(d)
	requireMessage(t, err, "Missing key rubrics in skill dict")
}

func TestMigrationsChainComplete(t *testing.T) {
	if err := Migrations.Verify(); err != nil {
		t.Fatalf("migration chain incomplete: %v", err)
	}
}

func TestMisconceptionsV1ToV2(t *testing.T) {
	blob := schema.VersionedBlob{SchemaVersion: 1, Payload: []interface{}{
		map[string]interface{}{"id": 0, "name": "a", "notes": "", "feedback": ""},
		map[string]interface{}{"id": 1, "name": "b", "notes": "", "feedback": ""},
	}}
	out, steps, err := Migrations.Migrate(FamilyMisconceptions, blob)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out.SchemaVersion != 2 || len(steps) != 1 {
		t.Fatalf("got version %d after %d steps", out.SchemaVersion, len(steps))
	}
	for i, item := range out.Payload.([]interface{}) {
		m := item.(map[string]interface{})
		if m["must_be_addressed"] != true {
			t.Errorf("item %d: must_be_addressed = %v", i, m["must_be_addressed"])
		}
	}
	if _, ok := blob.Payload.([]interface{})[0].(map[string]interface{})["must_be_addressed"]; ok {
		t.Error("input blob was modified")
	}

	again, steps, err := Migrations.Migrate(FamilyMisconceptions, out)
	if err != nil || len(steps) != 0 || !reflect.DeepEqual(again, out) {
		t.Errorf("migrating a current blob should be a no-op, got %v %v %v", again, steps, err)
	}
}

func TestSummary(t *testing.T) {
	s := populatedSkill(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	s.SetStorageMetadata(4, created, created.Add(time.Hour))

	sum := s.Summary()
	if sum.MisconceptionCount != 2 || sum.WorkedExamplesCount != 1 || sum.Version != 4 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if err := sum.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := sum.ToDict()
	if d["skill_model_created_on"] != created.UnixMilli() {
		t.Errorf("got created_on %v", d["skill_model_created_on"])
	}
	parsed, err := SummaryFromDict(d)
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	if !reflect.DeepEqual(parsed.ToDict(), d) {
		t.Errorf("got %v, want %v", parsed.ToDict(), d)
	}
	if !parsed.CreatedOn.Equal(sum.CreatedOn) || !parsed.LastUpdated.Equal(sum.LastUpdated) {
		t.Errorf("timestamps changed through dict: got %v/%v, want %v/%v",
			parsed.CreatedOn, parsed.LastUpdated, sum.CreatedOn, sum.LastUpdated)
	}
	if !sum.CreatedOn.Equal(created.Truncate(time.Millisecond)) {
		t.Errorf("got created_on %v, want millisecond precision", sum.CreatedOn)
	}

	sum.MisconceptionCount = -1
	requireMessage(t, sum.Validate(), "Expected misconception_count to be non-negative")
}

func TestRights(t *testing.T) {
	r := NewRights("aaaaaaaaaaaa", "user_1")
	if !r.IsPrivate() || !r.IsCreator("user_1") || r.IsCreator("user_2") {
		t.Errorf("unexpected rights %+v", r)
	}
	parsed, err := RightsFromDict(r.ToDict())
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	if parsed != r {
		t.Errorf("got %+v, want %+v", parsed, r)
	}
}

func TestUserSkillMastery(t *testing.T) {
	m := UserSkillMastery{UserID: "user_1", SkillID: "aaaaaaaaaaaa", DegreeOfMastery: 0.35}
	parsed, err := UserSkillMasteryFromDict(m.ToDict())
	if err != nil {
		t.Fatalf("from dict: %v", err)
	}
	if parsed != m {
		t.Errorf("got %+v, want %+v", parsed, m)
	}
	_, err = UserSkillMasteryFromDict(dict.Dict{"user_id": "u", "skill_id": "s"})
	requireMessage(t, err, "Missing key degree_of_mastery")
}
