package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/service"
	"github.com/nidhogg/skillbook/internal/service/servicetest"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

const replayDoc = `{
  "skill_id": "rrrrrrrrrrrr",
  "description": "Ratios",
  "commits": [
    {"kind": "skill", "version": 2, "commit_cmds": [
      {"cmd": "add_skill_misconception", "new_misconception_dict": {
        "id": 0, "name": "Swaps terms", "notes": "", "feedback": "", "must_be_addressed": false}}
    ]},
    {"kind": "rights", "version": 2, "commit_cmds": [{"cmd": "publish_skill"}]},
    {"kind": "skill", "version": 1, "commit_cmds": [{"cmd": "create_new"}]},
    {"kind": "skill", "version": 3, "commit_cmds": [
      {"cmd": "update_skill_misconceptions_property", "misconception_id": 0,
       "property_name": "name", "new_value": "Swaps ratio terms", "old_value": "Swaps terms"}
    ]}
  ]
}`

func TestReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, []byte(replayDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := readInput(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sk, err := replay(in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if err := sk.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	ms := sk.Misconceptions()
	if len(ms) != 1 || ms[0].Name != "Swaps ratio terms" {
		t.Errorf("unexpected misconceptions %+v", ms)
	}
}

func TestChangeDictsSkipsRightsCommits(t *testing.T) {
	in := replayInput{Commits: []store.Commit{
		{Kind: store.CommitKindSkill, Version: 2, Cmds: []dict.Dict{{"cmd": "b"}}},
		{Kind: store.CommitKindRights, Version: 1, Cmds: []dict.Dict{{"cmd": "publish_skill"}}},
		{Kind: store.CommitKindSkill, Version: 1, Cmds: []dict.Dict{{"cmd": "a"}}},
	}}
	got := changeDicts(in)
	if len(got) != 2 || got[0]["cmd"] != "a" || got[1]["cmd"] != "b" {
		t.Errorf("unexpected change dicts %v", got)
	}
}

func TestReplayRejectsBadLog(t *testing.T) {
	in := replayInput{SkillID: "rrrrrrrrrrrr", Description: "Ratios", ChangeDicts: []dict.Dict{
		{"cmd": "delete_skill_misconception", "misconception_id": 4},
	}}
	_, err := replay(in)
	if err == nil || !strings.Contains(err.Error(), "change 0") {
		t.Fatalf("got %v, want an indexed change error", err)
	}

	in.SkillID = "short"
	if _, err := replay(in); err == nil {
		t.Fatal("expected an id error")
	}
}

func TestReplayServerCommitLog(t *testing.T) {
	ctx := context.Background()
	svc := service.New(servicetest.NewMemRepo(), zap.NewNop())
	svc.SetGraph(servicetest.NewMemGraph())

	rubrics := skill.DefaultRubrics()
	rubrics[0] = skill.NewRubric(rubrics[0].Difficulty, "<p>Simplify 2:4</p>")
	created, err := svc.CreateSkill(ctx, service.CreateRequest{
		Description: "Ratios", Rubrics: rubrics, CommitterID: "owner",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.ID()
	_, err = svc.UpdateSkill(ctx, service.UpdateRequest{
		SkillID: id, ExpectedVersion: 1, CommitterID: "owner",
		Changes: []dict.Dict{
			{"cmd": "add_skill_misconception", "new_misconception_dict": map[string]interface{}{
				"id": 0, "name": "Swaps terms", "notes": "", "feedback": "", "must_be_addressed": true,
			}},
			{"cmd": "add_prerequisite_skill", "skill_id": "pppppppppppp"},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	commits, err := svc.ListCommits(ctx, id)
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if cmds := commits[0].Cmds; len(cmds) != 1 || len(cmds[0]) != 1 {
		t.Errorf("create_new should carry no attributes, got %v", cmds)
	}
	// Same shape skillreplay -server receives.
	raw, err := json.Marshal(commits)
	if err != nil {
		t.Fatal(err)
	}
	var in replayInput
	if err := json.Unmarshal(raw, &in.Commits); err != nil {
		t.Fatal(err)
	}
	in.SkillID = id

	replayed, err := replay(in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	stored, err := svc.GetSkill(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(replayed.ToDict(), stored.ToDict()) {
		t.Errorf("replay differs from stored skill:\n got %v\nwant %v", replayed.ToDict(), stored.ToDict())
	}

	in.SkillID = strings.Repeat("z", skill.IDLength)
	if _, err := replay(in); err == nil {
		t.Error("expected an error replaying another skill's snapshot")
	}
}
