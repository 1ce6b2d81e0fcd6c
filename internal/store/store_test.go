package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/skill"
)

// startStore runs a PostgreSQL container and returns a migrated Store.
func startStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("skillbook_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("start postgres (docker unavailable?): %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pg connection string: %v", err)
	}
	s, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestSkillLifecycle(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	id := strings.Repeat("a", skill.IDLength)
	sk := skill.CreateDefaultSkill(id, "Adding fractions", skill.DefaultRubrics())
	sk.SetStorageMetadata(1, now, now)
	rights := skill.NewRights(id, "user_1")
	create := Commit{SkillID: id, Kind: CommitKindSkill, Version: 1, CommitterID: "user_1",
		Message: "New skill created.", Cmds: []dict.Dict{{"cmd": "create_new"}}, Snapshot: sk.ToDict()}

	if err := s.CreateSkill(ctx, sk, rights, create); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateSkill(ctx, sk, rights, create); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("duplicate create: got %v, want ErrVersionConflict", err)
	}

	loaded, err := s.GetSkill(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Version() != 1 || loaded.Description() != "Adding fractions" {
		t.Errorf("unexpected skill version=%d description=%q", loaded.Version(), loaded.Description())
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("loaded skill invalid: %v", err)
	}

	loaded.UpdateDescription("Adding unlike fractions")
	loaded.SetStorageMetadata(2, loaded.CreatedOn(), now.Add(time.Minute))
	update := Commit{SkillID: id, Kind: CommitKindSkill, Version: 2, CommitterID: "user_1",
		Cmds: []dict.Dict{{"cmd": "update_skill_property", "property_name": "description",
			"new_value": "Adding unlike fractions", "old_value": "Adding fractions"}}}
	if err := s.UpdateSkill(ctx, loaded, 1, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateSkill(ctx, loaded, 1, update); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}

	sum, err := s.GetSummary(ctx, id)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Version != 2 || sum.Description != "Adding unlike fractions" {
		t.Errorf("unexpected summary %+v", sum)
	}

	commits, err := s.ListCommits(ctx, id)
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if len(commits) != 2 || commits[1].Cmds[0]["cmd"] != "update_skill_property" {
		t.Fatalf("unexpected commits %+v", commits)
	}
	if commits[0].Snapshot["description"] != "Adding fractions" || commits[1].Snapshot != nil {
		t.Errorf("snapshot not kept on the creation commit only: %v / %v", commits[0].Snapshot, commits[1].Snapshot)
	}

	if _, err := s.GetSkill(ctx, strings.Repeat("z", skill.IDLength)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing skill: got %v, want ErrNotFound", err)
	}
}

func TestGetSkillMigratesStaleBlobs(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	id := strings.Repeat("m", skill.IDLength)
	sk := skill.CreateDefaultSkill(id, "desc", skill.DefaultRubrics())
	sk.SetStorageMetadata(1, time.Now(), time.Now())
	if err := s.CreateSkill(ctx, sk, skill.NewRights(id, "u"), Commit{SkillID: id, Kind: CommitKindSkill, Version: 1, CommitterID: "u"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.db.Exec(ctx, `
		UPDATE skills SET data = jsonb_set(jsonb_set(data,
			'{misconceptions}', '[{"id": 0, "name": "Old", "notes": "", "feedback": ""}]'),
			'{misconceptions_schema_version}', '1')
		WHERE id = $1`, id)
	if err != nil {
		t.Fatalf("downgrade blob: %v", err)
	}
	_, err = s.db.Exec(ctx, `UPDATE skills SET data = jsonb_set(data, '{next_misconception_id}', '1') WHERE id = $1`, id)
	if err != nil {
		t.Fatalf("bump watermark: %v", err)
	}

	loaded, err := s.GetSkill(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.AppliedMigrations()) != 1 {
		t.Errorf("got %d applied migrations, want 1", len(loaded.AppliedMigrations()))
	}
	if m := loaded.Misconceptions(); len(m) != 1 || !m[0].MustBeAddressed {
		t.Errorf("unexpected misconceptions %+v", m)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("migrated skill invalid: %v", err)
	}
}

func TestRightsAndMastery(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	id := strings.Repeat("r", skill.IDLength)
	sk := skill.CreateDefaultSkill(id, "desc", skill.DefaultRubrics())
	sk.SetStorageMetadata(1, time.Now(), time.Now())
	if err := s.CreateSkill(ctx, sk, skill.NewRights(id, "owner"), Commit{SkillID: id, Kind: CommitKindSkill, Version: 1, CommitterID: "owner"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	r, err := s.GetRights(ctx, id)
	if err != nil {
		t.Fatalf("rights: %v", err)
	}
	if !r.IsPrivate() || !r.IsCreator("owner") {
		t.Errorf("unexpected rights %+v", r)
	}
	r.SkillIsPrivate = false
	if err := s.SaveRights(ctx, r, Commit{SkillID: id, Kind: CommitKindRights, Version: 1, CommitterID: "owner",
		Cmds: []dict.Dict{{"cmd": "publish_skill"}}}); err != nil {
		t.Fatalf("save rights: %v", err)
	}
	if r, _ = s.GetRights(ctx, id); r.IsPrivate() {
		t.Error("rights not saved")
	}

	if _, err := s.GetMastery(ctx, "learner", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	m := skill.UserSkillMastery{UserID: "learner", SkillID: id, DegreeOfMastery: 0.4}
	if err := s.PutMastery(ctx, m); err != nil {
		t.Fatalf("put mastery: %v", err)
	}
	m.DegreeOfMastery = 0.7
	if err := s.PutMastery(ctx, m); err != nil {
		t.Fatalf("put mastery again: %v", err)
	}
	got, err := s.GetMastery(ctx, "learner", id)
	if err != nil {
		t.Fatalf("get mastery: %v", err)
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}
}
