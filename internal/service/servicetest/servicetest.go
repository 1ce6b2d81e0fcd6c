// Package servicetest provides in-memory implementations of the service
// boundaries for tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/events"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

// MemRepo is an in-memory Repository that stores skills in dict form, so
// every load goes through FromDict like the Postgres store does.
type MemRepo struct {
	mu        sync.Mutex
	Skills    map[string]dict.Dict
	Versions  map[string]int
	summaries map[string]skill.Summary
	rights    map[string]skill.Rights
	Commits   map[string][]store.Commit
	mastery   map[string]skill.UserSkillMastery
}

func NewMemRepo() *MemRepo {
	return &MemRepo{
		Skills:    map[string]dict.Dict{},
		Versions:  map[string]int{},
		summaries: map[string]skill.Summary{},
		rights:    map[string]skill.Rights{},
		Commits:   map[string][]store.Commit{},
		mastery:   map[string]skill.UserSkillMastery{},
	}
}

func (r *MemRepo) CreateSkill(_ context.Context, sk *skill.Skill, rights skill.Rights, c store.Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Skills[sk.ID()]; ok {
		return store.ErrVersionConflict
	}
	r.put(sk, c)
	r.rights[sk.ID()] = rights
	return nil
}

func (r *MemRepo) UpdateSkill(_ context.Context, sk *skill.Skill, expected int, c store.Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.Versions[sk.ID()]
	if !ok {
		return store.ErrNotFound
	}
	if v != expected {
		return store.ErrVersionConflict
	}
	r.put(sk, c)
	return nil
}

func (r *MemRepo) put(sk *skill.Skill, c store.Commit) {
	r.Skills[sk.ID()] = sk.ToDict()
	r.Versions[sk.ID()] = sk.Version()
	r.summaries[sk.ID()] = sk.Summary()
	r.Commits[sk.ID()] = append(r.Commits[sk.ID()], c)
}

// PutRaw stores a dict as is, bypassing validation.
func (r *MemRepo) PutRaw(d dict.Dict, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := d["id"].(string)
	r.Skills[id] = d
	r.Versions[id] = version
}

func (r *MemRepo) GetSkill(_ context.Context, id string) (*skill.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.Skills[id]
	if !ok {
		return nil, fmt.Errorf("get skill %s: %w", id, store.ErrNotFound)
	}
	sk, err := skill.FromDict(dict.Clone(d).(map[string]interface{}))
	if err != nil {
		return nil, store.LoadError(id, err)
	}
	sk.SetStorageMetadata(r.Versions[id], sk.CreatedOn(), sk.LastUpdated())
	return sk, nil
}

func (r *MemRepo) GetSummary(_ context.Context, id string) (skill.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[id]
	if !ok {
		return skill.Summary{}, store.ErrNotFound
	}
	return s, nil
}

func (r *MemRepo) ListSummaries(context.Context) ([]skill.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]skill.Summary, 0, len(r.summaries))
	for _, s := range r.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemRepo) ListCommits(_ context.Context, id string) ([]store.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Commit{}, r.Commits[id]...), nil
}

func (r *MemRepo) GetRights(_ context.Context, id string) (skill.Rights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.rights[id]
	if !ok {
		return skill.Rights{}, store.ErrNotFound
	}
	return rt, nil
}

func (r *MemRepo) SaveRights(_ context.Context, rt skill.Rights, c store.Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rights[rt.SkillID]; !ok {
		return store.ErrNotFound
	}
	r.rights[rt.SkillID] = rt
	r.Commits[rt.SkillID] = append(r.Commits[rt.SkillID], c)
	return nil
}

func (r *MemRepo) GetMastery(_ context.Context, userID, skillID string) (skill.UserSkillMastery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mastery[userID+"/"+skillID]
	if !ok {
		return skill.UserSkillMastery{}, store.ErrNotFound
	}
	return m, nil
}

func (r *MemRepo) PutMastery(_ context.Context, m skill.UserSkillMastery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mastery[m.UserID+"/"+m.SkillID] = m
	return nil
}

// MemGraph is an in-memory Graph.
type MemGraph struct {
	mu    sync.Mutex
	Edges map[string][]string
	Err   error
}

func NewMemGraph() *MemGraph { return &MemGraph{Edges: map[string][]string{}} }

func (g *MemGraph) SyncSkill(_ context.Context, id, _ string, _ int, prereqs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	g.Edges[id] = append([]string{}, prereqs...)
	return nil
}

func (g *MemGraph) reachable(from string) map[string]struct{} {
	seen := map[string]struct{}{}
	queue := append([]string{}, g.Edges[from]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, g.Edges[id]...)
	}
	return seen
}

func (g *MemGraph) WouldCreateCycle(_ context.Context, skillID, prereqID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return false, g.Err
	}
	_, ok := g.reachable(prereqID)[skillID]
	return ok || skillID == prereqID, nil
}

func (g *MemGraph) Prerequisites(_ context.Context, skillID string, transitive bool) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	if !transitive {
		out := append([]string{}, g.Edges[skillID]...)
		sort.Strings(out)
		return out, nil
	}
	out := make([]string, 0)
	for id := range g.reachable(skillID) {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// MemPublisher records published events.
type MemPublisher struct {
	mu     sync.Mutex
	Events []events.SkillCommitted
}

func (p *MemPublisher) Publish(_ context.Context, ev events.SkillCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
	return nil
}
