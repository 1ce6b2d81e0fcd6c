// Command skillreplay rebuilds a skill from its change log and checks the
// result. The log comes from a JSON file or from a running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/nidhogg/skillbook/internal/change"
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

// replayInput is the file format. Either Commits or ChangeDicts is set.
// Description and Rubrics seed the replay only when the commits carry no
// creation snapshot.
type replayInput struct {
	SkillID     string         `json:"skill_id"`
	Description string         `json:"description"`
	Rubrics     []dict.Dict    `json:"rubrics,omitempty"`
	Commits     []store.Commit `json:"commits,omitempty"`
	ChangeDicts []dict.Dict    `json:"change_dicts,omitempty"`
}

func main() {
	file := flag.String("file", "", "Replay document (JSON); - reads stdin")
	server := flag.String("server", "", "Skillbook server URL to fetch the commit log from")
	skillID := flag.String("skill", "", "Skill id (overrides the document)")
	description := flag.String("description", "", "Initial skill description for logs without a creation snapshot")
	flag.Parse()

	var in replayInput
	var err error
	switch {
	case *file != "":
		in, err = readInput(*file)
	case *server != "" && *skillID != "":
		in.Commits, err = fetchCommits(*server, *skillID)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		printError("Failed to load change log: %v", err)
		os.Exit(1)
	}
	if *skillID != "" {
		in.SkillID = *skillID
	}
	if *description != "" {
		in.Description = *description
	}

	sk, err := replay(in)
	if err != nil {
		printError("Replay failed: %v", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(sk.ToDict(), "", "  ")
	fmt.Println(string(out))

	if err := sk.Validate(); err != nil {
		printError("Replayed skill is invalid: %v", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m skill %s is valid\n", sk.ID())
}

func readInput(path string) (replayInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return replayInput{}, err
		}
		defer f.Close()
		r = f
	}
	var in replayInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return replayInput{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

func fetchCommits(server, skillID string) ([]store.Commit, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(server + "/api/skills/" + skillID + "/commits")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(data))
	}
	var commits []store.Commit
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("parse commits: %w", err)
	}
	return commits, nil
}

// skillCommits returns the skill commits in version order. Rights commits
// do not touch the skill.
func skillCommits(in replayInput) []store.Commit {
	commits := make([]store.Commit, 0, len(in.Commits))
	for _, c := range in.Commits {
		if c.Kind == "" || c.Kind == store.CommitKindSkill {
			commits = append(commits, c)
		}
	}
	sort.SliceStable(commits, func(i, j int) bool { return commits[i].Version < commits[j].Version })
	return commits
}

// changeDicts flattens the skill commits in version order.
func changeDicts(in replayInput) []dict.Dict {
	if len(in.Commits) == 0 {
		return in.ChangeDicts
	}
	var out []dict.Dict
	for _, c := range skillCommits(in) {
		out = append(out, c.Cmds...)
	}
	return out
}

func replay(in replayInput) (*skill.Skill, error) {
	commits := skillCommits(in)
	if len(commits) > 0 && commits[0].Version == 1 && commits[0].Snapshot != nil {
		return replaySnapshot(in, commits)
	}
	if err := skill.RequireValidSkillID(in.SkillID); err != nil {
		return nil, err
	}
	rubrics := skill.DefaultRubrics()
	if len(in.Rubrics) > 0 {
		rubrics = make([]skill.Rubric, 0, len(in.Rubrics))
		for _, d := range in.Rubrics {
			rb, err := skill.RubricFromDict(d)
			if err != nil {
				return nil, err
			}
			rubrics = append(rubrics, rb)
		}
	}
	changes, err := change.DecodeSkillChanges(changeDicts(in))
	if err != nil {
		return nil, err
	}
	return change.Replay(in.SkillID, in.Description, rubrics, changes)
}

// replaySnapshot starts from the skill saved by the creation commit and ends
// at the version of the last commit.
func replaySnapshot(in replayInput, commits []store.Commit) (*skill.Skill, error) {
	base, err := skill.FromDict(commits[0].Snapshot)
	if err != nil {
		return nil, fmt.Errorf("creation snapshot: %w", err)
	}
	if in.SkillID != "" && in.SkillID != base.ID() {
		return nil, fmt.Errorf("creation snapshot is for skill %s, not %s", base.ID(), in.SkillID)
	}
	changes, err := change.DecodeSkillChanges(changeDicts(in))
	if err != nil {
		return nil, err
	}
	sk, err := change.ReplayFrom(base, changes)
	if err != nil {
		return nil, err
	}
	sk.SetStorageMetadata(commits[len(commits)-1].Version, sk.CreatedOn(), sk.LastUpdated())
	return sk, nil
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
