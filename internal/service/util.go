package service

import (
	"sort"

	"github.com/google/uuid"

	"github.com/nidhogg/skillbook/internal/dict"
)

func newCommitID() string {
	return uuid.New().String()
}

func cmdNames(cmds []dict.Dict) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if name, ok := c["cmd"].(string); ok {
			out = append(out, name)
		}
	}
	return out
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
