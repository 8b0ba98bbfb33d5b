// Package graph infers job-to-job dependencies from the file paths in a
// parameter bag and reconstructs a project's job tree.
package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

// jobToken matches a job directory token. jobTokens rejects matches that
// are part of a longer word, e.g. "myjob12".
var jobToken = regexp.MustCompile(`job(\d+)`)

var inputNames = sync.OnceValue(func() []string {
	names := append(builder.InputParameterNames(), params.NamesContinueFrom...)
	sort.Strings(names)
	return names
})

// InferParentJobs scans every input-path parameter of bag for job tokens
// and returns them canonicalised, deduplicated and sorted.
func InferParentJobs(bag params.Bag) []string {
	seen := map[string]struct{}{}
	for _, name := range inputNames() {
		v, ok := bag[name]
		if !ok {
			continue
		}
		for _, s := range params.Strings(params.Bag{name: v}, []string{name}) {
			for _, digits := range jobTokens(s) {
				if id, ok := canonical(digits); ok {
					seen[id] = struct{}{}
				}
			}
		}
	}
	return sortedKeys(seen)
}

// ParentJobs returns the explicit parent list when one was given,
// verbatim, and the inferred list otherwise.
func ParentJobs(bag params.Bag) []string {
	if params.Has(bag, params.NamesParentJobs) {
		return params.Strings(bag, params.NamesParentJobs)
	}
	return InferParentJobs(bag)
}

// jobTokens returns the digits of every job token in s that does not
// follow a letter or digit. The greedy match already ends at a non-digit.
func jobTokens(s string) []string {
	var out []string
	for _, loc := range jobToken.FindAllStringSubmatchIndex(s, -1) {
		if loc[0] > 0 && isAlnum(s[loc[0]-1]) {
			continue
		}
		out = append(out, s[loc[2]:loc[3]])
	}
	return out
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func canonical(digits string) (string, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("job%03d", n), true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tree links jobs to their children. Parents that are not in records are
// kept as names so callers can spot dangling references.
func Tree(records []*model.JobRecord) []model.JobTreeNode {
	byName := make(map[string]int, len(records))
	nodes := make([]model.JobTreeNode, 0, len(records))
	for _, r := range records {
		byName[r.JobName] = len(nodes)
		nodes = append(nodes, model.JobTreeNode{
			JobName:  r.JobName,
			JobID:    r.ID,
			Type:     r.Type,
			Status:   r.Status,
			Parents:  append([]string{}, r.Parents...),
			Children: []string{},
		})
	}
	for _, n := range nodes {
		for _, p := range n.Parents {
			if i, ok := byName[strings.TrimSpace(p)]; ok {
				nodes[i].Children = append(nodes[i].Children, n.JobName)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].JobName < nodes[j].JobName })
	for i := range nodes {
		sort.Strings(nodes[i].Children)
	}
	return nodes
}
