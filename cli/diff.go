package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/history"
	"github.com/halvorsen/ledger/internal/repo"
	"github.com/halvorsen/ledger/internal/store"
	"github.com/halvorsen/ledger/internal/treebuilder"
)

var diffCached bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show line-level changes between the index and the working tree",
	Long: `By default compares the index to the working directory; with
--cached compares HEAD to the index instead. The engine itself stops at
reporting which paths changed (§4.12); the line-level hunks below are a
CLI-only rendering, not an engine guarantee (§4 Non-goals: no
Myers-style diff inside the engine).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		idx, err := r.ReadIndex()
		if err != nil {
			return err
		}

		if diffCached {
			before, err := committedDigests(r)
			if err != nil {
				return err
			}
			after := map[string]digest.Digest{}
			for p, e := range idx.Map() {
				after[p] = e.Digest
			}
			return printDiff(r.Store, before, after)
		}

		before := map[string]digest.Digest{}
		for p, e := range idx.Map() {
			before[p] = e.Digest
		}
		working, err := scanWorkingTree(r)
		if err != nil {
			return err
		}
		after := map[string]digest.Digest{}
		for _, w := range working {
			after[w.Path] = w.Digest
		}
		return printDiff(r.Store, before, after)
	},
}

// committedDigests flattens HEAD's tree into a flat path->digest map,
// empty for a repository with no commits yet.
func committedDigests(r *repo.Repo) (map[string]digest.Digest, error) {
	head, err := r.Refs.GetHead()
	if err != nil {
		return nil, err
	}
	if !head.Resolved {
		return map[string]digest.Digest{}, nil
	}
	c, err := history.ReadCommit(r.Store, head.Digest)
	if err != nil {
		return nil, err
	}
	flat, err := treebuilder.Flatten(r.Store, c.Tree)
	if err != nil {
		return nil, err
	}
	out := make(map[string]digest.Digest, len(flat))
	for p, e := range flat {
		out[p] = e.Digest
	}
	return out, nil
}

// printDiff renders one unified-ish hunk per path whose digest changed
// between before and after, plus whole-file add/remove hunks for paths
// present on only one side.
func printDiff(s *store.ObjectStore, before, after map[string]digest.Digest) error {
	paths := map[string]bool{}
	for p := range before {
		paths[p] = true
	}
	for p := range after {
		paths[p] = true
	}

	for _, p := range sortedKeys(paths) {
		b, hasBefore := before[p]
		a, hasAfter := after[p]
		switch {
		case hasBefore && !hasAfter:
			fmt.Printf("--- %s\n+++ /dev/null\n", p)
			printRemovedLines(s, b)
		case !hasBefore && hasAfter:
			fmt.Printf("--- /dev/null\n+++ %s\n", p)
			printAddedLines(s, a)
		case b != a:
			fmt.Printf("--- %s\n+++ %s\n", p, p)
			if err := printLineDiff(s, b, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func readLines(s *store.ObjectStore, d digest.Digest) ([]string, error) {
	_, content, err := s.Read(d)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(content), "\n"), nil
}

func printAddedLines(s *store.ObjectStore, d digest.Digest) {
	lines, err := readLines(s, d)
	if err != nil {
		return
	}
	for _, l := range lines {
		fmt.Printf("+%s\n", l)
	}
}

func printRemovedLines(s *store.ObjectStore, d digest.Digest) {
	lines, err := readLines(s, d)
	if err != nil {
		return
	}
	for _, l := range lines {
		fmt.Printf("-%s\n", l)
	}
}

// printLineDiff renders a minimal, LCS-based line diff between the two
// blobs' contents. It's a display convenience for the CLI, not an
// engine primitive (§4 Non-goals).
func printLineDiff(s *store.ObjectStore, before, after digest.Digest) error {
	a, err := readLines(s, before)
	if err != nil {
		return err
	}
	b, err := readLines(s, after)
	if err != nil {
		return err
	}
	for _, op := range lcsDiff(a, b) {
		fmt.Println(op)
	}
	return nil
}

// lcsDiff computes a classic O(n*m) longest-common-subsequence line
// diff and renders it as git-style " ", "-", "+" prefixed lines.
func lcsDiff(a, b []string) []string {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var out []string
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, " "+a[i])
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			out = append(out, "-"+a[i])
			i++
		default:
			out = append(out, "+"+b[j])
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, "-"+a[i])
	}
	for ; j < m; j++ {
		out = append(out, "+"+b[j])
	}
	return out
}

func init() {
	diffCmd.Flags().BoolVar(&diffCached, "cached", false, "compare HEAD to the index instead of the index to the working tree")
}
