package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/repo"
	"github.com/halvorsen/ledger/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staged, unstaged, and untracked paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		working, err := scanWorkingTree(r)
		if err != nil {
			return err
		}
		report, err := r.Status(working)
		if err != nil {
			return err
		}
		printStatusReport(report)
		return nil
	},
}

// scanWorkingTree hashes every regular file under the repository's
// working directory (excluding its metadata directory) into the
// []status.WorkingEntry listing the status engine consumes. Walking
// the filesystem and ignore-matching are a CLI concern, not the
// engine's (§4 Non-goals).
func scanWorkingTree(r *repo.Repo) ([]status.WorkingEntry, error) {
	var entries []status.WorkingEntry
	err := filepath.Walk(r.WorkDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(r.WorkDir, p)
		if relErr != nil {
			return relErr
		}
		if fi.IsDir() {
			if rel == repo.MetaDirName {
				return filepath.SkipDir
			}
			return nil
		}
		content, readErr := os.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		d, _ := objects.HashBlob(content)
		entries = append(entries, status.WorkingEntry{Path: filepath.ToSlash(rel), Digest: d})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status: scan working tree: %w", err)
	}
	return entries, nil
}

func printStatusReport(r status.Report) {
	if r.Clean() {
		fmt.Println("nothing to commit, working tree clean")
		return
	}
	if len(r.Staged) > 0 {
		fmt.Println("staged:")
		for _, c := range r.Staged {
			fmt.Printf("  %s: %s\n", c.Kind, c.Path)
		}
	}
	if len(r.Unstaged) > 0 {
		fmt.Println("not staged:")
		for _, c := range r.Unstaged {
			fmt.Printf("  %s: %s\n", c.Kind, c.Path)
		}
	}
	if len(r.Untracked) > 0 {
		fmt.Println("untracked:")
		for _, p := range r.Untracked {
			fmt.Printf("  %s\n", p)
		}
	}
}
