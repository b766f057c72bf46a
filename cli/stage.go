package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/repo"
)

var stageCmd = &cobra.Command{
	Use:   "stage <path>...",
	Short: "Add file contents to the index",
	Long: `Hashes each given path as a blob and records it in the index.

A directory argument (including ".") stages every regular file beneath
it, skipping the repository's own metadata directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("stage requires at least one path")
		}
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		paths, err := expandStagePaths(r, args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files matched")
		}
		if err := r.Stage(paths); err != nil {
			return err
		}
		fmt.Printf("staged %d file(s)\n", len(paths))
		return nil
	},
}

// expandStagePaths turns CLI path arguments (files or directories,
// relative to the working directory) into a flat, de-duplicated list
// of file paths relative to r.WorkDir, with the repository metadata
// directory always excluded.
func expandStagePaths(r *repo.Repo, args []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, arg := range args {
		full := arg
		if !filepath.IsAbs(full) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			full = filepath.Join(cwd, arg)
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("stage: %w", err)
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(r.WorkDir, full)
			if err != nil {
				return nil, err
			}
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			continue
		}
		err = filepath.Walk(full, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(r.WorkDir, p)
			if relErr != nil {
				return relErr
			}
			if fi.IsDir() {
				if rel == repo.MetaDirName || filepath.Base(rel) == repo.MetaDirName {
					return filepath.SkipDir
				}
				return nil
			}
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
