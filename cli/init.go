package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/repo"
)

var initBranch string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new repository in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("init takes no arguments, got %d", len(args))
		}
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		r, err := repo.Init(workDir, initBranch)
		if err != nil {
			return err
		}
		defer r.Close()
		fmt.Printf("Initialized empty ledger repository in %s\n", r.MetaDir)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initBranch, "initial-branch", "main", "name of the first branch")
}
