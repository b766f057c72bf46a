// Package cli is the cobra command tree consuming internal/repo's
// engine API. Per §7 ("the engine does not print, log, or exit") this
// is the only layer allowed to write to stdout/stderr or call
// os.Exit; every internal/ package returns errors instead.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/config"
	"github.com/halvorsen/ledger/internal/objects"
	"github.com/halvorsen/ledger/internal/repo"
)

const ledgerVersion = "0.1.0"

var showVersion bool

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "ledger is a content-addressable version control system",
	Long:  `ledger tracks snapshots of a directory tree as content-addressed blob, tree, and commit objects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("ledger version %s\n", ledgerVersion)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print the ledger version")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(configCmd)
}

// openRepo discovers the repository rooted at or above the current
// working directory. Every command but init needs this.
func openRepo() (*repo.Repo, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	return repo.Discover(cwd)
}

// currentAuthor resolves the commit/merge identity from config,
// failing with a clear message if user.name/user.email are unset
// (§A.3).
func currentAuthor() (objects.Ident, error) {
	s, err := config.GetAuthor()
	if err != nil {
		return objects.Ident{}, err
	}
	return objects.ParseIdent(s)
}
