package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/repo"
)

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "List, create, or delete branches",
	Long: `With no argument, lists every branch, marking the checked-out one
with "*". With a name, creates a new branch at the current HEAD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		if len(args) == 0 {
			return listBranches(r)
		}
		if err := r.CreateBranch(args[0]); err != nil {
			return err
		}
		fmt.Printf("created branch %q\n", args[0])
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()
		if err := r.DeleteBranch(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted branch %q\n", args[0])
		return nil
	},
}

func listBranches(r *repo.Repo) error {
	names, err := r.ListBranches()
	if err != nil {
		return err
	}
	current, onBranch, err := r.Refs.CurrentBranch()
	if err != nil {
		return err
	}
	for _, n := range names {
		marker := " "
		if onBranch && n == current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, n)
	}
	return nil
}

func init() {
	branchCmd.AddCommand(branchDeleteCmd)
}
