package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/merge"
	"github.com/halvorsen/ledger/internal/vcserr"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge a branch into the current one",
	Long: `Runs the already-up-to-date / fast-forward / three-way decision
tree (§4.11). A three-way merge with conflicting paths writes literal
"<<<<<<<"/"======="/">>>>>>>" markers into the affected files and
indexes them as conflicts; the branch ref is left untouched until the
conflicts are resolved and committed (§7).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		author, err := currentAuthor()
		if err != nil {
			return err
		}

		result, err := r.Merge(args[0], author, time.Now())
		if err != nil {
			if vcserr.KindOf(err) == vcserr.MergeConflict {
				paths := vcserr.PathsOf(err)
				fmt.Printf("conflict in %d file(s):\n", len(paths))
				for _, p := range paths {
					fmt.Printf("  %s\n", p)
				}
				fmt.Println("resolve the conflicts and commit to finish the merge")
			}
			return err
		}

		switch result.Status {
		case merge.UpToDate:
			fmt.Println("already up to date")
		case merge.FastForward:
			fmt.Printf("fast-forward to %s\n", result.NewHead)
		case merge.ThreeWay:
			fmt.Printf("merge commit %s\n", result.NewHead)
		}
		return nil
	},
}
