package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/digest"
)

var checkoutDetached bool

var checkoutCmd = &cobra.Command{
	Use:   "checkout <branch>",
	Short: "Switch the working directory and HEAD to a branch or commit",
	Long: `Materializes the given branch's tip commit into the working
directory and points HEAD at it. With --detached, the argument is
instead read as a commit digest and HEAD is left unattached to any
branch (§3 "Detached HEAD").

Refuses if any tracked path has uncommitted changes in the working
directory, whether or not the target would overwrite it (Invariant P9).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		if checkoutDetached {
			d, err := digest.Parse(args[0])
			if err != nil {
				return fmt.Errorf("checkout --detached: %w", err)
			}
			if err := r.CheckoutDetached(d); err != nil {
				return err
			}
			fmt.Printf("HEAD is now detached at %s\n", d)
			return nil
		}
		if err := r.Checkout(args[0]); err != nil {
			return err
		}
		fmt.Printf("switched to branch %q\n", args[0])
		return nil
	},
}

func init() {
	checkoutCmd.Flags().BoolVar(&checkoutDetached, "detached", false, "checkout a raw commit digest instead of a branch")
}
