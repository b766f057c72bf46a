package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record the staged index as a new commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if commitMessage == "" {
			return fmt.Errorf("commit requires -m \"message\"")
		}
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		author, err := currentAuthor()
		if err != nil {
			return err
		}
		d, err := r.Commit(commitMessage, author, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", d)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
}
