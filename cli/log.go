package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/objects"
)

var logOneline bool
var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history from HEAD",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		commits, err := r.Log()
		if err != nil {
			return err
		}
		if logLimit > 0 && len(commits) > logLimit {
			commits = commits[:logLimit]
		}
		for _, c := range commits {
			printCommit(c)
		}
		return nil
	},
}

func printCommit(c *objects.Commit) {
	d, _, _ := objects.BuildCommit(*c)
	if logOneline {
		fmt.Printf("%s %s\n", shortDigest(d), firstLine(c.Message))
		return
	}
	fmt.Printf("commit %s\n", d)
	fmt.Printf("Author: %s\n", c.Author)
	fmt.Printf("Date:   %s\n\n", c.AuthorTime)
	fmt.Printf("    %s\n\n", c.Message)
}

func shortDigest(s fmt.Stringer) string {
	full := s.String()
	if len(full) > 10 {
		return full[:10]
	}
	return full
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "show one line per commit")
	logCmd.Flags().IntVar(&logLimit, "limit", 0, "limit the number of commits shown")
}
