package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/config"
)

var configGlobal bool

var configCmd = &cobra.Command{
	Use:   "config <key> [value]",
	Short: "Get or set a configuration value",
	Long: `Keys are "section.field", e.g. user.name, user.email, core.editor,
color.ui. With one argument, prints the current value. With two,
sets it in the repository config, or the global config (~/.ledgerconfig)
with --global.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			value, err := config.GetValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}
		return config.SetValue(args[0], args[1], configGlobal)
	},
}

func init() {
	configCmd.Flags().BoolVar(&configGlobal, "global", false, "operate on the global config file instead of the repository one")
}
