// Command ledger is the CLI entrypoint, delegating entirely to the
// cli package's cobra command tree.
package main

import "github.com/halvorsen/ledger/cli"

func main() {
	cli.Execute()
}
