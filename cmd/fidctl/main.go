// Command fidctl manages functional id generators from the shell.
package main

import (
	"fmt"
	"os"

	"funcid/cmd/fidctl/commands"
)

func main() {
	if err := commands.NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
