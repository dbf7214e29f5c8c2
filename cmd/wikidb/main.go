// Command wikidb stores and queries the structured data of wiki pages.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/wikidb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
