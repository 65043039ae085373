// capturevision runs template-driven capture pipelines over image files.
//
// Usage:
//
//	capturevision license <key>
//	capturevision templates validate|list|show
//	capturevision capture <image> --pipeline <name> [--format table|markdown|json] [--out <dir>]
//	capturevision batch <images...> --pipeline <name> [--parallel N] [--stable]
//	capturevision journal [--limit N]
//	capturevision serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
