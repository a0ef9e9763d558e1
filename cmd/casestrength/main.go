// Command casestrength estimates how strong a case for a legal notice is.
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/casestrength/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
