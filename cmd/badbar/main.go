// badbar keeps cocktail recipes.
//
// Usage:
//
//	badbar [--backend memory|badger|remote] [--verbose] [--quiet]
//	badbar add --name NAME --ingredient NAME=AMOUNT... --instructions TEXT [--image FILE]
//	badbar list [--principal UID]
//	badbar serve [--addr HOST:PORT]
package main

import (
	"fmt"
	"os"

	"github.com/hammamikhairi/badbar/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
