// Command dashctl repairs, validates, lays out, merges and stores Grafana
// dashboard JSON files from the command line. Results go to stdout as JSON,
// diagnostics to stderr.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
