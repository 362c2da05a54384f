// Command verify-github is the probe program run by the sandboxed verifier.
// It can also be invoked by hand: verify-github <username> <owner/name>.
package main

import (
	"context"
	"os"

	"github.com/naka-gawa/trustgraph/internal/probe"
)

func main() {
	os.Exit(probe.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
