package main

import "github.com/naka-gawa/trustgraph/cmd"

func main() {
	cmd.Execute()
}
