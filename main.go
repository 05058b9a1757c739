package main

import "github.com/agentic-research/csvgraph/cmd"

func main() {
	cmd.Execute()
}
