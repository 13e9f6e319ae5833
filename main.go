package main

import "github.com/agentic-research/devsentinel/cmd"

func main() {
	cmd.Execute()
}
