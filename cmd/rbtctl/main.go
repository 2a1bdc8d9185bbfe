// Package main provides the entry point for the rbtctl CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/benz9527/xrbt/cmd/rbtctl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
