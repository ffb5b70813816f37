// Package main provides the jotter CLI.
package main

import "github.com/mesh-intelligence/jotter/internal/cli"

func main() {
	cli.Execute()
}
