// Package main is the entry point of riimctl, the command line client of riimtools.
package main

import "github.com/aristath/riimtools/internal/cli"

func main() {
	cli.Execute()
}
