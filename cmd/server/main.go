package main

import (
	"os"

	"github.com/Skufu/postcovid-risk/internal/cli"
)

func main() {
	os.Exit(cli.Execute(commandArgs(os.Args[1:])...))
}

// commandArgs starts the HTTP server when the binary is run bare.
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"serve"}
	}
	return args
}
