// Package main provides the entry point for the cmsindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/cmsindex/cmd/cmsindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
