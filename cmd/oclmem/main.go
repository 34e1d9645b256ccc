package main

import (
	"os"

	"github.com/gitter-badger/ocl/cmd/oclmem/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
