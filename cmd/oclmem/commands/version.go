package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gitter-badger/ocl/internal/buffer"
)

// Version is the oclmem release.
const Version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "oclmem v%s\n", Version)
			fmt.Fprintln(out, "Device buffers, command builder and mapped memory")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Zero fill: %s (build default %s)\n", buffer.DefaultZeroFill(), buffer.BuildZeroFill())
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		},
	}
}
