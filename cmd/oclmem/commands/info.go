package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gitter-badger/ocl/internal/buffer"
	"github.com/gitter-badger/ocl/internal/gpu"
	"github.com/gitter-badger/ocl/internal/system"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show runtime and device information",
		Long: `Display the selected runtime and the properties of its device that
matter to buffers: OpenCL version (fill needs 1.2), sub-buffer alignment
and global memory size.`,
		Args: cobra.NoArgs,
		RunE: runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	rt, q, err := openRuntime()
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Runtime error: %v", err)))
		return err
	}
	defer rt.Close()
	defer q.Release()

	version := rt.Version()
	fill := "supported"
	if !version.AtLeast(1, 2) {
		fill = "unsupported, use zero_fill: host_write"
	}

	device := [][2]string{
		row("Backend", "%s", cfg.Runtime.Backend),
		row("Device", "%s", rt.Name()),
		row("Type", "%s", rt.Type()),
		row("OpenCL version", "%s", version),
		row("Fill command", "%s", fill),
		row("Sub-buffer align", "%d bytes", rt.MemBaseAddrAlign()),
		row("Global memory", "%s", system.FormatBytes(rt.GlobalMemSize())),
		row("Zero fill", "%s", buffer.DefaultZeroFill()),
	}
	fmt.Fprintln(out, section("Device", device))

	if host, ok := rt.(*gpu.HostRuntime); ok {
		stats := host.PoolStats()
		fmt.Fprintln(out, section("Host pool", [][2]string{
			row("Limit", "%s", system.FormatBytes(cfg.Runtime.PoolMaxBytes)),
			row("Allocations", "%d", stats.Allocations),
			row("Reuses", "%d", stats.Reuses),
			row("Evictions", "%d", stats.Evictions),
		}))
	}

	sys := [][2]string{
		row("OS", "%s/%s", runtime.GOOS, runtime.GOARCH),
		row("CPUs", "%d", runtime.NumCPU()),
	}
	if ram, err := system.GetRAMInfo(); err == nil {
		sys = append(sys,
			row("RAM total", "%s", system.FormatBytes(ram.TotalBytes)),
			row("RAM available", "%s", system.FormatBytes(ram.AvailableBytes)))
	}
	fmt.Fprintln(out, section("System", sys))
	return nil
}
