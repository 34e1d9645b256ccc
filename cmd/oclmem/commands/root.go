package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gitter-badger/ocl/internal/buffer"
	"github.com/gitter-badger/ocl/internal/config"
	"github.com/gitter-badger/ocl/internal/gpu"
	"github.com/gitter-badger/ocl/internal/logging"
)

var (
	cfgFile string
	verbose bool

	v   = viper.New()
	cfg = config.DefaultConfig()
)

// rootCmd represents the base command
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "oclmem",
		Short: "Device memory buffers and mapped memory for OpenCL",
		Long: `oclmem drives device buffers through a command queue: reads, writes,
copies, fills and maps, on an OpenCL device or on the built-in host runtime.

Settings come from $HOME/.oclmem/config.yaml, OCLMEM_* environment
variables and the flags below.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.oclmem/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.String("backend", "host", "runtime backend (host, opencl)")
	flags.String("library", "", "OpenCL library path")
	flags.Int("platform", 0, "OpenCL platform index")
	flags.Int("device", 0, "OpenCL device index")
	flags.String("zero-fill", "default", "zero fill strategy (default, device, host_write)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	v.BindPFlag("runtime.backend", flags.Lookup("backend"))
	v.BindPFlag("runtime.library", flags.Lookup("library"))
	v.BindPFlag("runtime.platform", flags.Lookup("platform"))
	v.BindPFlag("runtime.device", flags.Lookup("device"))
	v.BindPFlag("buffer.zero_fill", flags.Lookup("zero-fill"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))

	root.AddCommand(newVersionCommand(), newInfoCommand(), newBenchCommand(), completionCmd)
	return root
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies it to the logging and
// buffer packages before any subcommand runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	cfg = loaded

	if err := logging.Init(cfg.LoggingOptions()); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	z, err := buffer.ParseZeroFill(cfg.Buffer.ZeroFill)
	if err != nil {
		return err
	}
	buffer.SetDefaultZeroFill(z)

	if used := v.ConfigFileUsed(); used != "" {
		logging.Debugf("Using config file: %s", used)
	}
	return nil
}

// openRuntime opens the configured runtime and a queue on it. The caller
// releases the queue and closes the runtime.
func openRuntime() (gpu.Runtime, gpu.Queue, error) {
	rt, err := gpu.OpenRuntime(cfg.RuntimeOptions())
	if err != nil {
		return nil, gpu.Queue{}, fmt.Errorf("opening %s runtime: %w", cfg.Runtime.Backend, err)
	}
	q, err := gpu.NewQueue(rt, 0)
	if err != nil {
		rt.Close()
		return nil, gpu.Queue{}, err
	}
	return rt, q, nil
}
