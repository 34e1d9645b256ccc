package commands

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for oclmem.

To load completions:

Bash:
  $ oclmem completion bash > ~/.local/share/bash-completion/completions/oclmem

Zsh:
  $ oclmem completion zsh > ~/.zsh/completion/_oclmem

Fish:
  $ oclmem completion fish > ~/.config/fish/completions/oclmem.fish

PowerShell:
  PS> oclmem completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

func init() {
	registerFlagCompletions()
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return cmd.Root().GenBashCompletion(out)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

// registerFlagCompletions offers the fixed values of enumerated flags
func registerFlagCompletions() {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}

	rootCmd.RegisterFlagCompletionFunc("backend", fixed(
		"host\tBuilt-in host runtime",
		"opencl\tSystem OpenCL library",
	))
	rootCmd.RegisterFlagCompletionFunc("zero-fill", fixed(
		"default\tBuild-time strategy",
		"device\tFill command on the device",
		"host_write\tWrite a zeroed host buffer",
	))
	rootCmd.RegisterFlagCompletionFunc("log-level", fixed("debug", "info", "warn", "error"))
}
