package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for histatlas.

To load completions:

Bash:
  $ source <(histatlas completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ histatlas completion bash > /etc/bash_completion.d/histatlas
  # macOS:
  $ histatlas completion bash > $(brew --prefix)/etc/bash_completion.d/histatlas

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ histatlas completion zsh > "${fpath[1]}/_histatlas"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ histatlas completion fish | source

  # To load completions for each session, execute once:
  $ histatlas completion fish > ~/.config/fish/completions/histatlas.fish

PowerShell:
  PS> histatlas completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> histatlas completion powershell > histatlas.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}
