package cli

import (
	"slices"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
)

var renderFormats = []string{"svg", "pdf", "png", "dot"}

// completionCommand prints a completion script for the named shell.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Print a shell completion script",
		Long: `Print a shell completion script for flowgraph.

Besides commands and flags, the scripts complete model arguments of refine,
copy, compile, inspect and render to JSON, TOML and YAML documents, --config
to policy files, and --format to the formats each command can write.`,
		Example: `  # Try it in the current bash session
  source <(flowgraph completion bash)

  # Install for every zsh session
  flowgraph completion zsh > "${fpath[1]}/_flowgraph"

  # Install for fish
  flowgraph completion fish > ~/.config/fish/completions/flowgraph.fish

  # PowerShell
  flowgraph completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
	return cmd
}

// registerCompletions attaches argument and flag completions to the
// subcommands of root.
func registerCompletions(root *cobra.Command) {
	docs := documentExtensions()
	for _, cmd := range root.Commands() {
		switch cmd.Name() {
		case "refine", "copy", "compile", "inspect", "render":
			cmd.ValidArgsFunction = modelArgs(docs)
		}
		if cmd.Flags().Lookup("config") != nil {
			_ = cmd.RegisterFlagCompletionFunc("config", fileExt(docs...))
		}
		if cmd.Flags().Lookup("format") == nil {
			continue
		}
		formats := artifactFormats()
		if cmd.Name() == "render" {
			formats = renderFormats
		}
		_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp))
	}
}

// modelArgs completes the single model argument to document files.
func modelArgs(exts []string) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

func fileExt(exts ...string) cobra.CompletionFunc {
	return func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

func documentExtensions() []string {
	exts := make([]string, 0, len(pkgio.Formats)+1)
	for _, f := range pkgio.Formats {
		exts = append(exts, string(f))
	}
	return append(exts, "yml")
}

func artifactFormats() []string {
	formats := make([]string, 0, len(pipeline.ValidFormats))
	for f := range pipeline.ValidFormats {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
