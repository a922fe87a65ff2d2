package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowgraph/pkg/nodes"
)

func (c *CLI) kindsCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the node kinds",
		Long: `List the node kinds a model may use, whether they refine into simpler
nodes and whether the configured compiler accepts them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			compilable := make(map[string]bool)
			for _, k := range cfg.Compiler.Kinds {
				compilable[k] = true
			}

			var rows [][]string
			for _, info := range nodes.Kinds() {
				rows = append(rows, []string{
					info.Kind,
					strings.Join(info.Inputs, ", "),
					check(info.Refinable),
					check(compilable[info.Kind]),
					info.Description,
				})
			}
			headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("Kind", "Inputs", "Refines", "Compiles", "Description").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					base := lipgloss.NewStyle().Padding(0, 1)
					switch {
					case row == -1:
						return headerStyle.Padding(0, 1)
					case col == 0:
						return base.Foreground(colorCyan)
					case col == 4:
						return base.Foreground(colorGray)
					}
					return base
				})
			fmt.Println(t.Render())
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "refinement policy file (default: ./"+configFile+" if present)")
	return cmd
}

func check(ok bool) string {
	if ok {
		return iconSuccess
	}
	return ""
}
