package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
)

// nodeRow is one node as shown by inspect.
type nodeRow struct {
	ID         string
	Kind       string
	Attrs      string
	Inputs     []string
	Outputs    []string
	Readers    []string
	Action     string
	Compilable bool
}

func (c *CLI) inspectCommand() *cobra.Command {
	var (
		configPath    string
		refined       bool
		interactive   bool
		maxIterations int
		cacheFlags    cacheOpts
	)

	cmd := &cobra.Command{
		Use:   "inspect [model]",
		Short: "List the nodes of a model",
		Long: `List the nodes of a model with their ports and the action the policy
assigns to them.

With --refined the model is refined first. With --interactive the nodes are
shown in a scrollable browser.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if refined {
				doc, err = c.refineDocument(cmd.Context(), doc, pipeline.Options{
					Config:        cfg,
					MaxIterations: maxIterations,
				}, cacheFlags)
				if err != nil {
					return err
				}
			}
			rows, err := inspectRows(doc, cfg.Context())
			if err != nil {
				return err
			}
			if interactive {
				_, err := tea.NewProgram(newNodeListModel(doc.Name, rows), tea.WithContext(cmd.Context())).Run()
				return err
			}
			printInspect(doc.Name, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "refinement policy file (default: ./"+configFile+" if present)")
	cmd.Flags().BoolVarP(&refined, "refined", "r", false, "refine the model before listing it")
	cmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", 0, "maximum number of refinement passes with --refined")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the nodes interactively")
	cacheFlags.register(cmd)

	return cmd
}

// refineDocument runs the refine pipeline and returns the refined document.
func (c *CLI) refineDocument(ctx context.Context, doc *pkgio.Document, opts pipeline.Options, cacheFlags cacheOpts) (*pkgio.Document, error) {
	runner, err := c.newRunner(ctx, cacheFlags)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	res, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}

// inspectRows builds doc and describes each node under tc.
func inspectRows(doc *pkgio.Document, tc *model.TransformContext) ([]nodeRow, error) {
	_, byID, err := pkgio.Build(doc)
	if err != nil {
		return nil, err
	}

	readers := make(map[string][]string)
	for _, nd := range doc.Nodes {
		for _, in := range nd.Inputs {
			from, _, _ := pkgio.SplitPortRef(in.From)
			if !slices.Contains(readers[from], nd.ID) {
				readers[from] = append(readers[from], nd.ID)
			}
		}
	}

	rows := make([]nodeRow, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		n := byID[nd.ID]
		row := nodeRow{
			ID:         nd.ID,
			Kind:       nd.Kind,
			Attrs:      formatAttrs(nd.Attrs),
			Readers:    readers[nd.ID],
			Action:     tc.NodeAction(n).String(),
			Compilable: tc.IsNodeCompilable(n),
		}
		for _, in := range nd.Inputs {
			row.Inputs = append(row.Inputs, in.Port+" ← "+in.From)
		}
		for _, out := range n.Outputs() {
			row.Outputs = append(row.Outputs, fmt.Sprintf("%s %s[%d]", out.Name(), out.Type(), out.Size()))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatAttrs(attrs map[string]any) string {
	keys := slices.Sorted(maps.Keys(attrs))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return strings.Join(parts, " ")
}

// printInspect prints the summary and the node table.
func printInspect(name string, rows []nodeRow) {
	kinds := make(map[string]int)
	compilable := 0
	for _, r := range rows {
		kinds[r.Kind]++
		if r.Compilable {
			compilable++
		}
	}
	var kindParts []string
	for _, k := range slices.Sorted(maps.Keys(kinds)) {
		kindParts = append(kindParts, fmt.Sprintf("%s×%d", k, kinds[k]))
	}

	fmt.Println(StyleTitle.Render(name))
	printKeyValue("Nodes", StyleNumber.Render(fmt.Sprint(len(rows))))
	printKeyValue("Compilable", fmt.Sprintf("%d/%d", compilable, len(rows)))
	printKeyValue("Kinds", strings.Join(kindParts, " "))
	fmt.Println()
	fmt.Println(nodeTable(rows, -1, 0, len(rows)).Render())
}

// nodeTable renders rows[offset:end]. The row at cursor is highlighted.
func nodeTable(rows []nodeRow, cursor, offset, end int) *table.Table {
	var data [][]string
	for i := offset; i < end; i++ {
		r := rows[i]
		mark := ""
		if r.Compilable {
			mark = iconSuccess
		}
		data = append(data, []string{r.ID, r.Kind, strings.Join(r.Inputs, ", "), strings.Join(r.Outputs, ", "), r.Action, mark})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Kind", "Inputs", "Outputs", "Action", "Compilable").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := offset + row
			base := lipgloss.NewStyle().Padding(0, 1)
			if idx >= len(rows) {
				return base
			}
			switch {
			case idx == cursor:
				return base.Foreground(colorCyan).Bold(true)
			case col == 5:
				return base.Foreground(colorGreen)
			case !rows[idx].Compilable:
				return base.Foreground(colorYellow)
			}
			return base
		})
}
