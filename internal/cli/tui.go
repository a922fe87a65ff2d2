package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	detailLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	detailBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// NodeListModel - Interactive node browser
// =============================================================================

// NodeListModel is the bubbletea model of "inspect --interactive".
type NodeListModel struct {
	Name   string
	Rows   []nodeRow
	Cursor int
	Offset int
	Height int
}

func newNodeListModel(name string, rows []nodeRow) NodeListModel {
	return NodeListModel{Name: name, Rows: rows, Height: 12}
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m = m.moveTo(m.Cursor - 1)
		case "down", "j":
			m = m.moveTo(m.Cursor + 1)
		case "pgup":
			m = m.moveTo(m.Cursor - m.Height)
		case "pgdown":
			m = m.moveTo(m.Cursor + m.Height)
		case "home", "g":
			m = m.moveTo(0)
		case "end", "G":
			m = m.moveTo(len(m.Rows) - 1)
		}
	case tea.WindowSizeMsg:
		// Leave room for the title, the table borders and the detail box.
		m.Height = max(msg.Height-16, 5)
		m = m.moveTo(m.Cursor)
	}
	return m, nil
}

// moveTo places the cursor at i, clamped to the rows, and scrolls it into
// view.
func (m NodeListModel) moveTo(i int) NodeListModel {
	m.Cursor = min(max(i, 0), max(len(m.Rows)-1, 0))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Name))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(StyleDim.Render("no nodes"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Rows))
	b.WriteString(nodeTable(m.Rows, m.Cursor, m.Offset, end).Render())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))
	b.WriteString("\n")
	b.WriteString(m.detail())

	return b.String()
}

// detail describes the node under the cursor.
func (m NodeListModel) detail() string {
	r := m.Rows[m.Cursor]
	line := func(label, value string) string {
		if value == "" {
			value = "—"
		}
		return detailLabelStyle.Render(label) + " " + StyleValue.Render(value) + "\n"
	}
	var b strings.Builder
	b.WriteString(line("node", r.ID+" ("+r.Kind+")"))
	b.WriteString(line("attrs", r.Attrs))
	b.WriteString(line("inputs", strings.Join(r.Inputs, ", ")))
	b.WriteString(line("outputs", strings.Join(r.Outputs, ", ")))
	b.WriteString(line("read by", strings.Join(r.Readers, ", ")))
	b.WriteString(line("action", r.Action))
	return detailBoxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
