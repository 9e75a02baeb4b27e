// Command example is a demo of the vscroll virtualized list widget.
//
// By default it shows 20,000 fixed-height rows, windowed so that only the
// visible handful is ever rendered. With -markdown it switches to
// variable-height rows rendered through glamour, where heights are unknown
// until a row is first materialized and the engine converges on measured
// values as you scroll.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/miosa/vscroll/list"
)

const rowCount = 20000

// ---------------------------------------------------------------------------
// Key bindings
// ---------------------------------------------------------------------------

// keyMap defines the demo's navigation bindings.
type keyMap struct {
	Quit         key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Prepend      key.Binding
	DropTop      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f", "space"),
			key.WithHelp("pgdn", "page down"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "half page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Prepend: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prepend rows (anchor demo)"),
		),
		DropTop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "drop top rows (anchor demo)"),
		),
	}
}

// ---------------------------------------------------------------------------
// Row types
// ---------------------------------------------------------------------------

var (
	indexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(8)
	rowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))
	markStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
)

// fixedRow is a single-line item for the fixed-height mode.
type fixedRow struct {
	id    string
	label string
}

func (r fixedRow) ID() string          { return r.id }
func (r fixedRow) ContentVersion() int { return 1 }
func (r fixedRow) Render(width int) string {
	line := indexStyle.Render(r.id) + rowStyle.Render(r.label)
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// markdownRow renders its body through glamour, so its height depends on the
// width and the markdown structure — unknown until materialized.
type markdownRow struct {
	id string
	md string
}

func (r markdownRow) ID() string          { return r.id }
func (r markdownRow) ContentVersion() int { return 1 }
func (r markdownRow) Render(width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return r.md
	}
	out, err := renderer.Render(r.md)
	if err != nil {
		return r.md
	}
	return strings.TrimRight(out, "\n")
}

var markdownBodies = []string{
	"# Heading\n\nA short paragraph that wraps with the terminal width.",
	"- first\n- second\n- third\n- fourth",
	"Some `inline code` and a bit of **bold** text.",
	"```go\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n```",
	"> A block quote spanning\n> a couple of lines.",
	"Plain single-line row.",
}

func fixedItems(n, from int) []list.Item {
	items := make([]list.Item, n)
	for i := range items {
		items[i] = fixedRow{
			id:    fmt.Sprintf("row-%d", from+i),
			label: fmt.Sprintf("fixed-height row %d of %d", from+i, rowCount),
		}
	}
	return items
}

func markdownItems(n, from int) []list.Item {
	items := make([]list.Item, n)
	for i := range items {
		items[i] = markdownRow{
			id: fmt.Sprintf("md-%d", from+i),
			md: fmt.Sprintf("%s\n\n_item %d_", markdownBodies[(from+i)%len(markdownBodies)], from+i),
		}
	}
	return items
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type model struct {
	list     list.Model
	keys     keyMap
	markdown bool
	width    int
	height   int

	// nextID disambiguates rows added by the prepend demo.
	nextID int
}

func newModel(markdown bool) (model, error) {
	opts := []list.Option{list.WithOverscan(3)}
	if markdown {
		opts = append(opts, list.WithEstimatedHeight(4))
	} else {
		opts = append(opts, list.WithFixedHeight(1))
	}
	l, err := list.New(opts...)
	if err != nil {
		return model{}, err
	}
	m := model{list: l, keys: defaultKeyMap(), markdown: markdown, nextID: rowCount}
	if markdown {
		m.list.SetItems(markdownItems(rowCount/10, 0))
	} else {
		m.list.SetItems(fixedItems(rowCount, 0))
	}
	return m, nil
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// One column for the scrollbar, one line for the status bar.
		m.list.SetSize(msg.Width-1, msg.Height-1)
		return m, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches[tea.KeyPressMsg](msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches[tea.KeyPressMsg](msg, m.keys.ScrollUp):
			m.list.ScrollUp(1)
		case key.Matches[tea.KeyPressMsg](msg, m.keys.ScrollDown):
			m.list.ScrollDown(1)
		case key.Matches[tea.KeyPressMsg](msg, m.keys.PageUp):
			m.list.PageUp()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.PageDown):
			m.list.PageDown()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.HalfPageUp):
			m.list.HalfPageUp()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.HalfPageDown):
			m.list.HalfPageDown()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.Top):
			m.list.ScrollToTop()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.Bottom):
			m.list.ScrollToBottom()
		case key.Matches[tea.KeyPressMsg](msg, m.keys.Prepend):
			// Rows added above the viewport: the content on screen must not
			// move — that is the anchor-preservation path.
			var rows []list.Item
			if m.markdown {
				rows = markdownItems(5, m.nextID)
			} else {
				rows = fixedItems(5, m.nextID)
			}
			m.nextID += 5
			m.list.PrependItems(rows...)
		case key.Matches[tea.KeyPressMsg](msg, m.keys.DropTop):
			if m.list.Len() > 10 {
				m.list.RemoveItems(0, 5)
			}
		}
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (m model) render() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	body := joinColumns(m.list.View(), m.list.Scrollbar(), m.height-1)
	return body + "\n" + m.statusLine()
}

func (m model) statusLine() string {
	w := m.list.Window()
	mode := "fixed"
	if m.markdown {
		mode = "markdown"
	}
	status := fmt.Sprintf(" %s · rows %d · window [%d,%d) · line %d/%d · q quits",
		mode, m.list.Len(), w.Start, w.End, m.list.ScrollOffset(), m.list.TotalHeight())
	return markStyle.Render(status)
}

// joinColumns pads the content block to height lines and glues the scrollbar
// column onto its right edge.
func joinColumns(content, bar string, height int) string {
	contentLines := strings.Split(content, "\n")
	for len(contentLines) < height {
		contentLines = append(contentLines, "")
	}
	barLines := strings.Split(bar, "\n")
	var b strings.Builder
	for i := 0; i < height; i++ {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(contentLines[i])
		if bar != "" && i < len(barLines) {
			b.WriteString(" " + barLines[i])
		}
	}
	return b.String()
}

func main() {
	markdown := flag.Bool("markdown", false, "variable-height markdown rows instead of fixed-height rows")
	flag.Parse()

	m, err := newModel(*markdown)
	if err != nil {
		fmt.Fprintf(os.Stderr, "example: %v\n", err)
		os.Exit(1)
	}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "example: %v\n", err)
		os.Exit(1)
	}
}
