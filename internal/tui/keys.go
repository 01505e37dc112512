package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Quit   key.Binding
	Reset  key.Binding
	Export key.Binding
	Yank   key.Binding
	Help   key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new wall")),
	Export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export snapshot")),
	Yank:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy hovered url")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Quit, k.Reset, k.Export, k.Yank, k.Help}
}

var (
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func (k keyMap) short() string {
	parts := make([]string, 0, len(k.bindings()))
	for _, b := range k.bindings() {
		parts = append(parts, helpKeyStyle.Render(b.Help().Key)+" "+helpDescStyle.Render(b.Help().Desc))
	}
	return strings.Join(parts, "  ")
}

func (k keyMap) full() string {
	var b strings.Builder
	b.WriteString(helpKeyStyle.Render("mouse") + "  " + helpDescStyle.Render("drag a tile onto another cell to swap, click an empty cell for a new image") + "\n")
	for _, kb := range k.bindings() {
		b.WriteString(helpKeyStyle.Width(6).Render(kb.Help().Key) + helpDescStyle.Render(kb.Help().Desc) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
