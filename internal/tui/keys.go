package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/taskplan/internal/views"
)

type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Replan  key.Binding
	Local   key.Binding
	Apply   key.Binding
	Report  key.Binding
	Palette key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous block")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next block")),
		Replan:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "replan")),
		Local:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "replan locally")),
		Apply:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply blocks")),
		Report:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "toggle report")),
		Palette: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "command palette")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Replan, k.Apply, k.Palette, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Report},
		{k.Replan, k.Local, k.Apply},
		{k.Palette, k.Help, k.Quit},
	}
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	var plain []string
	for _, group := range m.Keys.FullHelp() {
		for _, b := range group {
			plain = append(plain, fmt.Sprintf("- %s: %s", b.Help().Key, b.Help().Desc))
		}
	}
	return "\n\n" + views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(m.Keys),
	})
}
