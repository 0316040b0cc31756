package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"ollamatui/internal/models"
)

type KeyMap struct {
	NextTab   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	Send    key.Binding
	Select  key.Binding
	Reload  key.Binding
	Search  key.Binding
	Submit  key.Binding
	Dismiss key.Binding
	Copy    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),

		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "use model")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Copy:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
	}
}

// TabHelp lists the bindings shown in the footer of tab t.
func (k KeyMap) TabHelp(t models.Tab, editing bool) []key.Binding {
	switch t {
	case models.TabModels:
		return []key.Binding{k.NextTab, k.Up, k.Down, k.Select, k.Reload, k.Copy, k.Quit}
	case models.TabSearch:
		if editing {
			return []key.Binding{k.Submit, k.Dismiss, k.ForceQuit}
		}
		return []key.Binding{k.NextTab, k.Search, k.Up, k.Down, k.Submit, k.Copy, k.Quit}
	default:
		return []key.Binding{k.NextTab, k.Send, k.Up, k.Down, k.Top, k.Bottom, k.Copy, k.Quit}
	}
}

// isTyping reports whether msg is printable text rather than a command.
func isTyping(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace
}
