package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ollamatui/internal/logging"
	"ollamatui/internal/models"
	"ollamatui/internal/styles"
)

func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ci := textinput.New()
	ci.Placeholder = "Type a message..."
	ci.Prompt = "❯ "
	ci.CharLimit = 0
	ci.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ci.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.HintColor)
	ci.Focus()

	si := textinput.New()
	si.Placeholder = "Press / to search the registry"
	si.Prompt = "⌕ "
	si.CharLimit = 200
	si.PromptStyle = lipgloss.NewStyle().Foreground(styles.TabColor(models.TabSearch)).Bold(true)
	si.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.HintColor)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	m := &Model{
		ActiveTab:   models.TabChat,
		Chat:        NewChatSession(),
		Catalog:     NewModelCatalog(),
		Search:      NewSearchSession(),
		Backend:     opts.Backend,
		Searcher:    opts.Searcher,
		Logger:      logger,
		Host:        opts.Host,
		Debounce:    debounce,
		ChatInput:   ci,
		SearchInput: si,
		Viewport:    viewport.New(defaultWidth-2, defaultHeight),
		Spinner:     sp,
		Help:        help.New(),
		Keys:        DefaultKeyMap(),
		clipboard:   copyFn,
		events:      make(chan tea.Msg, eventBuffer),
		done:        make(chan struct{}),
		rendered:    map[int]string{},
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Init starts the event listener and the initial catalog load.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.listen(),
		textinput.Blink,
		m.loadCatalog(),
	)
}

func (m *Model) listen() tea.Cmd {
	return waitForEvent(m.events, m.done)
}

func (m *Model) emit() emitter {
	return emitter{events: m.events, done: m.done}
}

func NewProgram(m *Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}
