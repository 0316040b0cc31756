package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"ollamatui/internal/models"
)

const (
	defaultWidth    = 80
	defaultHeight   = 24
	defaultDebounce = 350 * time.Millisecond

	// Fixed chrome around the tab bodies.
	tabBarHeight = 2
	bannerHeight = 1
	footerHeight = 1
	inputHeight  = 3
	headerHeight = 1
)

// ChatBackend is the language-model server.
type ChatBackend interface {
	StreamChat(ctx context.Context, model string, messages []models.ChatMessage, onToken func(string) error) error
	ListModels(ctx context.Context) ([]models.ModelEntry, error)
}

// Searcher is the remote model registry.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

type Options struct {
	Backend  ChatBackend
	Searcher Searcher
	Logger   *slog.Logger

	// Host is only displayed.
	Host     string
	Debounce time.Duration

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// Model is the whole application state. It is only touched from Update.
type Model struct {
	ActiveTab models.Tab
	Chat      *ChatSession
	Catalog   *ModelCatalog
	Search    *SearchSession

	Backend  ChatBackend
	Searcher Searcher
	Logger   *slog.Logger
	Host     string
	Debounce time.Duration

	ChatInput   textinput.Model
	SearchInput textinput.Model
	Viewport    viewport.Model
	Spinner     spinner.Model
	Help        help.Model
	Keys        KeyMap
	Renderer    *glamour.TermRenderer

	WindowWidth  int
	WindowHeight int

	// Notice is a one-shot footer message, cleared on the next key.
	Notice string

	clipboard func(string) error
	events    chan tea.Msg
	done      chan struct{}
	spinning  bool
	quitting  bool

	chatLines   []string
	rendered    map[int]string
	renderWidth int
}
