package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

const noModelBanner = "No model selected. Pick one in the Models tab (tab, then enter)."

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case eventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, m.listen())

	case searchDebounceMsg:
		return m, m.handleDebounce(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	// Cursor blink.
	var ciCmd, siCmd tea.Cmd
	m.ChatInput, ciCmd = m.ChatInput.Update(msg)
	m.SearchInput, siCmd = m.SearchInput.Update(msg)
	return m, tea.Batch(ciCmd, siCmd)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.Notice = ""

	switch {
	case key.Matches(msg, m.Keys.ForceQuit):
		return m.shutdown()
	case key.Matches(msg, m.Keys.NextTab):
		return m.switchTab(m.ActiveTab.Next())
	}

	switch m.ActiveTab {
	case models.TabModels:
		return m.handleModelsKey(msg)
	case models.TabSearch:
		return m.handleSearchKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

// handleChatKey treats q, j, k, g and G as commands only while the draft is
// empty. Arrows, paging, home and end always scroll.
func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	if isTyping(msg) && m.ChatInput.Value() != "" {
		return m.typeChat(msg)
	}

	switch {
	case key.Matches(msg, m.Keys.Send):
		return m.sendChat()
	case key.Matches(msg, m.Keys.Quit):
		return m.shutdown()
	case key.Matches(msg, m.Keys.Up):
		m.Chat.ScrollBy(-1)
	case key.Matches(msg, m.Keys.Down):
		m.Chat.ScrollBy(1)
	case key.Matches(msg, m.Keys.PageUp):
		m.Chat.ScrollBy(-m.Chat.HalfPage())
	case key.Matches(msg, m.Keys.PageDown):
		m.Chat.ScrollBy(m.Chat.HalfPage())
	case key.Matches(msg, m.Keys.Top):
		m.Chat.ScrollTop()
	case key.Matches(msg, m.Keys.Bottom):
		m.Chat.ScrollBottom()
	case key.Matches(msg, m.Keys.Dismiss):
		m.Chat.Dismiss()
	case key.Matches(msg, m.Keys.Copy):
		m.copyText(m.Chat.LastReply())
	default:
		return m.typeChat(msg)
	}
	return nil
}

func (m *Model) typeChat(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	m.ChatInput, cmd = m.ChatInput.Update(msg)
	return cmd
}

func (m *Model) sendChat() tea.Cmd {
	if m.Chat.Streaming() {
		return nil
	}
	text := strings.TrimSpace(m.ChatInput.Value())
	if text == "" {
		m.Logger.Debug("send ignored", "err", errkind.ErrEmptyInput)
		return nil
	}

	if text == "/clear" || text == "/reset" {
		m.ResetSession()
		return nil
	}

	if m.Chat.ActiveModel == "" {
		m.Chat.Banner = noModelBanner
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	model := m.Chat.ActiveModel
	gen, transcript := m.Chat.Begin(text, cancel)
	m.ChatInput.Reset()
	m.refreshChat()

	m.Logger.Debug("chat request", "gen", gen, "model", model, "messages", len(transcript))
	go m.emit().streamChat(ctx, m.Backend, gen, model, transcript)
	return m.ensureSpinner()
}

// ResetSession clears the transcript and the draft when no reply is in flight.
func (m *Model) ResetSession() {
	if !m.Chat.Clear() {
		return
	}
	m.rendered = map[int]string{}
	m.ChatInput.Reset()
	m.refreshChat()
}

func (m *Model) handleModelsKey(msg tea.KeyMsg) tea.Cmd {
	height := m.modelsHeight()

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m.shutdown()
	case key.Matches(msg, m.Keys.Up):
		m.Catalog.Move(-1)
	case key.Matches(msg, m.Keys.Down):
		m.Catalog.Move(1)
	case key.Matches(msg, m.Keys.PageUp):
		m.Catalog.Move(-height)
	case key.Matches(msg, m.Keys.PageDown):
		m.Catalog.Move(height)
	case key.Matches(msg, m.Keys.Top):
		m.Catalog.First()
	case key.Matches(msg, m.Keys.Bottom):
		m.Catalog.Last()
	case key.Matches(msg, m.Keys.Select):
		return m.selectModel()
	case key.Matches(msg, m.Keys.Reload):
		return m.loadCatalog()
	case key.Matches(msg, m.Keys.Dismiss):
		m.Catalog.Banner = ""
	case key.Matches(msg, m.Keys.Copy):
		if entry, ok := m.Catalog.Selected(); ok {
			m.copyText(entry.Name, true)
		}
	}

	m.Catalog.Scroll.EnsureVisible(height, len(m.Catalog.Entries))
	return nil
}

func (m *Model) selectModel() tea.Cmd {
	entry, ok := m.Catalog.Selected()
	if !ok {
		return nil
	}
	m.Chat.ActiveModel = entry.Name
	if m.Chat.Banner == noModelBanner {
		m.Chat.Banner = ""
	}
	m.Logger.Debug("model selected", "model", entry.Name)
	return m.switchTab(models.TabChat)
}

func (m *Model) loadCatalog() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	gen := m.Catalog.BeginLoad(cancel)

	m.Logger.Debug("catalog load", "gen", gen)
	go m.emit().listModels(ctx, m.Backend, gen)
	return m.ensureSpinner()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	if m.Search.Editing {
		return m.editSearch(msg)
	}

	height := m.searchHeight()

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m.shutdown()
	case key.Matches(msg, m.Keys.Search):
		m.Search.Editing = true
		return m.SearchInput.Focus()
	case key.Matches(msg, m.Keys.Up):
		m.Search.Move(-1)
	case key.Matches(msg, m.Keys.Down):
		m.Search.Move(1)
	case key.Matches(msg, m.Keys.PageUp):
		m.Search.Move(-height)
	case key.Matches(msg, m.Keys.PageDown):
		m.Search.Move(height)
	case key.Matches(msg, m.Keys.Top):
		m.Search.First()
	case key.Matches(msg, m.Keys.Bottom):
		m.Search.Last()
	case key.Matches(msg, m.Keys.Submit):
		return m.submitSearch(strings.TrimSpace(m.SearchInput.Value()))
	case key.Matches(msg, m.Keys.Dismiss):
		m.Search.Dismiss()
	case key.Matches(msg, m.Keys.Copy):
		if result, ok := m.Search.Selected(); ok {
			m.copyText(result.Name, true)
		}
	}

	m.Search.Scroll.EnsureVisible(height, len(m.Search.Results))
	return nil
}

// editSearch feeds the query draft. Every change re-arms the debounce timer;
// enter submits at once.
func (m *Model) editSearch(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.Keys.Submit):
		m.stopEditing()
		return m.submitSearch(strings.TrimSpace(m.SearchInput.Value()))
	case key.Matches(msg, m.Keys.Dismiss):
		m.stopEditing()
		m.Search.ArmDebounce()
		return nil
	}

	before := m.SearchInput.Value()
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	if m.SearchInput.Value() == before {
		return cmd
	}
	return tea.Batch(cmd, debounce(m.Debounce, m.Search.ArmDebounce()))
}

func (m *Model) stopEditing() {
	m.Search.Editing = false
	m.SearchInput.Blur()
}

func (m *Model) handleDebounce(msg searchDebounceMsg) tea.Cmd {
	if !m.Search.DebounceCurrent(msg.Seq) {
		return nil
	}
	query := strings.TrimSpace(m.SearchInput.Value())
	if query == m.Search.Query && m.Search.Mode != models.SearchIdle {
		return nil
	}
	return m.submitSearch(query)
}

func (m *Model) submitSearch(query string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	gen := m.Search.Submit(query, cancel)

	m.Logger.Debug("search request", "gen", gen, "query", query)
	go m.emit().search(ctx, m.Searcher, gen, query)
	return m.ensureSpinner()
}

// switchTab leaves the current tab, cancelling a streaming reply, and issues
// the request the new tab needs. A loaded catalog is only refreshed with r.
func (m *Model) switchTab(t models.Tab) tea.Cmd {
	prev := m.ActiveTab
	if t == prev {
		return nil
	}

	if prev == models.TabChat && m.Chat.Cancel() {
		m.Logger.Debug("chat cancelled by tab switch", "gen", m.Chat.Generation())
	}
	if prev == models.TabSearch && m.Search.Editing {
		m.stopEditing()
	}
	m.ActiveTab = t

	switch t {
	case models.TabModels:
		m.ChatInput.Blur()
		if !m.Catalog.Loaded && !m.Catalog.Loading {
			return m.loadCatalog()
		}
		return nil
	case models.TabSearch:
		m.ChatInput.Blur()
		if m.Search.Mode == models.SearchIdle {
			return m.submitSearch("")
		}
		return nil
	default:
		return m.ChatInput.Focus()
	}
}

func (m *Model) handleEvent(ev tea.Msg) tea.Cmd {
	switch ev := ev.(type) {
	case chatTokenEvent:
		if !m.Chat.ApplyToken(ev.Gen, ev.Token) {
			m.Logger.Debug("dropped chat token", "gen", ev.Gen, "current", m.Chat.Generation())
			return nil
		}
		m.refreshChat()

	case chatDoneEvent:
		if !m.Chat.Finish(ev.Gen) {
			m.Logger.Debug("dropped chat finish", "gen", ev.Gen)
			return nil
		}
		m.Logger.Debug("chat finished", "gen", ev.Gen)
		m.refreshChat()

	case chatFailedEvent:
		cancelling := m.Chat.Cancelling()
		if !m.Chat.Fail(ev.Gen, ev.Err) {
			m.Logger.Debug("dropped chat failure", "gen", ev.Gen, "err", ev.Err)
			return nil
		}
		if cancelling || !errkind.Visible(ev.Err) {
			m.Logger.Debug("chat cancel acknowledged", "gen", ev.Gen)
		} else {
			m.Logger.Warn("chat failed", "gen", ev.Gen, "kind", errkind.Classify(ev.Err), "err", ev.Err)
		}
		m.refreshChat()

	case catalogLoadedEvent:
		if !m.Catalog.ApplyLoad(ev.Gen, ev.Entries, ev.Err) {
			m.Logger.Debug("dropped stale catalog", "gen", ev.Gen)
			return nil
		}
		if ev.Err != nil {
			m.Logger.Warn("catalog load failed", "gen", ev.Gen, "kind", errkind.Classify(ev.Err), "err", ev.Err)
		} else {
			m.Logger.Debug("catalog loaded", "gen", ev.Gen, "models", len(ev.Entries))
		}

	case searchResultsEvent:
		if !m.Search.Apply(ev.Gen, ev.Results, ev.Err) {
			m.Logger.Debug("dropped stale search", "gen", ev.Gen, "query", ev.Query)
			return nil
		}
		if ev.Err != nil {
			m.Logger.Warn("search failed", "query", ev.Query, "kind", errkind.Classify(ev.Err), "err", ev.Err)
		} else {
			m.Logger.Debug("search finished", "query", ev.Query, "results", len(ev.Results))
		}
	}
	return nil
}

// shutdown cancels every outstanding request before quitting.
func (m *Model) shutdown() tea.Cmd {
	m.Chat.Cancel()
	m.Catalog.Cancel()
	m.Search.Cancel()
	if !m.quitting {
		m.quitting = true
		close(m.done)
	}
	return tea.Quit
}

func (m *Model) busy() bool {
	return m.Chat.Streaming() || m.Catalog.Loading || m.Search.Mode == models.SearchLoading
}

func (m *Model) ensureSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.Spinner.Tick
}

func (m *Model) copyText(text string, ok bool) {
	if !ok {
		return
	}
	if err := m.clipboard(text); err != nil {
		m.Logger.Warn("clipboard write failed", "err", err)
		m.Notice = "Copy failed: " + err.Error()
		return
	}
	m.Notice = "Copied " + TruncateRunes(firstLine(text), 40)
}
