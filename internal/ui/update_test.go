package ui

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"ollamatui/internal/errkind"
	"ollamatui/internal/logging"
	"ollamatui/internal/models"
)

type chatRequest struct {
	model    string
	messages []models.ChatMessage
}

type fakeBackend struct {
	mu        sync.Mutex
	installed []models.ModelEntry
	listErr   error
	tokens    chan string
	streamErr error
	requests  []chatRequest

	// finished receives what each StreamChat call returned.
	finished chan error
}

func newFakeBackend(names ...string) *fakeBackend {
	f := &fakeBackend{tokens: make(chan string), finished: make(chan error, 8)}
	f.setInstalled(names...)
	return f
}

func (f *fakeBackend) setInstalled(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = nil
	for i, n := range names {
		f.installed = append(f.installed, models.ModelEntry{
			Name:       n,
			Size:       int64(i+1) << 30,
			ModifiedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
}

func (f *fakeBackend) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeBackend) setStreamErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamErr = err
}

func (f *fakeBackend) StreamChat(ctx context.Context, model string, messages []models.ChatMessage, onToken func(string) error) (err error) {
	defer func() {
		select {
		case f.finished <- err:
		default:
		}
	}()

	f.mu.Lock()
	f.requests = append(f.requests, chatRequest{model: model, messages: messages})
	tokens := f.tokens
	f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return errkind.New(errkind.Cancelled, "chat", ctx.Err())
		case tok, ok := <-tokens:
			if !ok {
				f.mu.Lock()
				defer f.mu.Unlock()
				return f.streamErr
			}
			if err := onToken(tok); err != nil {
				return err
			}
		}
	}
}

func (f *fakeBackend) ListModels(context.Context) ([]models.ModelEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.ModelEntry, len(f.installed))
	copy(out, f.installed)
	return out, nil
}

func (f *fakeBackend) lastRequest(t *testing.T) chatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]models.SearchResult
	err     error
	queries []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: map[string][]models.SearchResult{
		"":        {{Name: "llama3.2"}, {Name: "qwen2.5"}, {Name: "gemma2"}},
		"llama":   {{Name: "llama3.2"}, {Name: "codellama"}},
		"mistral": {{Name: "mistral"}, {Name: "mistral-nemo"}},
		"mi":      {{Name: "mistral"}, {Name: "minicpm-v"}},
	}}
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func newTestModel(t *testing.T, backend *fakeBackend, searcher *fakeSearcher) (*Model, *string) {
	t.Helper()
	copied := new(string)
	m := NewModel(Options{
		Backend:  backend,
		Searcher: searcher,
		Host:     "http://localhost:11434",
		Clipboard: func(s string) error {
			*copied = s
			return nil
		},
	})
	t.Cleanup(func() { m.shutdown() })
	return m, copied
}

func nextEvent(t *testing.T, m *Model) tea.Msg {
	t.Helper()
	select {
	case ev := <-m.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

// pump feeds n inbound events through Update.
func pump(t *testing.T, m *Model, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		m.Update(eventMsg{Event: nextEvent(t, m)})
	}
}

// pumpUntil feeds events until done reports true.
func pumpUntil(t *testing.T, m *Model, done func() bool) {
	t.Helper()
	for i := 0; i < 10 && !done(); i++ {
		pump(t, m, 1)
	}
	require.True(t, done())
}

// settle feeds events until no request is in flight.
func settle(t *testing.T, m *Model) {
	t.Helper()
	pumpUntil(t, m, func() bool { return !m.busy() })
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		_, last = m.Update(k)
	}
	return last
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		press(m, runes(string(r)))
	}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyCtrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
	keyCtrlY = tea.KeyMsg{Type: tea.KeyCtrlY}
)

func TestStartupLoadsCatalog(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend("llama3:latest", "qwen2.5:7b"), newFakeSearcher())
	m.Init()
	require.True(t, m.Catalog.Loading)

	pump(t, m, 1)
	require.True(t, m.Catalog.Loaded)
	require.False(t, m.Catalog.Loading)
	require.Equal(t, "llama3:latest", m.Catalog.Entries[0].Name)
	require.Equal(t, "qwen2.5:7b", m.Catalog.Entries[1].Name)
}

func TestStartupLoadFailureHintsAtServer(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.setListErr(errkind.New(errkind.NetworkUnavailable, "list models", errors.New("connection refused")))
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Init()
	pump(t, m, 1)

	require.False(t, m.Catalog.Loaded)
	require.Contains(t, m.Catalog.Banner, "Cannot reach server")
	require.Contains(t, m.Catalog.Banner, "Make sure Ollama is running")
}

func TestStreamedContentIsTokenConcatenation(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("hi there")

	press(m, keyEnter)
	require.True(t, m.Chat.Streaming())
	require.Empty(t, m.ChatInput.Value())
	require.Len(t, m.Chat.Messages, 2)

	for _, tok := range []string{"Hel", "lo", ", ", "world"} {
		backend.tokens <- tok
		pump(t, m, 1)
	}
	close(backend.tokens)
	pump(t, m, 1)

	last := m.Chat.Messages[1]
	require.Equal(t, "Hello, world", last.Content)
	require.True(t, last.Complete)
	require.Empty(t, last.Failure)
	require.False(t, m.Chat.Streaming())

	req := backend.lastRequest(t)
	require.Equal(t, "llama3", req.model)
	require.Equal(t, []models.ChatMessage{{Role: models.RoleUser, Content: "hi there", Complete: true}}, req.messages)
}

func TestTokensAfterCancelDoNotChangeState(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend("llama3")
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("tell me a story")
	press(m, keyEnter)
	gen := m.Chat.Generation()

	backend.tokens <- "Once"
	pump(t, m, 1)

	press(m, keyTab)
	require.Equal(t, models.TabModels, m.ActiveTab)
	require.True(t, m.Chat.Cancelling())
	require.True(t, m.Chat.Streaming())

	m.Update(eventMsg{Event: chatTokenEvent{Gen: gen, Token: " upon"}})
	require.Equal(t, "Once", m.Chat.Messages[1].Content)

	// Tab switch also started a catalog load; its event may arrive first.
	pumpUntil(t, m, func() bool { return !m.Chat.Streaming() })

	last := m.Chat.Messages[1]
	require.Equal(t, "Once", last.Content)
	require.True(t, last.Complete)
	require.Empty(t, last.Failure)
	require.Empty(t, m.Chat.Banner)

	m.Update(eventMsg{Event: chatTokenEvent{Gen: gen, Token: " a time"}})
	require.Equal(t, "Once", m.Chat.Messages[1].Content)
}

func TestStreamFailureKeepsPartialContent(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("hi")
	press(m, keyEnter)

	backend.tokens <- "part"
	pump(t, m, 1)
	backend.setStreamErr(errkind.New(errkind.MalformedResponse, "chat", errors.New("bad chunk")))
	close(backend.tokens)
	pump(t, m, 1)

	last := m.Chat.Messages[1]
	require.Equal(t, "part", last.Content)
	require.True(t, last.Complete)
	require.NotEmpty(t, last.Failure)
	require.Equal(t, ChatError, m.Chat.State())
	require.Contains(t, m.Frame().Banner, "Unexpected response")

	press(m, keyEsc)
	require.Equal(t, ChatIdle, m.Chat.State())
}

func TestEnterWithEmptyDraftIsNoop(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	var logs bytes.Buffer
	m.Logger = logging.New(&logs, slog.LevelDebug)
	m.Chat.ActiveModel = "llama3"

	press(m, keyEnter)
	require.Empty(t, m.Chat.Messages)
	require.Contains(t, logs.String(), "send ignored")
	require.Contains(t, logs.String(), "empty input")

	m.ChatInput.SetValue("   ")
	press(m, keyEnter)
	require.Empty(t, m.Chat.Messages)
	require.False(t, m.Chat.Streaming())
	require.Empty(t, m.Chat.Banner)
}

func TestEnterWhileStreamingIsNoop(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("first")
	press(m, keyEnter)

	m.ChatInput.SetValue("second")
	press(m, keyEnter)
	require.Len(t, m.Chat.Messages, 2)
	require.Equal(t, "second", m.ChatInput.Value())
}

func TestSendWithoutModelShowsBanner(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.ChatInput.SetValue("hello")
	press(m, keyEnter)

	require.Empty(t, m.Chat.Messages)
	require.Equal(t, noModelBanner, m.Chat.Banner)
	require.Equal(t, "hello", m.ChatInput.Value())
	require.Equal(t, ChatIdle, m.Chat.State())
}

func TestClearCommandResetsTranscript(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("hi")
	press(m, keyEnter)
	close(backend.tokens)
	pump(t, m, 1)
	require.Len(t, m.Chat.Messages, 2)

	m.ChatInput.SetValue("/clear")
	press(m, keyEnter)
	require.Empty(t, m.Chat.Messages)
	require.Empty(t, m.ChatInput.Value())
	require.Equal(t, "llama3", m.Chat.ActiveModel)
}

func TestChatCommandKeysOnlyWithEmptyDraft(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())

	typeText(m, "x")
	require.Equal(t, "x", m.ChatInput.Value())
	typeText(m, "jkgGq")
	require.Equal(t, "xjkgGq", m.ChatInput.Value())
	require.False(t, m.quitting)

	m.ChatInput.Reset()
	cmd := press(m, runes("q"))
	require.True(t, m.quitting)
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTabSwitchKeepsScrollStates(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend("a", "b", "c", "d", "e"), newFakeSearcher())
	m.Init()
	pump(t, m, 1)

	press(m, keyTab)
	require.Equal(t, models.TabModels, m.ActiveTab)
	press(m, runes("j"), runes("j"), runes("j"))
	require.Equal(t, 3, m.Catalog.Scroll.Selected)

	press(m, keyTab)
	require.Equal(t, models.TabSearch, m.ActiveTab)
	settle(t, m)
	press(m, runes("j"), runes("j"))
	require.Equal(t, 2, m.Search.Scroll.Selected)

	catalog, search, chat := m.Catalog.Scroll, m.Search.Scroll, m.Chat.Scroll

	for i := 0; i < 6; i++ {
		press(m, keyTab)
		settle(t, m)
	}
	require.Equal(t, models.TabSearch, m.ActiveTab)
	press(m, keyTab, keyTab)
	require.Equal(t, models.TabModels, m.ActiveTab)
	settle(t, m)

	require.Equal(t, catalog, m.Catalog.Scroll)
	require.Equal(t, search, m.Search.Scroll)
	require.Equal(t, chat, m.Chat.Scroll)
	require.Len(t, m.Catalog.Entries, 5)
}

func TestSearchSubmitSupersedesEarlierQuery(t *testing.T) {
	t.Parallel()

	searcher := newFakeSearcher()
	m, _ := newTestModel(t, newFakeBackend("llama3"), searcher)

	press(m, keyTab, keyTab)
	require.Equal(t, models.TabSearch, m.ActiveTab)
	require.Equal(t, models.SearchLoading, m.Search.Mode)
	pump(t, m, 2) // catalog load and trending

	require.Equal(t, models.SearchLoaded, m.Search.Mode)
	require.Equal(t, "", m.Search.Query)
	require.Equal(t, []string{"llama3.2", "qwen2.5", "gemma2"}, resultNames(m.Search.Results))

	m.submitSearch("llama")
	m.submitSearch("mistral")
	pump(t, m, 2)

	require.Equal(t, models.SearchLoaded, m.Search.Mode)
	require.Equal(t, "mistral", m.Search.Query)
	require.Equal(t, []string{"mistral", "mistral-nemo"}, resultNames(m.Search.Results))
}

func TestSearchErrorClearsResults(t *testing.T) {
	t.Parallel()

	searcher := newFakeSearcher()
	m, _ := newTestModel(t, newFakeBackend(), searcher)
	m.ActiveTab = models.TabSearch
	m.Search.Results = []models.SearchResult{{Name: "old"}}

	searcher.err = errkind.New(errkind.NetworkUnavailable, "search", errors.New("no such host"))
	m.submitSearch("llama")
	pump(t, m, 1)

	require.Equal(t, models.SearchErrored, m.Search.Mode)
	require.Empty(t, m.Search.Results)
	require.Contains(t, m.Frame().Banner, "Cannot reach server")

	press(m, keyEsc)
	require.Empty(t, m.Frame().Banner)
	require.Equal(t, models.SearchIdle, m.Search.Mode)
}

func TestSearchEditingDebounce(t *testing.T) {
	t.Parallel()

	searcher := newFakeSearcher()
	m, _ := newTestModel(t, newFakeBackend(), searcher)
	press(m, keyTab, keyTab)
	pump(t, m, 2)

	press(m, runes("/"))
	require.True(t, m.Search.Editing)

	// While editing, navigation letters are typed.
	cmd := press(m, runes("m"))
	require.NotNil(t, cmd)
	stale := m.Search.debounceSeq
	press(m, runes("i"))
	require.Equal(t, "mi", m.SearchInput.Value())
	require.Equal(t, 0, m.Search.Scroll.Selected)

	m.Update(searchDebounceMsg{Seq: stale})
	require.Equal(t, models.SearchLoaded, m.Search.Mode)
	require.Equal(t, "", m.Search.Query)

	m.Update(searchDebounceMsg{Seq: m.Search.debounceSeq})
	require.Equal(t, models.SearchLoading, m.Search.Mode)
	require.Equal(t, "mi", m.Search.Query)
	pump(t, m, 1)
	require.Equal(t, []string{"mistral", "minicpm-v"}, resultNames(m.Search.Results))

	press(m, keyEsc)
	require.False(t, m.Search.Editing)
}

func TestSearchEnterSubmitsImmediately(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	press(m, keyTab, keyTab)
	pump(t, m, 2)

	press(m, runes("/"))
	typeText(m, "llama")
	seq := m.Search.debounceSeq
	press(m, keyEnter)
	require.False(t, m.Search.Editing)
	require.Equal(t, models.SearchLoading, m.Search.Mode)
	require.Equal(t, "llama", m.Search.Query)

	// The timer armed by the last keystroke is now stale.
	require.False(t, m.Search.DebounceCurrent(seq))
	pump(t, m, 1)
	require.Equal(t, []string{"llama3.2", "codellama"}, resultNames(m.Search.Results))
}

func TestSelectModelSurvivesReload(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend("llama3", "mistral")
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Init()
	pump(t, m, 1)

	press(m, keyTab)
	require.False(t, m.Catalog.Loading)
	press(m, runes("j"), keyEnter)

	require.Equal(t, "mistral", m.Chat.ActiveModel)
	require.Equal(t, models.TabChat, m.ActiveTab)

	backend.setInstalled("llama3")
	press(m, keyTab, runes("r"))
	require.True(t, m.Catalog.Loading)
	pump(t, m, 1)
	require.Len(t, m.Catalog.Entries, 1)
	require.Equal(t, "mistral", m.Chat.ActiveModel)
}

func TestModelsTabRetriesFailedStartupLoad(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend("llama3")
	backend.setListErr(errkind.New(errkind.NetworkUnavailable, "list models", errors.New("connection refused")))
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Init()
	pump(t, m, 1)
	require.False(t, m.Catalog.Loaded)

	backend.setListErr(nil)
	press(m, keyTab)
	require.True(t, m.Catalog.Loading)
	pump(t, m, 1)
	require.True(t, m.Catalog.Loaded)
	require.Empty(t, m.Catalog.Banner)
}

func TestSelectOnEmptyCatalogDoesNothing(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	press(m, keyTab)
	pump(t, m, 1)

	press(m, keyEnter)
	require.Equal(t, models.TabModels, m.ActiveTab)
	require.Empty(t, m.Chat.ActiveModel)
}

func TestCatalogTopBottom(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend("a", "b", "c", "d"), newFakeSearcher())
	press(m, keyTab)
	pump(t, m, 1)

	press(m, runes("g"))
	require.Equal(t, 0, m.Catalog.Scroll.Selected)
	press(m, runes("G"))
	require.Equal(t, 3, m.Catalog.Scroll.Selected)
	press(m, runes("j"))
	require.Equal(t, 3, m.Catalog.Scroll.Selected)
	press(m, keyUp, keyUp)
	require.Equal(t, 1, m.Catalog.Scroll.Selected)
}

func TestCatalogReloadFailureKeepsList(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend("a", "b")
	m, _ := newTestModel(t, backend, newFakeSearcher())
	press(m, keyTab)
	pump(t, m, 1)
	press(m, runes("j"))

	backend.setListErr(errkind.New(errkind.ServerRejected, "list models", errors.New("status 500")))
	press(m, runes("r"))
	pump(t, m, 1)

	require.Len(t, m.Catalog.Entries, 2)
	require.Equal(t, 1, m.Catalog.Scroll.Selected)
	require.Contains(t, m.Catalog.Banner, "Server error")

	press(m, keyEsc)
	require.Empty(t, m.Catalog.Banner)
}

func TestStaleCatalogLoadIsDropped(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend("a"), newFakeSearcher())
	first := m.Catalog.BeginLoad(func() {})
	second := m.Catalog.BeginLoad(func() {})

	m.Update(eventMsg{Event: catalogLoadedEvent{Gen: first, Entries: []models.ModelEntry{{Name: "old"}}}})
	require.Empty(t, m.Catalog.Entries)
	require.True(t, m.Catalog.Loading)

	m.Update(eventMsg{Event: catalogLoadedEvent{Gen: second, Entries: []models.ModelEntry{{Name: "new"}}}})
	require.Equal(t, "new", m.Catalog.Entries[0].Name)
}

func TestCopySelection(t *testing.T) {
	t.Parallel()

	m, copied := newTestModel(t, newFakeBackend("llama3", "qwen2.5"), newFakeSearcher())
	press(m, keyTab)
	pump(t, m, 1)
	press(m, runes("j"), keyCtrlY)

	require.Equal(t, "qwen2.5", *copied)
	require.Contains(t, m.Notice, "Copied")
}

func TestQuitCancelsActiveStream(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("hi")
	press(m, keyEnter)
	backend.tokens <- "par"
	pump(t, m, 1)
	require.Empty(t, m.ChatInput.Value())

	cmd := press(m, runes("q"))
	require.True(t, m.quitting)
	require.Equal(t, tea.QuitMsg{}, cmd())
	require.True(t, m.Chat.Cancelling())

	select {
	case err := <-backend.finished:
		require.Equal(t, errkind.Cancelled, errkind.Classify(err))
	case <-time.After(3 * time.Second):
		t.Fatal("stream was not cancelled")
	}
}

func TestCtrlCCancelsEverything(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	m, _ := newTestModel(t, backend, newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	m.ChatInput.SetValue("hi")
	press(m, keyEnter)
	m.submitSearch("llama")

	cmd := press(m, keyCtrlC)
	require.Equal(t, tea.QuitMsg{}, cmd())
	require.True(t, m.Chat.Cancelling())
	require.Equal(t, models.SearchIdle, m.Search.Mode)
	require.Empty(t, m.View())
}

func resultNames(results []models.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}
