package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

func TestFrameModelRows(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.ActiveTab = models.TabModels
	m.Catalog.Entries = []models.ModelEntry{
		{Name: "llama3:latest", Size: 4_700_000_000, ModifiedAt: time.Now().Add(-48 * time.Hour)},
		{Name: "mistral:7b", Size: 0},
	}
	m.Catalog.Scroll.Selected = 1
	m.Chat.ActiveModel = "llama3:latest"

	f := m.Frame()
	require.Equal(t, 2, f.ModelTotal)
	require.Len(t, f.ModelRows, 2)

	require.Equal(t, "llama3:latest", f.ModelRows[0].Text)
	require.True(t, f.ModelRows[0].Active)
	require.False(t, f.ModelRows[0].Selected)
	require.Contains(t, f.ModelRows[0].Detail, "4.7 GB")
	require.Contains(t, f.ModelRows[0].Detail, "days ago")

	require.True(t, f.ModelRows[1].Selected)
	require.False(t, f.ModelRows[1].Active)
	require.Contains(t, f.ModelRows[1].Detail, "-")
}

func TestFrameListWindowFollowsScroll(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	height := m.modelsHeight()

	for i := 0; i < 20; i++ {
		m.Catalog.Entries = append(m.Catalog.Entries, models.ModelEntry{Name: string(rune('a' + i))})
	}
	m.ActiveTab = models.TabModels
	press(m, runes("G"))

	f := m.Frame()
	require.Len(t, f.ModelRows, height)
	require.Equal(t, "t", f.ModelRows[height-1].Text)
	require.True(t, f.ModelRows[height-1].Selected)
}

func TestFrameSearchRowsMarkInstalled(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.ActiveTab = models.TabSearch
	m.Catalog.Entries = []models.ModelEntry{{Name: "mistral"}}
	m.Search.Mode = models.SearchLoaded
	m.Search.Query = "mi"
	m.Search.Results = []models.SearchResult{
		{Name: "mistral", Description: "The 7B model from Mistral AI.", Tags: []string{"tools", "7b"}},
		{Name: "minicpm-v"},
	}

	f := m.Frame()
	require.Len(t, f.SearchRows, 2)
	require.True(t, f.SearchRows[0].Active)
	require.True(t, f.SearchRows[0].Selected)
	require.Equal(t, "The 7B model from Mistral AI.", f.SearchRows[0].Detail)
	require.Equal(t, []string{"tools", "7b"}, f.SearchRows[0].Tags)
	require.False(t, f.SearchRows[1].Active)
	require.Empty(t, f.SearchRows[1].Detail)
	require.Empty(t, f.SearchRows[1].Tags)
	require.Equal(t, "mi", f.Query)
}

func TestFrameBannerBelongsToActiveTab(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.Chat.Banner = "chat problem"
	m.Catalog.Banner = "catalog problem"
	m.Search.Mode = models.SearchErrored
	m.Search.Err = errkind.New(errkind.ServerRejected, "search", errors.New("status 503"))

	require.Equal(t, "chat problem", m.Frame().Banner)

	m.ActiveTab = models.TabModels
	require.Equal(t, "catalog problem", m.Frame().Banner)

	m.ActiveTab = models.TabSearch
	require.Equal(t, "Server error: search: status 503", m.Frame().Banner)
}

func TestFrameChatLinesShowFailureMarker(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.Chat.ActiveModel = "llama3"
	gen, _ := m.Chat.Begin("hello", func() {})
	m.Chat.ApplyToken(gen, "partial answer")
	m.Chat.Fail(gen, errkind.New(errkind.NetworkUnavailable, "chat", errors.New("connection reset")))
	m.refreshChat()

	f := m.Frame()
	require.False(t, f.Streaming)
	joined := strings.Join(f.ChatLines, "\n")
	require.Contains(t, joined, "YOU")
	require.Contains(t, joined, "LLAMA3")
	require.Contains(t, joined, "✗ Cannot reach server")
}

func TestViewRendersEveryTab(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, newFakeBackend(), newFakeSearcher())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Catalog.Entries = []models.ModelEntry{{Name: "llama3"}}
	m.Search.Mode = models.SearchLoaded
	m.Search.Results = []models.SearchResult{{Name: "qwen2.5", Description: "Qwen"}}

	for _, tab := range models.Tabs {
		m.ActiveTab = tab
		out := m.View()
		require.NotEmpty(t, out)
		require.Contains(t, out, "Chat")
		require.Contains(t, out, "Models")
		require.Contains(t, out, "Search")
	}

	m.ActiveTab = models.TabModels
	require.Contains(t, m.View(), "llama3")
	m.ActiveTab = models.TabSearch
	require.Contains(t, m.View(), "qwen2.5")
	require.Contains(t, m.View(), "Trending (1)")
}

func TestRenderRowKeepsTagsVisible(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("very long description ", 10)
	r := Row{Text: "mistral", Detail: long, Tags: []string{"tools", "7b"}}

	for _, selected := range []bool{false, true} {
		r.Selected = selected
		out := renderRow(r, 20, 80)
		require.Contains(t, out, "[tools, 7b]")
		require.Contains(t, out, "mistral")
		require.Contains(t, out, "…")
	}

	out := renderRow(Row{Text: "gemma2", Detail: "Google Gemma"}, 20, 80)
	require.NotContains(t, out, "[")
}
