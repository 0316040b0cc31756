package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ollamatui/internal/models"
	"ollamatui/internal/styles"
)

// Row is one visible list line before styling.
type Row struct {
	Text     string
	Detail   string
	Tags     []string
	Selected bool
	Active   bool
}

// Frame describes what one render shows. View only styles it.
type Frame struct {
	Tab    models.Tab
	Width  int
	Height int

	ChatLines   []string
	Draft       string
	ActiveModel string
	Streaming   bool

	ModelRows  []Row
	ModelTotal int
	Loading    bool

	SearchRows  []Row
	Query       string
	SearchDraft string
	Editing     bool
	Mode        models.SearchMode

	Banner string
	Notice string
	Busy   bool
}

func (m *Model) Frame() Frame {
	f := Frame{
		Tab:         m.ActiveTab,
		Width:       m.WindowWidth,
		Height:      m.WindowHeight,
		Draft:       m.ChatInput.Value(),
		ActiveModel: m.Chat.ActiveModel,
		Streaming:   m.Chat.Streaming(),
		ModelTotal:  len(m.Catalog.Entries),
		Loading:     m.Catalog.Loading,
		Query:       m.Search.Query,
		SearchDraft: m.SearchInput.Value(),
		Editing:     m.Search.Editing,
		Mode:        m.Search.Mode,
		Notice:      m.Notice,
		Busy:        m.busy(),
	}

	start, end := m.Chat.Scroll.Window(m.chatHeight(), len(m.chatLines))
	f.ChatLines = m.chatLines[start:end]

	start, end = m.Catalog.Scroll.Window(m.modelsHeight(), len(m.Catalog.Entries))
	for i := start; i < end; i++ {
		e := m.Catalog.Entries[i]
		f.ModelRows = append(f.ModelRows, Row{
			Text:     e.Name,
			Detail:   fmt.Sprintf("%9s  %s", FormatSize(e.Size), FormatAge(e.ModifiedAt)),
			Selected: i == m.Catalog.Scroll.Selected,
			Active:   e.Name == m.Chat.ActiveModel,
		})
	}

	start, end = m.Search.Scroll.Window(m.searchHeight(), len(m.Search.Results))
	for i := start; i < end; i++ {
		r := m.Search.Results[i]
		f.SearchRows = append(f.SearchRows, Row{
			Text:     r.Name,
			Detail:   r.Description,
			Tags:     r.Tags,
			Selected: i == m.Search.Scroll.Selected,
			Active:   m.Catalog.Contains(r.Name),
		})
	}

	switch m.ActiveTab {
	case models.TabModels:
		f.Banner = m.Catalog.Banner
	case models.TabSearch:
		f.Banner = m.Search.Banner()
	default:
		f.Banner = m.Chat.Banner
	}
	return f
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	f := m.Frame()

	var body string
	switch f.Tab {
	case models.TabModels:
		body = m.renderModels(f)
	case models.TabSearch:
		body = m.renderSearch(f)
	default:
		body = m.renderChat(f)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabBar(f),
		body,
		m.renderBanner(f),
		m.renderFooter(f),
	)
}

func (m *Model) renderTabBar(f Frame) string {
	labels := make([]string, 0, len(models.Tabs))
	for _, t := range models.Tabs {
		if t == f.Tab {
			labels = append(labels, styles.ActiveTabStyle(t).Render(t.String()))
			continue
		}
		labels = append(labels, styles.TabStyle.Render(t.String()))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, labels...)
	title := styles.TitleStyle.Render("OLLAMA")
	gap := max(0, f.Width-lipgloss.Width(bar)-lipgloss.Width(title))
	return styles.TabBarStyle.Width(f.Width).Render(bar + strings.Repeat(" ", gap) + title)
}

func (m *Model) renderChat(f Frame) string {
	height := m.chatHeight()

	var transcript string
	if len(m.chatLines) == 0 {
		hint := "Pick a model in the Models tab to start chatting."
		if f.ActiveModel != "" {
			hint = "Chatting with " + f.ActiveModel + ". Type a message and press enter."
		}
		transcript = lipgloss.Place(m.contentWidth(), height, lipgloss.Center, lipgloss.Center,
			styles.WelcomeSubtitleStyle.Render(hint))
	} else {
		m.Viewport.Width = m.contentWidth()
		m.Viewport.Height = height
		m.Viewport.SetContent(strings.Join(m.chatLines, "\n"))
		m.Viewport.SetYOffset(m.Chat.Scroll.Offset)
		transcript = m.Viewport.View()
	}

	box := styles.InputBoxStyle
	if f.Streaming {
		box = styles.InputBoxIdleStyle
	}
	input := box.Width(m.contentWidth() - 2).Render(m.ChatInput.View())
	return lipgloss.JoinVertical(lipgloss.Left, transcript, input)
}

func (m *Model) renderModels(f Frame) string {
	width := m.contentWidth()
	height := m.modelsHeight()

	header := fmt.Sprintf("Installed models (%d)", f.ModelTotal)
	switch {
	case f.Loading:
		header += " " + m.Spinner.View() + " loading"
	case f.ActiveModel != "":
		header += "  using " + styles.ActiveModelStyle.Render(f.ActiveModel)
	}

	lines := make([]string, 0, height)
	if f.ModelTotal == 0 && !f.Loading {
		lines = append(lines, styles.InfoStyle("  No models installed. Find one in the Search tab, then run ollama pull <name>."))
	}
	nameWidth := min(40, width/2)
	for _, r := range f.ModelRows {
		lines = append(lines, renderRow(r, nameWidth, width))
	}
	return styles.TitleStyle.Render(header) + "\n" + padLines(lines, height)
}

func (m *Model) renderSearch(f Frame) string {
	width := m.contentWidth()
	height := m.searchHeight()

	box := styles.InputBoxIdleStyle
	if f.Editing {
		box = styles.InputBoxStyle
	}
	input := box.Width(width - 2).Render(m.SearchInput.View())

	var header string
	switch f.Mode {
	case models.SearchLoading:
		header = m.Spinner.View() + " searching"
		if f.Query != "" {
			header += " for " + f.Query
		}
	case models.SearchLoaded:
		if f.Query == "" {
			header = fmt.Sprintf("Trending (%d)", len(m.Search.Results))
		} else {
			header = fmt.Sprintf("Results for %q (%d)", f.Query, len(m.Search.Results))
		}
	case models.SearchErrored:
		header = "Search failed"
	default:
		header = "Press / to search, enter for trending"
	}

	lines := make([]string, 0, height)
	if f.Mode == models.SearchLoaded && len(f.SearchRows) == 0 {
		lines = append(lines, styles.InfoStyle("  No models match."))
	}
	nameWidth := min(32, width/3)
	for _, r := range f.SearchRows {
		lines = append(lines, renderRow(r, nameWidth, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		input,
		styles.TitleStyle.Render(header),
		padLines(lines, height),
	)
}

func renderRow(r Row, nameWidth, width int) string {
	marker := "  "
	if r.Active {
		marker = "● "
	}
	name := PadWidth(marker+r.Text, nameWidth)
	room := max(0, width-nameWidth-3)

	var tags string
	if len(r.Tags) > 0 {
		tags = TruncateWidth("["+strings.Join(r.Tags, ", ")+"]", room)
		room = max(0, room-lipgloss.Width(tags)-2)
	}
	detail := TruncateWidth(r.Detail, room)

	if r.Selected {
		return styles.SelectedRowStyle.Width(width).Render(joinDetail(name+" "+detail, tags))
	}
	if tags != "" {
		tags = styles.TagStyle.Render(tags)
	}
	return styles.RowStyle.Render(joinDetail(
		styles.ModelNameStyle.Render(name)+" "+styles.DescStyle.Render(detail),
		tags,
	))
}

func joinDetail(line, tags string) string {
	if tags == "" {
		return line
	}
	return line + "  " + tags
}

func (m *Model) renderBanner(f Frame) string {
	if f.Banner == "" {
		return ""
	}
	return styles.BannerStyle.Render(TruncateWidth(f.Banner+"  (esc to dismiss)", f.Width-2))
}

func (m *Model) renderFooter(f Frame) string {
	left := m.Help.ShortHelpView(m.Keys.TabHelp(f.Tab, f.Editing))

	var status []string
	if f.Notice != "" {
		status = append(status, styles.NoticeStyle.Render(f.Notice))
	}
	if f.Streaming {
		status = append(status, m.Spinner.View()+" generating")
	}
	model := f.ActiveModel
	if model == "" {
		model = "no model"
	}
	status = append(status, styles.InfoStyle(TruncateRunes(model, 25)), styles.InfoStyle(m.Host))
	right := strings.Join(status, "  ")

	gap := max(1, f.Width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func padLines(lines []string, height int) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
