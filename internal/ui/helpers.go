package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"ollamatui/internal/models"
	"ollamatui/internal/styles"
)

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// TruncateWidth cuts s to at most width terminal cells.
func TruncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// PadWidth right-pads s with spaces to exactly width cells, truncating first.
func PadWidth(s string, width int) string {
	s = TruncateWidth(s, width)
	return runewidth.FillRight(s, width)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(bytes))
}

func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func FormatUserMessage(content string, width int) string {
	label := styles.UserLabelStyle.Render("YOU")
	body := wordwrap.String(content, max(10, width-4))
	msg := styles.UserMsgStyle.Width(width - 2).Render(body)
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(label, content, failure string) string {
	head := styles.AiLabelStyle.Render(strings.ToUpper(label))
	msg := styles.AiMsgStyle.Render(content)
	if failure != "" {
		msg = msg + "\n" + styles.ErrorStyle.Render("✗ "+failure)
	}
	return fmt.Sprintf("%s\n%s", head, msg)
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(styles.GlamourStyle()),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return nil
	}
	return r
}

// assistantBody renders a reply. Complete replies go through glamour once and
// are cached by transcript index; a growing reply is plain wrapped text.
func (m *Model) assistantBody(i int, msg models.ChatMessage, width int) string {
	if !msg.Complete {
		if msg.Content == "" {
			return styles.InfoStyle("thinking…")
		}
		return wordwrap.String(msg.Content, max(10, width-4))
	}
	if cached, ok := m.rendered[i]; ok {
		return cached
	}
	out := wordwrap.String(msg.Content, max(10, width-4))
	if m.Renderer != nil && msg.Content != "" {
		if rendered, err := m.Renderer.Render(msg.Content); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	m.rendered[i] = out
	return out
}

// refreshChat re-renders the transcript into lines and re-clamps the chat
// scroll against the new height.
func (m *Model) refreshChat() {
	width := m.contentWidth()
	label := m.Chat.ActiveModel
	if label == "" {
		label = "ollama"
	}

	blocks := make([]string, 0, len(m.Chat.Messages))
	for i, msg := range m.Chat.Messages {
		if msg.Role == models.RoleUser {
			blocks = append(blocks, FormatUserMessage(msg.Content, width))
			continue
		}
		blocks = append(blocks, FormatAIMessage(label, m.assistantBody(i, msg, width), msg.Failure))
	}

	m.chatLines = nil
	if len(blocks) > 0 {
		m.chatLines = strings.Split(strings.Join(blocks, "\n\n"), "\n")
	}
	m.Chat.SetHeights(len(m.chatLines), m.chatHeight())
}

func (m *Model) resize(width, height int) {
	m.WindowWidth = max(20, width)
	m.WindowHeight = max(10, height)

	w := m.contentWidth()
	m.ChatInput.Width = max(10, w-6)
	m.SearchInput.Width = max(10, w-6)
	m.Help.Width = m.WindowWidth
	m.Viewport.Width = w
	m.Viewport.Height = m.chatHeight()

	if w != m.renderWidth {
		m.Renderer = newRenderer(w - 4)
		m.rendered = map[int]string{}
		m.renderWidth = w
	}

	m.refreshChat()
	m.Catalog.Scroll.EnsureVisible(m.modelsHeight(), len(m.Catalog.Entries))
	m.Search.Scroll.EnsureVisible(m.searchHeight(), len(m.Search.Results))
}

func (m *Model) contentWidth() int {
	return max(20, m.WindowWidth-2)
}

func (m *Model) chrome() int {
	return tabBarHeight + bannerHeight + footerHeight
}

func (m *Model) chatHeight() int {
	return max(1, m.WindowHeight-m.chrome()-inputHeight)
}

func (m *Model) modelsHeight() int {
	return max(1, m.WindowHeight-m.chrome()-headerHeight)
}

func (m *Model) searchHeight() int {
	return max(1, m.WindowHeight-m.chrome()-inputHeight-headerHeight)
}
