package ui

import (
	"context"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

// ChatState is derived from the transcript and the pending request.
type ChatState int

const (
	ChatIdle ChatState = iota
	ChatStreaming
	ChatError // idle, with the last failure still on screen
)

func (s ChatState) String() string {
	switch s {
	case ChatStreaming:
		return "streaming"
	case ChatError:
		return "error"
	default:
		return "idle"
	}
}

// ChatSession owns the transcript and at most one in-flight reply. A request
// is pending exactly when the last message is incomplete.
type ChatSession struct {
	Messages    []models.ChatMessage
	Scroll      ScrollState
	ActiveModel string

	// Follow keeps the view pinned to the tail while a reply grows.
	Follow bool
	Banner string

	gen        uint64
	cancel     context.CancelFunc
	pending    bool
	cancelling bool
	failed     bool

	contentHeight int
	viewHeight    int
}

func NewChatSession() *ChatSession {
	return &ChatSession{Follow: true}
}

func (c *ChatSession) Streaming() bool { return c.pending }

func (c *ChatSession) Cancelling() bool { return c.cancelling }

func (c *ChatSession) Generation() uint64 { return c.gen }

func (c *ChatSession) State() ChatState {
	switch {
	case c.pending:
		return ChatStreaming
	case c.failed:
		return ChatError
	default:
		return ChatIdle
	}
}

// Begin appends the user turn and an empty assistant placeholder and takes
// ownership of cancel. It returns the new generation and the transcript to
// send, which excludes the placeholder. Callers check Streaming first.
func (c *ChatSession) Begin(text string, cancel context.CancelFunc) (uint64, []models.ChatMessage) {
	c.Messages = append(c.Messages, models.ChatMessage{
		Role:     models.RoleUser,
		Content:  text,
		Complete: true,
	})
	transcript := make([]models.ChatMessage, len(c.Messages))
	copy(transcript, c.Messages)

	c.Messages = append(c.Messages, models.ChatMessage{Role: models.RoleAssistant})
	c.gen++
	c.cancel = cancel
	c.pending = true
	c.cancelling = false
	c.failed = false
	c.Banner = ""
	c.Follow = true
	c.followTail()
	return c.gen, transcript
}

// ApplyToken appends a streamed fragment. Tokens from an older generation or
// arriving after cancellation are ignored.
func (c *ChatSession) ApplyToken(gen uint64, token string) bool {
	if !c.current(gen) || c.cancelling {
		return false
	}
	last := &c.Messages[len(c.Messages)-1]
	last.Content += token
	return true
}

// Finish completes the in-flight reply.
func (c *ChatSession) Finish(gen uint64) bool {
	if !c.current(gen) {
		return false
	}
	c.complete("")
	return true
}

// Fail completes the in-flight reply with an error marker. A failure that
// acknowledges a cancellation completes it quietly.
func (c *ChatSession) Fail(gen uint64, err error) bool {
	if !c.current(gen) {
		return false
	}
	if c.cancelling || !errkind.Visible(err) {
		c.complete("")
		return true
	}
	msg := errkind.Message(err)
	c.complete(msg)
	c.Banner = msg
	c.failed = true
	return true
}

// Dismiss clears the inline status and leaves the error state.
func (c *ChatSession) Dismiss() {
	c.Banner = ""
	c.failed = false
}

// Cancel asks the in-flight request to stop. The session stays streaming
// until the request acknowledges with Finish or Fail.
func (c *ChatSession) Cancel() bool {
	if !c.pending || c.cancelling {
		return false
	}
	c.cancelling = true
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

// Clear empties the transcript. It refuses while a reply is in flight.
func (c *ChatSession) Clear() bool {
	if c.pending {
		return false
	}
	c.Messages = nil
	c.Scroll.Reset()
	c.Follow = true
	c.Banner = ""
	c.failed = false
	c.contentHeight = 0
	return true
}

// LastReply returns the newest complete assistant message.
func (c *ChatSession) LastReply() (string, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if msg.Role == models.RoleAssistant && msg.Complete && msg.Content != "" {
			return msg.Content, true
		}
	}
	return "", false
}

// SetHeights records the rendered transcript height and the viewport height
// and re-clamps the offset, following the tail when enabled.
func (c *ChatSession) SetHeights(content, view int) {
	c.contentHeight = max(0, content)
	c.viewHeight = max(1, view)
	if c.Follow {
		c.followTail()
		return
	}
	c.Scroll.ScrollTo(c.Scroll.Offset, c.contentHeight, c.viewHeight)
}

// ScrollBy moves the transcript view. Scrolling up stops tail-following;
// reaching the bottom resumes it.
func (c *ChatSession) ScrollBy(delta int) {
	c.Scroll.ScrollBy(delta, c.contentHeight, c.viewHeight)
	c.Follow = c.Scroll.Offset >= c.MaxOffset()
}

func (c *ChatSession) HalfPage() int {
	return max(1, c.viewHeight/2)
}

func (c *ChatSession) ScrollTop() {
	c.Scroll.ScrollTo(0, c.contentHeight, c.viewHeight)
	c.Follow = c.MaxOffset() == 0
}

func (c *ChatSession) ScrollBottom() {
	c.Follow = true
	c.followTail()
}

func (c *ChatSession) MaxOffset() int {
	return MaxOffset(c.contentHeight, c.viewHeight)
}

func (c *ChatSession) followTail() {
	c.Scroll.Offset = c.MaxOffset()
}

func (c *ChatSession) current(gen uint64) bool {
	return c.pending && gen == c.gen
}

func (c *ChatSession) complete(failure string) {
	if n := len(c.Messages); n > 0 {
		last := &c.Messages[n-1]
		last.Complete = true
		last.Failure = failure
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending = false
	c.cancelling = false
}
