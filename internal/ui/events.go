package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ollamatui/internal/models"
)

const eventBuffer = 256

// eventMsg carries one value read from the inbound event channel.
type eventMsg struct{ Event tea.Msg }

type (
	chatTokenEvent struct {
		Gen   uint64
		Token string
	}
	chatDoneEvent struct {
		Gen uint64
	}
	chatFailedEvent struct {
		Gen uint64
		Err error
	}
	catalogLoadedEvent struct {
		Gen     uint64
		Entries []models.ModelEntry
		Err     error
	}
	searchResultsEvent struct {
		Gen     uint64
		Query   string
		Results []models.SearchResult
		Err     error
	}
)

// searchDebounceMsg fires when the search draft has been quiet long enough.
type searchDebounceMsg struct{ Seq uint64 }

// waitForEvent waits for the next inbound event. Update re-arms it after every
// event so the channel is drained one value at a time, in order.
func waitForEvent(events <-chan tea.Msg, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-events:
			return eventMsg{Event: ev}
		case <-done:
			return nil
		}
	}
}

// emitter is the only handle network goroutines get on the model.
type emitter struct {
	events chan<- tea.Msg
	done   <-chan struct{}
}

// send delivers msg unless the program has shut down.
func (e emitter) send(msg tea.Msg) {
	select {
	case e.events <- msg:
	case <-e.done:
	}
}

// sendCtx is send for values that may be dropped once ctx is cancelled.
func (e emitter) sendCtx(ctx context.Context, msg tea.Msg) error {
	select {
	case e.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return context.Canceled
	}
}

func (e emitter) streamChat(ctx context.Context, backend ChatBackend, gen uint64, model string, transcript []models.ChatMessage) {
	err := backend.StreamChat(ctx, model, transcript, func(token string) error {
		return e.sendCtx(ctx, chatTokenEvent{Gen: gen, Token: token})
	})
	if err != nil {
		e.send(chatFailedEvent{Gen: gen, Err: err})
		return
	}
	e.send(chatDoneEvent{Gen: gen})
}

func (e emitter) listModels(ctx context.Context, backend ChatBackend, gen uint64) {
	entries, err := backend.ListModels(ctx)
	e.send(catalogLoadedEvent{Gen: gen, Entries: entries, Err: err})
}

func (e emitter) search(ctx context.Context, searcher Searcher, gen uint64, query string) {
	results, err := searcher.Search(ctx, query)
	e.send(searchResultsEvent{Gen: gen, Query: query, Results: results, Err: err})
}

func debounce(d time.Duration, seq uint64) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return searchDebounceMsg{Seq: seq}
	})
}
