package models

import "time"

// Tab identifies one of the three mutually exclusive screens.
type Tab int

const (
	TabChat   Tab = iota // Conversation with the active model
	TabModels            // Locally installed models
	TabSearch            // Remote registry search
)

// Tabs lists every tab in cycle order.
var Tabs = []Tab{TabChat, TabModels, TabSearch}

// Next returns the tab that follows t in the Chat -> Models -> Search cycle.
func (t Tab) Next() Tab {
	return Tab((int(t) + 1) % len(Tabs))
}

func (t Tab) String() string {
	switch t {
	case TabChat:
		return "Chat"
	case TabModels:
		return "Models"
	case TabSearch:
		return "Search"
	default:
		return "Unknown"
	}
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role     string
	Content  string
	Complete bool

	// Failure marks a reply that ended with an error. It is shown after the
	// partial content and never sent back to the server.
	Failure string
}

// ModelEntry is one locally installed model as reported by the server.
type ModelEntry struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

type SearchResult struct {
	Name        string
	Description string
	Tags        []string
	URL         string
}

// SearchMode is the lifecycle of the most recent registry query.
type SearchMode int

const (
	SearchIdle SearchMode = iota
	SearchLoading
	SearchLoaded
	SearchErrored
)

func (m SearchMode) String() string {
	switch m {
	case SearchIdle:
		return "idle"
	case SearchLoading:
		return "loading"
	case SearchLoaded:
		return "loaded"
	case SearchErrored:
		return "errored"
	default:
		return "unknown"
	}
}
