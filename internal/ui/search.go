package ui

import (
	"context"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

// SearchSession tracks the most recent registry query. Only the newest
// generation may change Results.
type SearchSession struct {
	Query   string
	Results []models.SearchResult
	Scroll  ScrollState
	Mode    models.SearchMode
	Err     error

	// Editing routes printable keys into the query draft.
	Editing bool

	gen         uint64
	cancel      context.CancelFunc
	debounceSeq uint64
}

func NewSearchSession() *SearchSession {
	return &SearchSession{Mode: models.SearchIdle}
}

// Submit starts a query, superseding any request still in flight. An empty
// query asks for the trending set. Pending debounce timers are invalidated.
func (s *SearchSession) Submit(query string, cancel context.CancelFunc) uint64 {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.debounceSeq++
	s.cancel = cancel
	s.Query = query
	s.Mode = models.SearchLoading
	s.Err = nil
	return s.gen
}

// Apply installs the answer to generation gen and reports whether it was
// current.
func (s *SearchSession) Apply(gen uint64, results []models.SearchResult, err error) bool {
	if gen != s.gen || s.Mode != models.SearchLoading {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.Scroll.Reset()

	switch {
	case err == nil:
		s.Results = results
		s.Mode = models.SearchLoaded
	case !errkind.Visible(err):
		s.Results = nil
		s.Mode = models.SearchIdle
	default:
		s.Results = nil
		s.Err = err
		s.Mode = models.SearchErrored
	}
	return true
}

func (s *SearchSession) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.Mode == models.SearchLoading {
		s.Mode = models.SearchIdle
	}
}

// Dismiss clears a shown error. The session returns to Idle so the next
// visit fetches the trending set again.
func (s *SearchSession) Dismiss() {
	if s.Err == nil {
		return
	}
	s.Err = nil
	if s.Mode == models.SearchErrored {
		s.Mode = models.SearchIdle
	}
}

func (s *SearchSession) Banner() string {
	return errkind.Message(s.Err)
}

// ArmDebounce returns the sequence number a debounce timer must carry to
// still be honoured when it fires.
func (s *SearchSession) ArmDebounce() uint64 {
	s.debounceSeq++
	return s.debounceSeq
}

func (s *SearchSession) DebounceCurrent(seq uint64) bool {
	return seq == s.debounceSeq
}

func (s *SearchSession) Selected() (models.SearchResult, bool) {
	if len(s.Results) == 0 {
		return models.SearchResult{}, false
	}
	s.Scroll.Clamp(len(s.Results))
	return s.Results[s.Scroll.Selected], true
}

func (s *SearchSession) Move(delta int) { s.Scroll.Move(delta, len(s.Results)) }

func (s *SearchSession) First() { s.Scroll.First() }

func (s *SearchSession) Last() { s.Scroll.Last(len(s.Results)) }
