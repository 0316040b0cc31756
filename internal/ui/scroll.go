package ui

// ScrollState is the viewport offset and cursor of one scrollable region.
// Lists use both fields; the chat transcript only uses Offset.
type ScrollState struct {
	Offset   int
	Selected int
}

// Reset is called whenever the owning list is replaced wholesale.
func (s *ScrollState) Reset() {
	s.Offset = 0
	s.Selected = 0
}

// MaxOffset is the largest offset that still fills the viewport.
func MaxOffset(content, viewport int) int {
	return max(0, content-viewport)
}

// Clamp restores 0 <= Selected < count (Selected = 0 for an empty list).
func (s *ScrollState) Clamp(count int) {
	if count <= 0 {
		s.Selected = 0
		s.Offset = 0
		return
	}
	s.Selected = clamp(s.Selected, 0, count-1)
	s.Offset = max(0, s.Offset)
}

// Move shifts the cursor by delta without wrapping.
func (s *ScrollState) Move(delta, count int) {
	s.Selected += delta
	s.Clamp(count)
}

func (s *ScrollState) First() {
	s.Selected = 0
}

func (s *ScrollState) Last(count int) {
	s.Selected = max(0, count-1)
}

// EnsureVisible adjusts Offset so that Selected falls inside a viewport of
// the given height.
func (s *ScrollState) EnsureVisible(height, count int) {
	if height <= 0 {
		return
	}
	if s.Selected < s.Offset {
		s.Offset = s.Selected
	}
	if s.Selected >= s.Offset+height {
		s.Offset = s.Selected - height + 1
	}
	s.Offset = clamp(s.Offset, 0, MaxOffset(count, height))
}

// ScrollBy moves the offset by delta lines inside [0, MaxOffset].
func (s *ScrollState) ScrollBy(delta, content, viewport int) {
	s.ScrollTo(s.Offset+delta, content, viewport)
}

func (s *ScrollState) ScrollTo(offset, content, viewport int) {
	s.Offset = clamp(offset, 0, MaxOffset(content, viewport))
}

// Window returns the half-open index range of rows visible in a viewport of
// the given height.
func (s ScrollState) Window(height, count int) (int, int) {
	start := clamp(s.Offset, 0, max(0, count))
	end := min(count, start+max(0, height))
	return start, end
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
