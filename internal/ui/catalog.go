package ui

import (
	"context"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

const ollamaHint = "Make sure Ollama is running (ollama serve)."

// ModelCatalog is the list of locally installed models, in server order.
type ModelCatalog struct {
	Entries []models.ModelEntry
	Scroll  ScrollState
	Loaded  bool
	Loading bool
	Banner  string

	gen    uint64
	cancel context.CancelFunc
}

func NewModelCatalog() *ModelCatalog {
	return &ModelCatalog{}
}

// BeginLoad cancels any previous load and starts a new generation.
func (c *ModelCatalog) BeginLoad(cancel context.CancelFunc) uint64 {
	c.Cancel()
	c.gen++
	c.cancel = cancel
	c.Loading = true
	return c.gen
}

// ApplyLoad installs the result of load gen. A failure keeps the previous
// list and leaves a banner.
func (c *ModelCatalog) ApplyLoad(gen uint64, entries []models.ModelEntry, err error) bool {
	if gen != c.gen || !c.Loading {
		return false
	}
	c.release()

	if err != nil {
		if errkind.Visible(err) {
			c.Banner = errkind.Message(err)
			if errkind.Classify(err) == errkind.NetworkUnavailable {
				c.Banner += " " + ollamaHint
			}
		}
		return true
	}

	c.Entries = entries
	c.Scroll.Reset()
	c.Loaded = true
	c.Banner = ""
	return true
}

func (c *ModelCatalog) Cancel() { c.release() }

func (c *ModelCatalog) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.Loading = false
}

func (c *ModelCatalog) Selected() (models.ModelEntry, bool) {
	if len(c.Entries) == 0 {
		return models.ModelEntry{}, false
	}
	c.Scroll.Clamp(len(c.Entries))
	return c.Entries[c.Scroll.Selected], true
}

func (c *ModelCatalog) Move(delta int) { c.Scroll.Move(delta, len(c.Entries)) }

func (c *ModelCatalog) First() { c.Scroll.First() }

func (c *ModelCatalog) Last() { c.Scroll.Last(len(c.Entries)) }

// Contains reports whether name is installed according to the last load.
func (c *ModelCatalog) Contains(name string) bool {
	for _, e := range c.Entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
