package console

import (
	"github.com/kayz/promptdeck/internal/render"
)

func (c *Console) View() render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl.View()
}

func (c *Console) Edit(text string) render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrl.Edit(text)
	return c.ctrl.View()
}

func (c *Console) SetCursor(pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrl.SetCursor(pos)
}

func (c *Console) Toggle() render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrl.Toggle()
	return c.ctrl.View()
}

func (c *Console) SetMode(mode render.Mode) render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == render.Unfold {
		c.ctrl.Unfold()
	} else {
		c.ctrl.Fold()
	}
	return c.ctrl.View()
}

// InsertPlaceholder inserts {{name}} at pos, or at the last cursor when pos is
// negative.
func (c *Console) InsertPlaceholder(name string, pos int) render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos >= 0 {
		c.ctrl.SetCursor(pos)
	}
	c.ctrl.InsertPlaceholder(name)
	return c.ctrl.View()
}

func (c *Console) Paste(text string, pos int) render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos >= 0 {
		c.ctrl.SetCursor(pos)
	}
	c.ctrl.Paste(text)
	return c.ctrl.View()
}

func (c *Console) CopyText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl.CopyText()
}

// Input returns the input box text.
func (c *Console) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input box text and refreshes the view.
func (c *Console) SetInput(text string) render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	c.store.SaveInputBox(text)
	c.ctrl.Refresh()
	return c.ctrl.View()
}
