// Package render owns the canonical prompt template and switches between the
// editable Fold view and the expanded, read-only Unfold view.
package render

import (
	"strings"

	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/promptbuild"
)

// Mode is the display state of the controller.
type Mode int

const (
	// Fold shows the raw template and allows editing.
	Fold Mode = iota
	// Unfold shows the annotated expansion, read-only.
	Unfold
)

func (m Mode) String() string {
	switch m {
	case Fold:
		return "fold"
	case Unfold:
		return "unfold"
	default:
		return "unknown"
	}
}

// Persister stores the canonical template. Failures are handled by the
// implementation.
type Persister interface {
	LoadCanonicalTemplate() string
	SaveCanonicalTemplate(template string)
}

// Display receives every refreshed view.
type Display interface {
	Show(View)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(View)

func (f DisplayFunc) Show(v View) { f(v) }

// View is what the editing surface currently shows.
type View struct {
	Mode      Mode   `json:"-"`
	ModeName  string `json:"mode"`
	Canonical string `json:"canonical"`
	Display   string `json:"display"`
	// SafeDisplay is Display with foreign markup removed, set in Unfold.
	SafeDisplay string `json:"display_html,omitempty"`
	WordCount   int    `json:"word_count"`
	Editable    bool   `json:"editable"`
	Cursor      int    `json:"cursor"`
}

// Controller is not safe for concurrent use; callers serialise access.
type Controller struct {
	mode      Mode
	canonical string
	surface   string
	cursor    int // rune offset into surface

	persister Persister
	sources   promptbuild.Sources
	display   Display

	last View
}

// NewController loads the canonical template and starts in Fold. display may
// be nil.
func NewController(p Persister, src promptbuild.Sources, display Display) *Controller {
	c := &Controller{
		mode:      Fold,
		persister: p,
		sources:   src,
		display:   display,
	}
	if p != nil {
		c.canonical = p.LoadCanonicalTemplate()
	}
	c.surface = c.canonical
	c.cursor = runeLen(c.surface)
	c.Refresh()
	return c
}

func (c *Controller) Mode() Mode        { return c.mode }
func (c *Controller) Canonical() string { return c.canonical }

// Surface returns the raw content of the editing surface.
func (c *Controller) Surface() string { return c.surface }

// View returns the last refreshed view.
func (c *Controller) View() View { return c.last }

// Edit replaces the surface text. Ignored while unfolded.
func (c *Controller) Edit(text string) {
	if c.mode != Fold {
		logger.Debug("[Render] Ignoring edit while unfolded")
		return
	}
	c.surface = text
	c.cursor = runeLen(text)
	c.commit()
	c.Refresh()
}

// SetCursor moves the insertion point, clamped to the surface.
func (c *Controller) SetCursor(pos int) {
	c.cursor = clamp(pos, 0, runeLen(c.surface))
}

// Toggle flips between Fold and Unfold.
func (c *Controller) Toggle() {
	if c.mode == Fold {
		c.Unfold()
		return
	}
	c.Fold()
}

// Unfold captures the surface into the canonical template and shows the
// annotated expansion.
func (c *Controller) Unfold() {
	if c.mode != Fold {
		return
	}
	if c.surface != c.canonical {
		c.commit()
	}
	c.mode = Unfold
	logger.Debug("[Render] Switched to unfold")
	c.Refresh()
}

// Fold restores the surface from the canonical template and re-enables editing.
func (c *Controller) Fold() {
	if c.mode != Unfold {
		return
	}
	c.surface = c.canonical
	c.cursor = clamp(c.cursor, 0, runeLen(c.surface))
	c.mode = Fold
	logger.Debug("[Render] Switched to fold")
	c.Refresh()
}

// FieldsChanged is called after the registry, history or input box changed.
func (c *Controller) FieldsChanged() {
	if c.mode == Fold {
		// An empty surface must not clobber a freshly loaded template.
		if c.surface != "" || c.canonical == "" {
			c.canonical = c.surface
			if c.surface != "" {
				c.save()
			}
		}
	}
	c.Refresh()
}

// InsertPlaceholder inserts {{name}} at the cursor. No-op while unfolded.
func (c *Controller) InsertPlaceholder(name string) {
	name = strings.TrimSpace(name)
	if c.mode != Fold || name == "" {
		return
	}
	c.insert("{{" + name + "}}")
}

// Paste inserts clipboard text at the cursor. No-op while unfolded.
func (c *Controller) Paste(text string) {
	if c.mode != Fold || text == "" {
		return
	}
	c.insert(text)
}

// CopyText returns what a copy action puts on the clipboard: the template in
// Fold, the plain expansion in Unfold.
func (c *Controller) CopyText() string {
	if c.mode == Fold {
		return c.canonical
	}
	return c.expand(promptbuild.Plain)
}

// Reload replaces the canonical template with a new one, e.g. after loading a
// saved configuration. The controller returns to Fold.
func (c *Controller) Reload(template string) {
	c.mode = Fold
	c.surface = template
	c.cursor = runeLen(template)
	c.commit()
	c.Refresh()
}

// Refresh recomputes the display and word count and pushes them to Display.
func (c *Controller) Refresh() {
	v := View{
		Mode:      c.mode,
		ModeName:  c.mode.String(),
		Canonical: c.canonical,
		Cursor:    c.cursor,
	}
	switch c.mode {
	case Fold:
		v.Display = c.surface
		v.Editable = true
		v.WordCount = promptbuild.CountWords(c.expand(promptbuild.Plain))
	case Unfold:
		annotated := c.expand(promptbuild.Annotated)
		v.Display = annotated
		v.SafeDisplay = promptbuild.SafeMarkup(annotated)
		v.WordCount = promptbuild.CountWords(c.expand(promptbuild.Plain))
	}
	c.last = v
	if c.display != nil {
		c.display.Show(v)
	}
}

func (c *Controller) expand(mode promptbuild.Mode) string {
	if c.sources == nil {
		return c.canonical
	}
	return promptbuild.Expand(c.canonical, c.sources, mode)
}

func (c *Controller) insert(text string) {
	runes := []rune(c.surface)
	pos := clamp(c.cursor, 0, len(runes))
	ins := []rune(text)

	out := make([]rune, 0, len(runes)+len(ins))
	out = append(out, runes[:pos]...)
	out = append(out, ins...)
	out = append(out, runes[pos:]...)

	c.surface = string(out)
	c.cursor = pos + len(ins)
	c.commit()
	c.Refresh()
}

func (c *Controller) commit() {
	c.canonical = c.surface
	c.save()
}

func (c *Controller) save() {
	if c.persister == nil {
		return
	}
	c.persister.SaveCanonicalTemplate(c.canonical)
}

func runeLen(s string) int { return len([]rune(s)) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
