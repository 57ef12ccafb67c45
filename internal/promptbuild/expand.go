// Package promptbuild expands canonical prompt templates into the text sent to
// a model (plain mode) or shown to the user (annotated mode).
package promptbuild

import (
	"strings"

	"github.com/kayz/promptdeck/internal/fields"
)

// Mode selects how substituted text is rendered.
type Mode int

const (
	// Plain substitutes values verbatim.
	Plain Mode = iota
	// Annotated wraps substituted values in underline markup for display.
	Annotated
)

func (m Mode) String() string {
	switch m {
	case Plain:
		return "plain"
	case Annotated:
		return "annotated"
	default:
		return "unknown"
	}
}

// ParseMode maps "plain"/"annotated" to a Mode. Anything else is Plain.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "annotated") {
		return Annotated
	}
	return Plain
}

const (
	inputBoxToken     = "{{" + fields.ReservedInputBox + "}}"
	shortHistoryToken = "{{" + fields.ReservedShortHistory + "}}"
)

// Sources supplies everything a template can refer to.
type Sources interface {
	// Fields returns the substitutable fields in registry order.
	Fields() []fields.Field
	// History returns the formatted short history.
	History() string
	// InputBox returns the current free-text input.
	InputBox() string
}

// Snapshot is a fixed Sources value.
type Snapshot struct {
	FieldList   []fields.Field
	HistoryText string
	InputText   string
}

func (s Snapshot) Fields() []fields.Field { return s.FieldList }
func (s Snapshot) History() string        { return s.HistoryText }
func (s Snapshot) InputBox() string       { return s.InputText }

// Expand resolves every known placeholder in template.
//
// Substitution is a sequence of literal replace-all passes: input box, short
// history, then each field in order. Text inserted by an earlier pass is
// scanned again by later passes, so a value containing {{other_field}} gets
// expanded too. Unknown placeholders are left as they are.
func Expand(template string, src Sources, mode Mode) string {
	out := template

	out = strings.ReplaceAll(out, inputBoxToken, wrapEscaped(src.InputBox(), mode))
	out = strings.ReplaceAll(out, shortHistoryToken, wrapEscaped(src.History(), mode))

	for _, f := range src.Fields() {
		replacement, ok := fieldReplacement(f, mode)
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, f.Placeholder(), replacement)
	}
	return out
}

// fieldReplacement returns the text a field contributes and whether the field
// takes part in expansion at all.
func fieldReplacement(f fields.Field, mode Mode) (string, bool) {
	switch f.Kind {
	case fields.KindImage:
		return "", false
	case fields.KindSelection, fields.KindFreeText:
		if !f.Enabled {
			return "", true
		}
		text := f.PresentText()
		if mode == Annotated {
			return underline(text), true
		}
		return text, true
	default:
		return "", false
	}
}

func wrapEscaped(text string, mode Mode) string {
	if mode == Annotated {
		return underline(EscapeMarkup(text))
	}
	return text
}
