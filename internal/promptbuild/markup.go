package promptbuild

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	displayPolicyOnce sync.Once
	displayPolicy     *bluemonday.Policy
)

func underline(text string) string {
	return "<u>" + text + "</u>"
}

// EscapeMarkup escapes &, < and > and turns newlines into <br>.
func EscapeMarkup(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// SafeMarkup prepares annotated output for an HTML view. Only the <u> and
// <br> elements survive; any other markup in the template is dropped.
func SafeMarkup(annotated string) string {
	return displaySanitizer().Sanitize(annotated)
}

func displaySanitizer() *bluemonday.Policy {
	displayPolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("u", "br")
		displayPolicy = p
	})
	return displayPolicy
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}
