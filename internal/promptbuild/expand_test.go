package promptbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/history"
)

func defaultSources(input string) Snapshot {
	return Snapshot{
		FieldList:   fields.Defaults(),
		HistoryText: history.EmptySentinel,
		InputText:   input,
	}
}

func TestExpandWithoutPlaceholdersIsIdentity(t *testing.T) {
	src := defaultSources("ignored")
	for _, mode := range []Mode{Plain, Annotated} {
		if got := Expand("nothing to see here", src, mode); got != "nothing to see here" {
			t.Fatalf("%s: got %q", mode, got)
		}
	}
}

func TestExpandPlain(t *testing.T) {
	tests := []struct {
		name     string
		template string
		src      Snapshot
		want     string
	}{
		{
			name:     "input box and empty history",
			template: "Hi {{input_box}}, history: {{short_history}}",
			src:      defaultSources("there"),
			want:     "Hi there, history: There's no history yet, the dialogue just begined",
		},
		{
			name:     "selection field",
			template: "{{place}}!",
			src:      defaultSources(""),
			want:     "I am at Home!",
		},
		{
			name:     "free text field",
			template: "{{time}} {{time}}",
			src:      defaultSources(""),
			want:     "Now, it's 18:00 Now, it's 18:00",
		},
		{
			name:     "unknown placeholder kept",
			template: "{{nope}} {{place}}",
			src:      defaultSources(""),
			want:     "{{nope}} I am at Home",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.template, tt.src, Plain); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandDisabledFieldIsEmpty(t *testing.T) {
	list := fields.Defaults()
	list[0].Enabled = false
	src := Snapshot{FieldList: list, HistoryText: history.EmptySentinel}

	if got := Expand("{{place}}!", src, Plain); got != "!" {
		t.Fatalf("plain: got %q", got)
	}
	if got := Expand("{{place}}!", src, Annotated); got != "!" {
		t.Fatalf("annotated: got %q", got)
	}
}

func TestExpandSkipsImageFields(t *testing.T) {
	src := Snapshot{FieldList: []fields.Field{{
		Name:    "photo",
		Kind:    fields.KindImage,
		Enabled: true,
		Image:   &fields.Image{DataURL: "data:image/png;base64,AAAA"},
	}}}
	if got := Expand("look {{photo}}", src, Plain); got != "look {{photo}}" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandRescansSubstitutedText(t *testing.T) {
	src := Snapshot{
		FieldList: []fields.Field{
			{Name: "a", Kind: fields.KindFreeText, Enabled: true, Present: "see {{input}}", Value: "{{b}}"},
			{Name: "b", Kind: fields.KindFreeText, Enabled: true, Present: "{{input}}", Value: "B"},
		},
		InputText: "{{a}}",
	}

	if got := Expand("{{a}}", src, Plain); got != "see B" {
		t.Fatalf("field value: got %q", got)
	}
	if got := Expand("{{input_box}}", src, Plain); got != "see B" {
		t.Fatalf("input box: got %q", got)
	}

	// b is expanded before a, so a's inserted {{b}} survives when a comes later.
	reversed := Snapshot{FieldList: []fields.Field{src.FieldList[1], src.FieldList[0]}}
	if got := Expand("{{a}}", reversed, Plain); got != "see {{b}}" {
		t.Fatalf("reversed order: got %q", got)
	}
}

func TestExpandAnnotated(t *testing.T) {
	src := defaultSources("a<b\nc&d")
	got := Expand("Q: {{input_box}} / {{place}} / {{short_history}}", src, Annotated)
	want := "Q: <u>a&lt;b<br>c&amp;d</u> / <u>I am at Home</u> / <u>There's no history yet, the dialogue just begined</u>"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("annotated mismatch (-want +got):\n%s", diff)
	}
}

func TestSafeMarkupKeepsOnlyAnnotations(t *testing.T) {
	template := "see <script>alert(1)</script> <b>{{input_box}}</b>"
	got := SafeMarkup(Expand(template, defaultSources("x < y"), Annotated))

	if strings.Contains(got, "script") || strings.Contains(got, "alert") || strings.Contains(got, "<b>") {
		t.Fatalf("foreign markup survived: %q", got)
	}
	if !strings.Contains(got, "<u>x &lt; y</u>") {
		t.Fatalf("annotation lost: %q", got)
	}
}

func TestCountWords(t *testing.T) {
	tests := map[string]int{
		"":                0,
		"   \n\t ":        0,
		"one":             1,
		"one two\nthree":  3,
		"  spaced   out ": 2,
	}
	for in, want := range tests {
		if got := CountWords(in); got != want {
			t.Fatalf("CountWords(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("Annotated") != Annotated {
		t.Fatalf("expected annotated")
	}
	if ParseMode("whatever") != Plain {
		t.Fatalf("expected plain fallback")
	}
}

func TestLoadPackExpands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	content := `version: v1
name: demo
template: "{{place}} {{input_box}}\n{{short_history}}"
input: hello
fields:
  - name: place
    type: selection
    enabled: true
    present: "I am at {{selection}}"
    state: Park
    options: [Home, Park]
multi_round:
  enabled: true
  max_rounds: 3
history:
  - input: q1
    output: a1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	pack, err := LoadPack(path)
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	got, err := pack.Expand(Plain)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "I am at Park hello\nROUND 1:\nInput: q1\nOutput: a1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLoadPackRejectsReservedField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	content := `name: bad
template: x
fields:
  - name: input_box
    type: input
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if _, err := LoadPack(path); err == nil {
		t.Fatalf("expected reserved name error")
	}
}

func TestSavePackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	pack := &Pack{Version: "v1", Name: "saved", Template: "{{time}}", Fields: fields.Defaults()}
	if err := SavePack(path, pack); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadPack(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(pack, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
