package fields

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestSubstitutableSkipsImages(t *testing.T) {
	r, err := NewRegistry([]Field{
		{Name: "place", Kind: KindSelection, Enabled: true, Present: "I am at {{selection}}", Value: "Home"},
		{Name: "photo", Kind: KindImage, Enabled: true, Image: &Image{DataURL: "data:image/png;base64,AAAA"}},
		{Name: "time", Kind: KindFreeText, Enabled: false, Present: "Now, it's {{input}}"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got := r.Names()
	want := []string{"place", "time"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("substitutable names mismatch (-want +got):\n%s", diff)
	}

	if imgs := r.Images(); len(imgs) != 1 || imgs[0].Name != "photo" {
		t.Fatalf("expected one image field, got %+v", imgs)
	}
}

func TestRegistryRejectsReservedAndDuplicateNames(t *testing.T) {
	cases := []struct {
		name string
		list []Field
		want error
	}{
		{"input_box", []Field{{Name: "input_box", Kind: KindFreeText}}, ErrReservedName},
		{"short_history", []Field{{Name: " short_history ", Kind: KindFreeText}}, ErrReservedName},
		{"duplicate", []Field{{Name: "a", Kind: KindFreeText}, {Name: "a", Kind: KindSelection}}, ErrDuplicateName},
		{"empty", []Field{{Name: "  ", Kind: KindFreeText}}, ErrEmptyName},
		{"kind", []Field{{Name: "x"}}, ErrUnknownKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.list)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r, err := NewRegistry(Defaults())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	f, ok := r.Get("place")
	if !ok {
		t.Fatal("expected place field")
	}
	f.Options[0] = "Mars"

	again, _ := r.Get("place")
	if again.Options[0] != "Home" {
		t.Fatalf("registry was mutated through a returned copy: %v", again.Options)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing field lookup to fail")
	}
}

func TestPresentTextReplacesFirstPlaceholderOnly(t *testing.T) {
	f := Field{Name: "x", Kind: KindFreeText, Present: "{{input}} and {{input}}", Value: "v"}
	if got := f.PresentText(); got != "v and {{input}}" {
		t.Fatalf("unexpected present text: %q", got)
	}
	sel := Field{Name: "s", Kind: KindSelection, Present: "at {{selection}} ({{input}})", Value: "Park"}
	if got := sel.PresentText(); got != "at Park ({{input}})" {
		t.Fatalf("unexpected selection present text: %q", got)
	}
}

func TestSiftOnlyTouchesEnabledFields(t *testing.T) {
	r, err := NewRegistry([]Field{
		{Name: "place", Kind: KindSelection, Enabled: true, Value: "Home", Options: []string{"Home", "Office"}},
		{Name: "time", Kind: KindFreeText, Enabled: false, Value: "18:00"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	updated := r.Sift(map[string]string{"place": "Beach", "time": "09:00", "other": "x"})
	if diff := cmp.Diff([]string{"place"}, updated); diff != "" {
		t.Fatalf("updated mismatch (-want +got):\n%s", diff)
	}
	place, _ := r.Get("place")
	if place.Value != "Beach" {
		t.Fatalf("expected off-list value to be accepted, got %q", place.Value)
	}
	tm, _ := r.Get("time")
	if tm.Value != "18:00" {
		t.Fatalf("disabled field should be untouched, got %q", tm.Value)
	}
}

func TestSetValueAndEnabled(t *testing.T) {
	r, _ := NewRegistry(Defaults())
	if err := r.SetValue("time", "07:30"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := r.SetEnabled("place", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := r.SetValue("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tm, _ := r.Get("time")
	place, _ := r.Get("place")
	if tm.Value != "07:30" || place.Enabled {
		t.Fatalf("unexpected state: time=%+v place=%+v", tm, place)
	}
}

func TestKindWireFormat(t *testing.T) {
	data, err := json.Marshal(Defaults())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []Field
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(Defaults(), back); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}

	var bad []Field
	if err := json.Unmarshal([]byte(`[{"name":"x","type":"slider"}]`), &bad); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	var fromYAML []Field
	src := "- name: mood\n  type: selection\n  enabled: true\n  present: feeling {{selection}}\n  state: ok\n"
	if err := yaml.Unmarshal([]byte(src), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(fromYAML) != 1 || fromYAML[0].Kind != KindSelection {
		t.Fatalf("unexpected yaml decode: %+v", fromYAML)
	}
}
