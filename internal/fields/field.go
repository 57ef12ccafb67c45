package fields

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of field variants.
type Kind int

const (
	KindSelection Kind = iota + 1
	KindFreeText
	KindImage
)

// Placeholder names owned by the expander itself.
const (
	ReservedInputBox     = "input_box"
	ReservedShortHistory = "short_history"
)

var (
	ErrReservedName  = errors.New("field name is reserved")
	ErrDuplicateName = errors.New("duplicate field name")
	ErrEmptyName     = errors.New("field name is required")
	ErrNotFound      = errors.New("field not found")
	ErrUnknownKind   = errors.New("unknown field kind")
)

// String returns the wire name of the kind. These names match what the
// browser client and saved configurations use.
func (k Kind) String() string {
	switch k {
	case KindSelection:
		return "selection"
	case KindFreeText:
		return "input"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "selection":
		return KindSelection, nil
	case "input", "text", "freetext":
		return KindFreeText, nil
	case "image":
		return KindImage, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// InnerPlaceholder returns the token substituted inside a presentation
// template. Image fields have none.
func (k Kind) InnerPlaceholder() string {
	switch k {
	case KindSelection:
		return "{{selection}}"
	case KindFreeText:
		return "{{input}}"
	case KindImage:
		return ""
	default:
		return ""
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindSelection, KindFreeText, KindImage:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Image is the opaque payload of an image field.
type Image struct {
	DataURL          string `json:"data_url,omitempty" yaml:"data_url,omitempty"`
	CompressionRatio int    `json:"compression_ratio,omitempty" yaml:"compression_ratio,omitempty"`
}

// Field is one named, typed template input.
type Field struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    Kind     `json:"type" yaml:"type"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Present string   `json:"present,omitempty" yaml:"present,omitempty"`
	Value   string   `json:"state,omitempty" yaml:"state,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Image   *Image   `json:"image,omitempty" yaml:"image,omitempty"`
}

// Placeholder returns the {{name}} token for the field.
func (f Field) Placeholder() string {
	return "{{" + f.Name + "}}"
}

// PresentText renders the presentation template with the current value.
// Only the first inner placeholder is replaced.
func (f Field) PresentText() string {
	switch f.Kind {
	case KindSelection, KindFreeText:
		return strings.Replace(f.Present, f.Kind.InnerPlaceholder(), f.Value, 1)
	case KindImage:
		return ""
	default:
		return ""
	}
}

// HasOption reports whether value is one of the selection options.
func (f Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o == value {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Image != nil {
		img := *f.Image
		out.Image = &img
	}
	return out
}

// Validate checks a single field in isolation.
func (f Field) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return ErrEmptyName
	}
	if name == ReservedInputBox || name == ReservedShortHistory {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	switch f.Kind {
	case KindSelection, KindFreeText, KindImage:
	default:
		return fmt.Errorf("field %s: %w", name, ErrUnknownKind)
	}
	return nil
}

// Defaults returns the registry used when nothing has been saved yet.
func Defaults() []Field {
	return []Field{
		{
			Name:    "place",
			Kind:    KindSelection,
			Enabled: true,
			Present: "I am at {{selection}}",
			Value:   "Home",
			Options: []string{"Home", "Office", "Park"},
		},
		{
			Name:    "time",
			Kind:    KindFreeText,
			Enabled: true,
			Present: "Now, it's {{input}}",
			Value:   "18:00",
		},
	}
}
