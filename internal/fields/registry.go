package fields

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kayz/promptdeck/internal/logger"
)

// Registry is the ordered collection of template fields.
type Registry struct {
	mu     sync.RWMutex
	fields []Field
}

// NewRegistry builds a registry from the given fields after validating them.
func NewRegistry(initial []Field) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(initial); err != nil {
		return nil, err
	}
	return r, nil
}

// Substitutable returns the fields that take part in text expansion, in
// registry order. Image fields never substitute.
func (r *Registry) Substitutable() []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Field, 0, len(r.fields))
	for _, f := range r.fields {
		switch f.Kind {
		case KindSelection, KindFreeText:
			out = append(out, f.Clone())
		case KindImage:
		}
	}
	return out
}

// Get looks a field up by name.
func (r *Registry) Get(name string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.fields {
		if f.Name == name {
			return f.Clone(), true
		}
	}
	return Field{}, false
}

// Snapshot returns a copy of every field, images included.
func (r *Registry) Snapshot() []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Field, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Clone()
	}
	return out
}

// Images returns enabled image fields that carry data.
func (r *Registry) Images() []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Field
	for _, f := range r.fields {
		if f.Kind == KindImage && f.Enabled && f.Image != nil && f.Image.DataURL != "" {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Names returns the names of substitutable fields; these are the variables
// that can be inserted into a template.
func (r *Registry) Names() []string {
	subs := r.Substitutable()
	names := make([]string, len(subs))
	for i, f := range subs {
		names[i] = f.Name
	}
	return names
}

// Validate checks a candidate field list for naming collisions.
func Validate(list []Field) error {
	seen := make(map[string]struct{}, len(list))
	for _, f := range list {
		if err := f.Validate(); err != nil {
			return err
		}
		name := strings.TrimSpace(f.Name)
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Replace swaps the whole field list. Names are trimmed.
func (r *Registry) Replace(list []Field) error {
	if err := Validate(list); err != nil {
		return err
	}
	next := make([]Field, len(list))
	for i, f := range list {
		f = f.Clone()
		f.Name = strings.TrimSpace(f.Name)
		next[i] = f
	}

	r.mu.Lock()
	r.fields = next
	r.mu.Unlock()
	return nil
}

// SetValue updates the current value of a field. Selection values outside
// the option list are accepted.
func (r *Registry) SetValue(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.fields {
		if r.fields[i].Name != name {
			continue
		}
		f := &r.fields[i]
		if f.Kind == KindSelection && len(f.Options) > 0 && !f.HasOption(value) {
			logger.Warn("[Fields] Value %q not in options for %s, updating anyway", value, name)
		}
		f.Value = value
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// SetImage stores image data on an image field.
func (r *Registry) SetImage(name string, img Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.fields {
		if r.fields[i].Name != name {
			continue
		}
		if r.fields[i].Kind != KindImage {
			return fmt.Errorf("field %s is not an image field", name)
		}
		r.fields[i].Image = &img
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// SetEnabled toggles a field.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Sift applies a batch of name/value updates coming from an external device.
// Only enabled fields with a received value are touched. It returns the names
// that were updated.
func (r *Registry) Sift(values map[string]string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated []string
	for i := range r.fields {
		f := &r.fields[i]
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if !f.Enabled {
			logger.Debug("[Fields] Skipping disabled field: %s", f.Name)
			continue
		}
		if f.Kind == KindImage {
			continue
		}
		if f.Kind == KindSelection && len(f.Options) > 0 && !f.HasOption(v) {
			logger.Warn("[Fields] Value %q not in options for %s, updating anyway", v, f.Name)
		}
		logger.Debug("[Fields] Updating %s: %s -> %s", f.Name, f.Value, v)
		f.Value = v
		updated = append(updated, f.Name)
	}
	return updated
}
