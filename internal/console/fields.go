package console

import (
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/logger"
)

// Fields returns every field, images included.
func (c *Console) Fields() []fields.Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Snapshot()
}

// VariableNames lists the names that can be inserted as placeholders.
func (c *Console) VariableNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{fields.ReservedInputBox, fields.ReservedShortHistory}, c.registry.Names()...)
}

// ReplaceFields swaps the registry after validation.
func (c *Console) ReplaceFields(list []fields.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.Replace(list); err != nil {
		return err
	}
	return c.fieldsChangedLocked()
}

func (c *Console) SetFieldValue(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.SetValue(name, value); err != nil {
		return err
	}
	return c.fieldsChangedLocked()
}

func (c *Console) SetFieldEnabled(name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.SetEnabled(name, enabled); err != nil {
		return err
	}
	return c.fieldsChangedLocked()
}

func (c *Console) SetFieldImage(name string, img fields.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.SetImage(name, img); err != nil {
		return err
	}
	return c.fieldsChangedLocked()
}

// Sift applies values pushed by a relay device and returns the updated names.
func (c *Console) Sift(values map[string]string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	updated := c.registry.Sift(values)
	if len(updated) == 0 {
		return nil
	}
	if err := c.fieldsChangedLocked(); err != nil {
		logger.Error("[Console] Failed to save sifted fields: %v", err)
	}
	return updated
}

func (c *Console) fieldsChangedLocked() error {
	err := c.store.SaveFields(c.registry.Snapshot())
	c.ctrl.FieldsChanged()
	return err
}
