package promptbuild

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/history"
)

// Pack is a self-contained prompt definition kept in a YAML file: the
// canonical template plus the field registry and history it expands against.
type Pack struct {
	Version     string         `yaml:"version" json:"version"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Template    string         `yaml:"template" json:"template"`
	Input       string         `yaml:"input,omitempty" json:"input,omitempty"`
	Fields      []fields.Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	MultiRound  PackMultiRound `yaml:"multi_round,omitempty" json:"multi_round,omitempty"`
	History     []PackRound    `yaml:"history,omitempty" json:"history,omitempty"`
}

// PackMultiRound mirrors the session settings of a pack.
type PackMultiRound struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	MaxRounds int  `yaml:"max_rounds,omitempty" json:"max_rounds,omitempty"`
}

// PackRound is one prior exchange replayed into the history store.
type PackRound struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
}

// LoadPack reads and validates a pack file.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack file %s: %w", path, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse pack file %s: %w", path, err)
	}
	if err := validatePack(&pack); err != nil {
		return nil, fmt.Errorf("invalid pack file %s: %w", path, err)
	}
	return &pack, nil
}

// SavePack writes a pack as YAML.
func SavePack(path string, pack *Pack) error {
	if err := validatePack(pack); err != nil {
		return err
	}
	data, err := yaml.Marshal(pack)
	if err != nil {
		return fmt.Errorf("marshal pack: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func validatePack(pack *Pack) error {
	if pack == nil {
		return fmt.Errorf("pack is nil")
	}
	if strings.TrimSpace(pack.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := fields.Validate(pack.Fields); err != nil {
		return err
	}
	if pack.MultiRound.MaxRounds < 0 {
		return fmt.Errorf("multi_round.max_rounds must not be negative")
	}
	return nil
}

// Sources builds the expansion inputs described by the pack. Replayed history
// follows the normal quota rules, so more rounds than max_rounds wrap around.
func (p *Pack) Sources() (Snapshot, error) {
	reg, err := fields.NewRegistry(p.Fields)
	if err != nil {
		return Snapshot{}, err
	}

	store := history.NewStore(nil)
	if p.MultiRound.Enabled {
		store.Enable(p.MultiRound.MaxRounds)
	}
	for _, r := range p.History {
		store.Append(r.Input, r.Output)
	}

	return Snapshot{
		FieldList:   reg.Substitutable(),
		HistoryText: store.Formatted(),
		InputText:   p.Input,
	}, nil
}

// Expand expands the pack template in the given mode.
func (p *Pack) Expand(mode Mode) (string, error) {
	src, err := p.Sources()
	if err != nil {
		return "", err
	}
	return Expand(p.Template, src, mode), nil
}
