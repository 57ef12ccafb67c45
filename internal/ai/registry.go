package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

// ProvidersPath is the optional catalog override file.
func ProvidersPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptdeck", "providers.yaml")
}

// Wire protocols a provider speaks.
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
)

type ProviderConfig struct {
	Name            string         `yaml:"name" json:"name"`
	Title           string         `yaml:"title,omitempty" json:"title"`
	Type            string         `yaml:"type" json:"type"`
	BaseURL         string         `yaml:"base_url" json:"base_url"`
	SuggestedModels []string       `yaml:"suggested_models,omitempty" json:"suggested_models"`
	Models          []*ModelConfig `yaml:"models,omitempty" json:"models"`
}

type ModelConfig struct {
	Name          string  `yaml:"name" json:"name"`
	MaxTokens     int     `yaml:"max_tokens,omitempty" json:"max_tokens"`
	Temperature   float32 `yaml:"temperature,omitempty" json:"temperature"`
	Images        bool    `yaml:"images,omitempty" json:"images"`
	ContextWindow int     `yaml:"context_window,omitempty" json:"context_window,omitempty"`
	Speciality    string  `yaml:"speciality,omitempty" json:"speciality,omitempty"`
}

// Registry is the provider catalog.
type Registry struct {
	providers map[string]*ProviderConfig
	order     []string
}

type providersFile struct {
	Providers []*ProviderConfig `yaml:"providers"`
}

// NewRegistry returns the built-in catalog.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]*ProviderConfig)}
	for _, p := range builtinProviders() {
		r.add(p)
	}
	return r
}

// LoadRegistry returns the built-in catalog merged with providers.yaml when
// that file exists.
func LoadRegistry() (*Registry, error) {
	return LoadRegistryFrom(ProvidersPath())
}

func LoadRegistryFrom(path string) (*Registry, error) {
	r := NewRegistry()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read providers.yaml: %w", err)
	}

	var pf providersFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse providers.yaml: %w", err)
	}

	for _, p := range pf.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("providers.yaml: provider without name")
		}
		r.merge(p)
	}
	return r, nil
}

func (r *Registry) add(p *ProviderConfig) {
	if _, exists := r.providers[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	if p.Type == "" {
		p.Type = TypeOpenAI
	}
	if p.Title == "" {
		p.Title = p.Name
	}
	r.providers[p.Name] = p
}

// merge overlays non-empty override values onto an existing provider, or adds
// a new one.
func (r *Registry) merge(override *ProviderConfig) {
	base, ok := r.providers[override.Name]
	if !ok {
		r.add(override)
		return
	}
	if override.Title != "" {
		base.Title = override.Title
	}
	if override.Type != "" {
		base.Type = override.Type
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if len(override.SuggestedModels) > 0 {
		base.SuggestedModels = override.SuggestedModels
	}
	for _, m := range override.Models {
		replaced := false
		for i, existing := range base.Models {
			if existing.Name == m.Name {
				base.Models[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			base.Models = append(base.Models, m)
		}
	}
}

func (r *Registry) GetProvider(name string) (*ProviderConfig, bool) {
	p, ok := r.providers[name]
	if ok {
		return p, true
	}
	for _, candidate := range r.providers {
		if strings.EqualFold(candidate.Name, name) {
			return candidate, true
		}
	}
	return nil, false
}

func (r *Registry) ListProviders() []*ProviderConfig {
	out := make([]*ProviderConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// ModelInfo returns the characteristics of a model. Unknown models get the
// console defaults.
func (r *Registry) ModelInfo(provider, model string) ModelConfig {
	fallback := ModelConfig{Name: model, MaxTokens: 2000, Temperature: 0.3}
	p, ok := r.GetProvider(provider)
	if !ok {
		return fallback
	}
	for _, m := range p.Models {
		if m.Name == model {
			return *m
		}
	}
	return fallback
}

// SupportsImages reports whether image fields can be attached for the model.
func (r *Registry) SupportsImages(provider, model string) bool {
	return r.ModelInfo(provider, model).Images
}

// ModelsWithImages lists every model that accepts images, sorted.
func (r *Registry) ModelsWithImages() []string {
	var out []string
	for _, p := range r.ListProviders() {
		for _, m := range p.Models {
			if m.Images {
				out = append(out, p.Name+"/"+m.Name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func builtinProviders() []*ProviderConfig {
	return []*ProviderConfig{
		{
			Name:    "openAI",
			Title:   "OpenAI",
			Type:    TypeOpenAI,
			BaseURL: "https://api.openai.com/v1",
			Models: []*ModelConfig{
				{Name: "gpt-4.1", MaxTokens: 32768, Temperature: 0.3, Images: true, ContextWindow: 1000000},
				{Name: "gpt-4.1-mini", MaxTokens: 16384, Temperature: 0.3, Images: true, ContextWindow: 1000000},
				{Name: "gpt-4.1-nano", MaxTokens: 8192, Temperature: 0.3, ContextWindow: 500000},
				{Name: "gpt-4o", MaxTokens: 4000, Temperature: 0.3},
				{Name: "gpt-4o-mini", MaxTokens: 2000, Temperature: 0.3, Images: true},
				{Name: "gpt-4-turbo", MaxTokens: 4000, Temperature: 0.3, Images: true},
			},
		},
		{
			Name:    "claude",
			Title:   "Claude",
			Type:    TypeAnthropic,
			BaseURL: "https://api.anthropic.com/v1",
			Models: []*ModelConfig{
				{Name: "claude-opus-4-20250514", MaxTokens: 4000, Temperature: 0.3, Images: true, ContextWindow: 200000},
				{Name: "claude-sonnet-4-20250514", MaxTokens: 3000, Temperature: 0.3, Images: true, ContextWindow: 200000},
				{Name: "claude-3-7-sonnet-latest", MaxTokens: 3000, Temperature: 0.3, Images: true, ContextWindow: 200000},
				{Name: "claude-3-5-haiku-latest", MaxTokens: 3000, Temperature: 0.3, Images: true, ContextWindow: 200000},
			},
		},
		{
			Name:    "gemini",
			Title:   "Gemini",
			Type:    TypeOpenAI,
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
			Models: []*ModelConfig{
				{Name: "gemini-2.5-pro", MaxTokens: 8000, Temperature: 0.3, Images: true, ContextWindow: 1000000},
				{Name: "gemini-2.5-flash", MaxTokens: 2000, Temperature: 0.3, Images: true, ContextWindow: 1000000},
				{Name: "gemini-2.0-flash", MaxTokens: 1000, Temperature: 0.3, Images: true, ContextWindow: 128000},
				{Name: "gemini-2.0-flash-lite", MaxTokens: 1000, Temperature: 0.3, Images: true, ContextWindow: 128000},
			},
		},
		{
			Name:    "deepSeek",
			Title:   "DeepSeek",
			Type:    TypeOpenAI,
			BaseURL: "https://api.deepseek.com/v1",
			Models: []*ModelConfig{
				{Name: "deepseek-reasoner", MaxTokens: 4000, Temperature: 0.3, ContextWindow: 128000},
				{Name: "deepseek-chat", MaxTokens: 1000, Temperature: 0.3, ContextWindow: 128000},
			},
		},
		{
			Name:    "xai",
			Title:   "xAI",
			Type:    TypeOpenAI,
			BaseURL: "https://api.x.ai/v1",
			Models: []*ModelConfig{
				{Name: "grok-3", MaxTokens: 4000, Temperature: 0.3, Images: true},
				{Name: "grok-2", MaxTokens: 3000, Temperature: 0.3, Images: true},
			},
		},
		{
			Name:    "meta",
			Title:   "Meta",
			Type:    TypeOpenAI,
			BaseURL: "https://api.llama-api.com/v1",
			Models: []*ModelConfig{
				{Name: "llama-4", MaxTokens: 8000, Temperature: 0.3, Images: true},
				{Name: "llama-3.3-70b", MaxTokens: 4000, Temperature: 0.3, ContextWindow: 128000},
				{Name: "llama-3.2-90b", MaxTokens: 4000, Temperature: 0.3, Images: true, ContextWindow: 128000},
			},
		},
		{
			Name:    "qwen",
			Title:   "Qwen",
			Type:    TypeOpenAI,
			BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Models: []*ModelConfig{
				{Name: "qwen-3", MaxTokens: 8000, Temperature: 0.3, Images: true},
				{Name: "qwen-2.5-72b", MaxTokens: 4000, Temperature: 0.3, Images: true, ContextWindow: 128000},
				{Name: "qwen-2.5-32b", MaxTokens: 3000, Temperature: 0.3, ContextWindow: 32000},
			},
		},
		{
			Name:    "mistral",
			Title:   "Mistral",
			Type:    TypeOpenAI,
			BaseURL: "https://api.mistral.ai/v1",
			Models: []*ModelConfig{
				{Name: "mistral-large-2", MaxTokens: 4000, Temperature: 0.3, ContextWindow: 128000},
				{Name: "mistral-medium", MaxTokens: 3000, Temperature: 0.3, ContextWindow: 32000},
				{Name: "mistral-small", MaxTokens: 2000, Temperature: 0.3, ContextWindow: 32000},
			},
		},
	}
}
