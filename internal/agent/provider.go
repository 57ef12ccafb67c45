package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kayz/promptdeck/internal/ai"
)

// ErrNoProvider is returned when no model is configured for a run.
var ErrNoProvider = errors.New("no model provider configured")

// Image is an attachment sent with the user message.
type Image struct {
	Name    string
	DataURL string
}

// Message is one chat message in provider-neutral form.
type Message struct {
	Role    string // "user" | "assistant"
	Content string
	Images  []Image
}

// ChatRequest is what a run sends to a provider.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float32
}

// ChatResponse is the provider's answer.
type ChatResponse struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ProviderOptions selects and authenticates a provider.
type ProviderOptions struct {
	Provider string
	Model    string
	APIURL   string
	APIKey   string
}

// NewProvider creates the client for opts. The catalog supplies the wire
// protocol and default URL; an explicit APIURL wins.
func NewProvider(opts ProviderOptions, catalog *ai.Registry) (Provider, error) {
	name := strings.TrimSpace(opts.Provider)
	if name == "" {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("model is required for provider %s", name)
	}

	kind := ai.TypeOpenAI
	defaultURL := ""
	if catalog != nil {
		if p, ok := catalog.GetProvider(name); ok {
			kind = p.Type
			defaultURL = p.BaseURL
		}
	}
	if defaultURL == "" && opts.APIURL == "" {
		return nil, fmt.Errorf("unknown provider %s and no api_url set: %w", name, ErrNoProvider)
	}

	switch kind {
	case ai.TypeAnthropic:
		return NewClaudeProvider(ClaudeConfig{
			APIKey:  opts.APIKey,
			BaseURL: firstNonEmpty(opts.APIURL, defaultURL),
			Model:   opts.Model,
		})
	default:
		return NewOpenAICompatProvider(OpenAICompatConfig{
			ProviderName: name,
			APIKey:       opts.APIKey,
			BaseURL:      opts.APIURL,
			Model:        opts.Model,
			DefaultURL:   defaultURL,
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
