package agent

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatProvider implements the Provider interface for any OpenAI-compatible API.
// This covers: OpenAI, Gemini, DeepSeek, xAI, Meta Llama API, Qwen, Mistral.
type OpenAICompatProvider struct {
	client       *openai.Client
	model        string
	providerName string
}

// OpenAICompatConfig holds configuration for an OpenAI-compatible provider
type OpenAICompatConfig struct {
	ProviderName string // Display name (e.g., "openAI", "deepSeek")
	APIKey       string
	BaseURL      string
	Model        string
	DefaultURL   string // Default base URL if not specified
	DefaultModel string // Default model if not specified
}

// NewOpenAICompatProvider creates a new OpenAI-compatible provider
func NewOpenAICompatProvider(cfg OpenAICompatConfig) (*OpenAICompatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.Model == "" {
		cfg.Model = cfg.DefaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.DefaultURL
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL

	return &OpenAICompatProvider{
		client:       openai.NewClientWithConfig(config),
		model:        cfg.Model,
		providerName: cfg.ProviderName,
	}, nil
}

// Name returns the provider name
func (p *OpenAICompatProvider) Name() string {
	return p.providerName
}

// Chat sends messages and returns a response
func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openAIRequest(p.model, req))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%s API error: %w", p.providerName, err)
	}
	return genericResponseFromOpenAI(resp), nil
}

func openAIRequest(model string, req ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		messages = append(messages, openAIMessageFromGeneric(msg))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
}

func openAIMessageFromGeneric(msg Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if msg.Role == "assistant" {
		role = openai.ChatMessageRoleAssistant
	}

	if len(msg.Images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: msg.Content}
	}

	parts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: msg.Content,
	})
	for _, img := range msg.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func genericResponseFromOpenAI(resp openai.ChatCompletionResponse) ChatResponse {
	if len(resp.Choices) == 0 {
		return ChatResponse{}
	}

	choice := resp.Choices[0]
	return ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
}
