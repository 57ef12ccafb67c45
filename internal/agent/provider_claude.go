package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	claudeDefaultBaseURL = "https://api.anthropic.com/v1"
	claudeDefaultModel   = "claude-sonnet-4-20250514"
)

// ClaudeProvider implements the Provider interface for Anthropic
type ClaudeProvider struct {
	client *anthropic.Client
	model  string
}

// ClaudeConfig holds Claude provider configuration
type ClaudeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg ClaudeConfig) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.Model == "" {
		cfg.Model = claudeDefaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = claudeDefaultBaseURL
	}

	return &ClaudeProvider{
		client: anthropic.NewClient(cfg.APIKey, anthropic.WithBaseURL(baseURL)),
		model:  cfg.Model,
	}, nil
}

// Name returns the provider name
func (p *ClaudeProvider) Name() string {
	return "claude"
}

// Chat sends messages and returns a response
func (p *ClaudeProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, err := p.client.CreateMessages(ctx, claudeRequest(p.model, req))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("claude API error: %w", err)
	}

	return ChatResponse{
		Content:      resp.GetFirstContentText(),
		FinishReason: string(resp.StopReason),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func claudeRequest(model string, req ChatRequest) anthropic.MessagesRequest {
	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, claudeMessageFromGeneric(msg))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	temperature := req.Temperature

	return anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      req.SystemPrompt,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
}

func claudeMessageFromGeneric(msg Message) anthropic.Message {
	role := anthropic.RoleUser
	if msg.Role == "assistant" {
		role = anthropic.RoleAssistant
	}

	content := make([]anthropic.MessageContent, 0, len(msg.Images)+1)
	for _, img := range msg.Images {
		mediaType, data, ok := splitDataURL(img.DataURL)
		if !ok {
			continue
		}
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(anthropic.MessagesContentSourceTypeBase64, mediaType, data),
		))
	}
	content = append(content, anthropic.NewTextMessageContent(msg.Content))

	return anthropic.Message{Role: role, Content: content}
}

// splitDataURL breaks "data:image/png;base64,AAAA" into media type and payload.
// Images without a recognisable media type are sent as JPEG.
func splitDataURL(dataURL string) (mediaType, data string, ok bool) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", false
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !found || payload == "" {
		return "", "", false
	}
	mediaType, _, _ = strings.Cut(header, ";")
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}
	return mediaType, payload, true
}
