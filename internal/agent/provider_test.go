package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/kayz/promptdeck/internal/ai"
)

func TestNewProviderSelectsProtocol(t *testing.T) {
	catalog := ai.NewRegistry()

	p, err := NewProvider(ProviderOptions{Provider: "claude", Model: "claude-3-5-haiku-latest", APIKey: "k"}, catalog)
	if err != nil {
		t.Fatalf("claude: %v", err)
	}
	if _, ok := p.(*ClaudeProvider); !ok {
		t.Fatalf("expected ClaudeProvider, got %T", p)
	}

	p, err = NewProvider(ProviderOptions{Provider: "deepSeek", Model: "deepseek-chat", APIKey: "k"}, catalog)
	if err != nil {
		t.Fatalf("deepseek: %v", err)
	}
	compat, ok := p.(*OpenAICompatProvider)
	if !ok || compat.Name() != "deepSeek" {
		t.Fatalf("expected OpenAI-compatible deepSeek, got %T", p)
	}
}

func TestNewProviderErrors(t *testing.T) {
	catalog := ai.NewRegistry()

	if _, err := NewProvider(ProviderOptions{}, catalog); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if _, err := NewProvider(ProviderOptions{Provider: "openAI", APIKey: "k"}, catalog); err == nil {
		t.Fatalf("expected missing model error")
	}
	if _, err := NewProvider(ProviderOptions{Provider: "nowhere", Model: "m", APIKey: "k"}, catalog); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
	if _, err := NewProvider(ProviderOptions{Provider: "openAI", Model: "gpt-4.1"}, catalog); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewProvider(ProviderOptions{Provider: "local", Model: "m", APIKey: "k", APIURL: "http://localhost:1234/v1"}, catalog); err != nil {
		t.Fatalf("custom url provider: %v", err)
	}
}

func TestOpenAIRequestAttachesImages(t *testing.T) {
	req := openAIRequest("gpt-4.1-mini", ChatRequest{
		SystemPrompt: "sys",
		Messages: []Message{{
			Role:    "user",
			Content: "describe",
			Images:  []Image{{Name: "p", DataURL: "data:image/png;base64,AA"}},
		}},
		Temperature: 0.3,
	})

	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	user := req.Messages[1]
	if user.Content != "" || len(user.MultiContent) != 2 {
		t.Fatalf("expected multi-content user message, got %+v", user)
	}
	if user.MultiContent[1].ImageURL == nil || user.MultiContent[1].ImageURL.URL != "data:image/png;base64,AA" {
		t.Fatalf("image part missing: %+v", user.MultiContent[1])
	}
	if req.MaxTokens != 2000 {
		t.Fatalf("expected default max tokens, got %d", req.MaxTokens)
	}
}

func TestOpenAICompatChatAgainstServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAICompatProvider(OpenAICompatConfig{
		ProviderName: "openAI",
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/v1",
		Model:        "gpt-4.1-mini",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	resp, err := p.Chat(context.Background(), ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []Message{{Role: "user", Content: "ping"}},
		MaxTokens:    10,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "pong" || resp.FinishReason != "stop" || resp.InputTokens != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Model != "gpt-4.1-mini" || len(got.Messages) != 2 || got.Messages[1].Content != "ping" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestClaudeRequest(t *testing.T) {
	req := claudeRequest("claude-3-5-haiku-latest", ChatRequest{
		SystemPrompt: "sys",
		Messages: []Message{{
			Role:    "user",
			Content: "what is this",
			Images: []Image{
				{Name: "ok", DataURL: "data:image/webp;base64,QUJD"},
				{Name: "bad", DataURL: "https://example.com/a.png"},
			},
		}},
		Temperature: 0.3,
	})

	if req.System != "sys" || req.MaxTokens != 2000 || req.Temperature == nil || *req.Temperature != 0.3 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != anthropic.RoleUser {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	content := req.Messages[0].Content
	if len(content) != 2 {
		t.Fatalf("expected one image and one text block, got %d", len(content))
	}
	if content[0].Source == nil || content[0].Source.MediaType != "image/webp" {
		t.Fatalf("unexpected image block: %+v", content[0])
	}
	if content[1].GetText() != "what is this" {
		t.Fatalf("unexpected text block: %+v", content[1])
	}
}

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		in        string
		mediaType string
		data      string
		ok        bool
	}{
		{"data:image/png;base64,AAAA", "image/png", "AAAA", true},
		{"data:application/octet-stream;base64,AAAA", "image/jpeg", "AAAA", true},
		{"data:image/png;base64,", "", "", false},
		{"http://x/y.png", "", "", false},
	}
	for _, tt := range tests {
		mediaType, data, ok := splitDataURL(tt.in)
		if mediaType != tt.mediaType || data != tt.data || ok != tt.ok {
			t.Fatalf("splitDataURL(%q) = %q, %q, %v", tt.in, mediaType, data, ok)
		}
	}
}
