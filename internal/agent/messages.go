package agent

import (
	"errors"
	"strings"

	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/promptbuild"
)

// ErrEmptyInput is returned when the input box is blank.
var ErrEmptyInput = errors.New("input text is empty")

// Message modes.
const (
	// ModeLegacy sends one user message: the expanded template with the
	// input substituted for {{input_box}}.
	ModeLegacy = "legacy"
	// ModeSeparated sends the expanded template as system prompt and the
	// input as the user message.
	ModeSeparated = "separated"
)

const inputBoxToken = "{{" + fields.ReservedInputBox + "}}"

// Built is the outcome of BuildMessages.
type Built struct {
	Mode         string
	SystemPrompt string
	UserMessage  string
	Input        string
}

type inputOverride struct {
	promptbuild.Sources
	input string
}

func (o inputOverride) InputBox() string { return o.input }

// BuildMessages turns the template and current sources into chat messages.
func BuildMessages(template string, src promptbuild.Sources) (Built, error) {
	input := strings.TrimSpace(src.InputBox())
	if input == "" {
		return Built{}, ErrEmptyInput
	}

	if strings.Contains(template, inputBoxToken) {
		return Built{
			Mode:        ModeLegacy,
			UserMessage: promptbuild.Expand(template, inputOverride{src, input}, promptbuild.Plain),
			Input:       input,
		}, nil
	}

	system := promptbuild.Expand(template, inputOverride{src, ""}, promptbuild.Plain)
	return Built{
		Mode:         ModeSeparated,
		SystemPrompt: strings.TrimSpace(system),
		UserMessage:  input,
		Input:        input,
	}, nil
}

// Request converts b into a ChatRequest with the given images attached to the
// user message.
func (b Built) Request(images []Image, maxTokens int, temperature float32) ChatRequest {
	return ChatRequest{
		SystemPrompt: b.SystemPrompt,
		Messages: []Message{{
			Role:    "user",
			Content: b.UserMessage,
			Images:  images,
		}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// ImagesFromFields collects the payloads of enabled image fields.
func ImagesFromFields(list []fields.Field) []Image {
	var out []Image
	for _, f := range list {
		if f.Kind != fields.KindImage || !f.Enabled || f.Image == nil || f.Image.DataURL == "" {
			continue
		}
		out = append(out, Image{Name: f.Name, DataURL: f.Image.DataURL})
	}
	return out
}
