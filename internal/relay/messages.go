// Package relay bridges an external device (the quest) and browser frontends
// to the console over WebSockets.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Message types exchanged on the relay.
const (
	TypeQuestData   = "quest_data"
	TypeLLMResponse = "llm_response"
	TypeError       = "error"
	TypePing        = "ping"
	TypePong        = "pong"
)

// Envelope is every typed message on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TextMessage carries a string payload.
type TextMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// QuestItem is one name/value pair pushed by the device.
type QuestItem struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

var errNotArray = errors.New("quest data must be an array of name/value items")

// ParseQuestData accepts either a bare item array or a quest_data envelope.
// It returns the raw array for forwarding and the values to sift. Items with a
// missing name or a null value are skipped.
func ParseQuestData(raw []byte) (json.RawMessage, map[string]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, nil, fmt.Errorf("parse quest envelope: %w", err)
		}
		if env.Type != TypeQuestData {
			return nil, nil, fmt.Errorf("unexpected message type %q", env.Type)
		}
		trimmed = bytes.TrimSpace(env.Data)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, errNotArray
	}

	var items []QuestItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, nil, fmt.Errorf("parse quest items: %w", err)
	}

	values := make(map[string]string, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		v, ok := questValue(item.Value)
		if !ok {
			continue
		}
		values[item.Name] = v
	}
	return json.RawMessage(trimmed), values, nil
}

// questValue turns a JSON scalar into field text. Null and absent values
// report false.
func questValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	// Objects and arrays are passed through as JSON text.
	return string(raw), true
}
