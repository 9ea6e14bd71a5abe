// Copyright 2025 The agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package provider's Anthropic adapter talks raw HTTPS + hand-rolled SSE,
// matching the teacher's own pkg/model/anthropic/anthropic.go (no
// anthropic-sdk-go import appears in that teacher's go.mod — that SDK
// belongs to a different candidate repo, not this teacher).
package provider

import (
	"encoding/json"
	"fmt"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/streaming"
)

// AnthropicAdapter implements Adapter for the Anthropic Messages API.
// Anthropic's block lifecycle (message_start / content_block_start /
// content_block_delta / content_block_stop / message_delta /
// message_stop) is item-based like the Responses-API family, so this
// adapter normalizes Anthropic's event names onto the shared
// streaming.ResponsesAPIParser vocabulary rather than hand-rolling a
// third parser state machine.
type AnthropicAdapter struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (a *AnthropicAdapter) Name() string                       { return "anthropic" }
func (a *AnthropicAdapter) SupportsPreviousResponseID() bool    { return false }
func (a *AnthropicAdapter) NewParser() streaming.Parser         { return streaming.NewResponsesAPIParser() }

func (a *AnthropicAdapter) ValidateConfig() error {
	if a.Model == "" {
		return protocol.New(protocol.KindFatal, "provider.anthropic", "validate", "model is required", nil)
	}
	return nil
}

func (a *AnthropicAdapter) BuildRequestMetadata(prompt Prompt, pctx Context) RequestMetadata {
	return RequestMetadata{Headers: map[string]string{
		"x-api-key":         a.APIKey,
		"anthropic-version": "2023-06-01",
		"content-type":      "application/json",
	}}
}

func (a *AnthropicAdapter) TransformRequest(prompt Prompt, pctx Context) (json.RawMessage, error) {
	if prompt.PreviousResponseID != "" {
		return nil, protocol.New(protocol.KindFatal, "provider.anthropic", "transform_request",
			"anthropic does not support previous_response_id", nil)
	}
	msgs := make([]map[string]any, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		if m.Role == protocol.RoleSystem {
			continue
		}
		msgs = append(msgs, map[string]any{"role": string(m.Role), "content": renderContentAnthropic(m.Content)})
	}
	body := map[string]any{
		"model":    prompt.Config.ResolveModel(a.Model),
		"messages": msgs,
		"stream":   true,
	}
	if prompt.SystemInstruction != "" {
		body["system"] = prompt.SystemInstruction
	}
	if len(prompt.Tools) > 0 {
		body["tools"] = ToolDefinitionsJSON(prompt.Tools)
	}
	if prompt.Config.MaxTokens != nil {
		body["max_tokens"] = *prompt.Config.MaxTokens
	} else {
		body["max_tokens"] = 4096
	}
	if prompt.Config.Temperature != nil {
		body["temperature"] = *prompt.Config.Temperature
	}
	return json.Marshal(body)
}

func renderContentAnthropic(blocks []protocol.ContentBlock) []map[string]any {
	out := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case protocol.BlockText:
			out = append(out, map[string]any{"type": "text", "text": b.Text})
		case protocol.BlockThinking:
			// Thinking signatures are provider-bound; callers sanitize
			// before cross-provider replay, so by the time we get here
			// a signature belongs to this same provider.
			out = append(out, map[string]any{"type": "thinking", "thinking": b.Text, "signature": b.Signature})
		case protocol.BlockToolUse:
			var input any
			_ = json.Unmarshal(b.ToolArgsRaw, &input)
			out = append(out, map[string]any{"type": "tool_use", "id": b.ToolUseID, "name": b.ToolName, "input": input})
		case protocol.BlockToolResult:
			content := b.ResultText
			if b.ResultJSON != nil {
				content = string(b.ResultJSON)
			}
			out = append(out, map[string]any{
				"type": "tool_result", "tool_use_id": b.ToolUseRefID, "content": content, "is_error": b.IsError,
			})
		}
	}
	return out
}

func (a *AnthropicAdapter) TransformResponseChunk(chunk streaming.RawChunk, pctx Context) ([]streaming.StreamUpdate, error) {
	parser := getOrCreateParser(pctx, streaming.NewResponsesAPIParser).(*streaming.ResponsesAPIParser)

	switch chunk.Event {
	case "content_block_delta":
		var ev struct {
			Index int `json:"index"`
			Delta struct {
				Type        string `json:"type"`
				Text        string `json:"text"`
				Thinking    string `json:"thinking"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(chunk.Data, &ev); err != nil {
			return nil, err
		}
		switch ev.Delta.Type {
		case "text_delta":
			return parser.Feed(streaming.RawChunk{Event: "response.output_text.delta",
				Data: mustJSON(map[string]any{"item_id": fmt.Sprintf("block_%d", ev.Index), "delta": ev.Delta.Text, "output_index": ev.Index})})
		case "thinking_delta":
			return parser.Feed(streaming.RawChunk{Event: "response.reasoning_summary_text.delta",
				Data: mustJSON(map[string]any{"item_id": fmt.Sprintf("block_%d", ev.Index), "delta": ev.Delta.Thinking, "output_index": ev.Index})})
		case "input_json_delta":
			return parser.Feed(streaming.RawChunk{Event: "response.function_call_arguments.delta",
				Data: mustJSON(map[string]any{"item_id": fmt.Sprintf("block_%d", ev.Index), "delta": ev.Delta.PartialJSON, "output_index": ev.Index})})
		}
		return nil, nil

	case "content_block_stop":
		var ev struct {
			Index     int `json:"index"`
			BlockMeta *struct {
				Type string `json:"type"`
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"content_block"`
		}
		_ = json.Unmarshal(chunk.Data, &ev)
		itemType, id, name := "message", fmt.Sprintf("block_%d", ev.Index), ""
		if ev.BlockMeta != nil {
			switch ev.BlockMeta.Type {
			case "tool_use":
				itemType, id, name = "function_call", ev.BlockMeta.ID, ev.BlockMeta.Name
			case "thinking":
				itemType = "reasoning"
			}
		}
		return parser.Feed(streaming.RawChunk{Event: "response.output_item.done", Data: mustJSON(map[string]any{
			"output_index": ev.Index, "item_id": id,
			"item": map[string]any{"type": itemType, "id": id, "name": name},
		})})

	case "message_stop":
		return parser.Feed(streaming.RawChunk{Event: "response.completed",
			Data: mustJSON(map[string]any{"response": map[string]any{"status": "completed"}})})

	case "message_start", "message_delta", "ping", "":
		// None of these carry content blocks. The token usage reported in
		// message_start and message_delta is not read, so the
		// response.completed emitted on message_stop carries no usage and
		// the final Done update reports zero tokens.
		return nil, nil

	default:
		return nil, nil
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
