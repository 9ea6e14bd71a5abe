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

package provider

import (
	"encoding/json"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/streaming"
)

// OpenAIAdapter implements the chat-completions wire family directly
// (hand-rolled HTTP + SSE), matching the teacher's pkg/model/openai.
type OpenAIAdapter struct {
	APIKey  string
	BaseURL string
	Model   string

	// previousResponseIDSupported is false for the plain chat-completions
	// endpoint; a Responses-API-backed OpenAI deployment would set this.
	previousResponseIDSupported bool
}

func (a *OpenAIAdapter) Name() string                    { return "openai" }
func (a *OpenAIAdapter) SupportsPreviousResponseID() bool { return a.previousResponseIDSupported }
func (a *OpenAIAdapter) NewParser() streaming.Parser      { return streaming.NewChatCompletionsParser() }

func (a *OpenAIAdapter) ValidateConfig() error {
	if a.Model == "" {
		return protocol.New(protocol.KindFatal, "provider.openai", "validate", "model is required", nil)
	}
	return nil
}

func (a *OpenAIAdapter) BuildRequestMetadata(prompt Prompt, pctx Context) RequestMetadata {
	return RequestMetadata{Headers: map[string]string{
		"Authorization": "Bearer " + a.APIKey,
		"Content-Type":  "application/json",
	}}
}

func (a *OpenAIAdapter) TransformRequest(prompt Prompt, pctx Context) (json.RawMessage, error) {
	msgs := make([]map[string]any, 0, len(prompt.Messages)+1)
	if prompt.SystemInstruction != "" {
		msgs = append(msgs, map[string]any{"role": "system", "content": prompt.SystemInstruction})
	}
	for _, m := range prompt.Messages {
		msgs = append(msgs, renderMessageOpenAI(m)...)
	}

	body := map[string]any{
		"model":    prompt.Config.ResolveModel(a.Model),
		"messages": msgs,
		"stream":   true,
	}
	if len(prompt.Tools) > 0 {
		tools := make([]map[string]any, 0, len(prompt.Tools))
		for _, t := range ToolDefinitionsJSON(prompt.Tools) {
			tools = append(tools, map[string]any{"type": "function", "function": t})
		}
		body["tools"] = tools
	}
	if prompt.Config.Temperature != nil {
		body["temperature"] = *prompt.Config.Temperature
	}
	if prompt.Config.MaxTokens != nil {
		body["max_tokens"] = *prompt.Config.MaxTokens
	}
	return json.Marshal(body)
}

// renderMessageOpenAI expands one Message into zero or more chat-completions
// messages: OpenAI requires each tool result as its own "tool" message,
// separate from the assistant message that issued the call (unlike
// Anthropic, which pairs them in one user message's content array).
func renderMessageOpenAI(m protocol.Message) []map[string]any {
	var out []map[string]any
	var assistantContent []map[string]any
	var toolCalls []map[string]any

	flushAssistant := func() {
		if len(assistantContent) == 0 && len(toolCalls) == 0 {
			return
		}
		msg := map[string]any{"role": "assistant"}
		if len(assistantContent) > 0 {
			msg["content"] = assistantContent
		}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		out = append(out, msg)
		assistantContent, toolCalls = nil, nil
	}

	for _, b := range m.Content {
		switch b.Type {
		case protocol.BlockText:
			if m.Role == protocol.RoleAssistant {
				assistantContent = append(assistantContent, map[string]any{"type": "text", "text": b.Text})
			} else {
				out = append(out, map[string]any{"role": string(m.Role), "content": b.Text})
			}
		case protocol.BlockToolUse:
			var args any
			_ = json.Unmarshal(b.ToolArgsRaw, &args)
			argsJSON, _ := json.Marshal(args)
			toolCalls = append(toolCalls, map[string]any{
				"id": b.ToolUseID, "type": "function",
				"function": map[string]any{"name": b.ToolName, "arguments": string(argsJSON)},
			})
		case protocol.BlockToolResult:
			flushAssistant()
			content := b.ResultText
			if b.ResultJSON != nil {
				content = string(b.ResultJSON)
			}
			out = append(out, map[string]any{"role": "tool", "tool_call_id": b.ToolUseRefID, "content": content})
		case protocol.BlockThinking:
			// OpenAI chat-completions has no first-class thinking block;
			// reasoning_content is server-generated and never replayed.
		}
	}
	flushAssistant()
	return out
}

func (a *OpenAIAdapter) TransformResponseChunk(chunk streaming.RawChunk, pctx Context) ([]streaming.StreamUpdate, error) {
	parser := getOrCreateParser(pctx, streaming.NewChatCompletionsParser)
	return parser.Feed(chunk)
}
