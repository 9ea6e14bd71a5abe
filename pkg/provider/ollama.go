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

// OllamaAdapter talks the OpenAI-compatible chat-completions endpoint
// Ollama exposes locally, matching the teacher's pkg/model/ollama.
type OllamaAdapter struct {
	BaseURL string
	Model   string
}

func (a *OllamaAdapter) Name() string                    { return "ollama" }
func (a *OllamaAdapter) SupportsPreviousResponseID() bool { return false }
func (a *OllamaAdapter) NewParser() streaming.Parser      { return streaming.NewChatCompletionsParser() }

func (a *OllamaAdapter) ValidateConfig() error {
	if a.Model == "" {
		return protocol.New(protocol.KindFatal, "provider.ollama", "validate", "model is required", nil)
	}
	return nil
}

func (a *OllamaAdapter) BuildRequestMetadata(prompt Prompt, pctx Context) RequestMetadata {
	return RequestMetadata{Headers: map[string]string{"Content-Type": "application/json"}}
}

func (a *OllamaAdapter) TransformRequest(prompt Prompt, pctx Context) (json.RawMessage, error) {
	msgs := make([]map[string]any, 0, len(prompt.Messages)+1)
	if prompt.SystemInstruction != "" {
		msgs = append(msgs, map[string]any{"role": "system", "content": prompt.SystemInstruction})
	}
	for _, m := range prompt.Messages {
		msgs = append(msgs, renderMessageOpenAI(m)...)
	}
	body := map[string]any{"model": prompt.Config.ResolveModel(a.Model), "messages": msgs, "stream": true}
	if len(prompt.Tools) > 0 {
		tools := make([]map[string]any, 0, len(prompt.Tools))
		for _, t := range ToolDefinitionsJSON(prompt.Tools) {
			tools = append(tools, map[string]any{"type": "function", "function": t})
		}
		body["tools"] = tools
	}
	return json.Marshal(body)
}

func (a *OllamaAdapter) TransformResponseChunk(chunk streaming.RawChunk, pctx Context) ([]streaming.StreamUpdate, error) {
	parser := getOrCreateParser(pctx, streaming.NewChatCompletionsParser)
	return parser.Feed(chunk)
}
