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
	"fmt"

	"google.golang.org/genai"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/streaming"
)

// GeminiAdapter wraps google.golang.org/genai, the one provider SDK this
// teacher's go.mod itself depends on directly (pkg/model/gemini uses the
// same module).
type GeminiAdapter struct {
	APIKey string
	Model  string
}

func (a *GeminiAdapter) Name() string                    { return "gemini" }
func (a *GeminiAdapter) SupportsPreviousResponseID() bool { return false }
func (a *GeminiAdapter) NewParser() streaming.Parser      { return streaming.NewResponsesAPIParser() }

func (a *GeminiAdapter) ValidateConfig() error {
	if a.Model == "" {
		return protocol.New(protocol.KindFatal, "provider.gemini", "validate", "model is required", nil)
	}
	return nil
}

func (a *GeminiAdapter) BuildRequestMetadata(prompt Prompt, pctx Context) RequestMetadata {
	return RequestMetadata{QueryParams: map[string]string{"key": a.APIKey}}
}

// TransformRequest builds a genai.GenerateContentRequest-shaped payload.
// We marshal through genai.Content directly rather than a hand-rolled map
// so the wire shape always matches whatever this SDK version expects.
func (a *GeminiAdapter) TransformRequest(prompt Prompt, pctx Context) (json.RawMessage, error) {
	var contents []*genai.Content
	for _, m := range prompt.Messages {
		role := "user"
		if m.Role == protocol.RoleAssistant {
			role = "model"
		}
		var parts []*genai.Part
		for _, b := range m.Content {
			switch b.Type {
			case protocol.BlockText:
				parts = append(parts, genai.NewPartFromText(b.Text))
			case protocol.BlockToolUse:
				var args map[string]any
				_ = json.Unmarshal(b.ToolArgsRaw, &args)
				parts = append(parts, genai.NewPartFromFunctionCall(b.ToolName, args))
			case protocol.BlockToolResult:
				resp := map[string]any{"text": b.ResultText}
				if b.ResultJSON != nil {
					_ = json.Unmarshal(b.ResultJSON, &resp)
				}
				parts = append(parts, genai.NewPartFromFunctionResponse(b.ToolUseRefID, resp))
			}
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	req := map[string]any{
		"model":    prompt.Config.ResolveModel(a.Model),
		"contents": contents,
	}
	if prompt.SystemInstruction != "" {
		req["systemInstruction"] = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(prompt.SystemInstruction)}}
	}
	if len(prompt.Tools) > 0 {
		req["tools"] = ToolDefinitionsJSON(prompt.Tools)
	}
	return json.Marshal(req)
}

// TransformResponseChunk normalizes a genai streaming candidate chunk onto
// the shared Responses-API parser's event vocabulary: Gemini's candidate/
// part model is item-based the same way.
func (a *GeminiAdapter) TransformResponseChunk(chunk streaming.RawChunk, pctx Context) ([]streaming.StreamUpdate, error) {
	parser := getOrCreateParser(pctx, streaming.NewResponsesAPIParser).(*streaming.ResponsesAPIParser)

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text         string `json:"text"`
					FunctionCall *struct {
						Name string         `json:"name"`
						Args map[string]any `json:"args"`
					} `json:"functionCall"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata *struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(chunk.Data, &resp); err != nil {
		return nil, err
	}

	var updates []streaming.StreamUpdate
	for ci, cand := range resp.Candidates {
		for pi, part := range cand.Content.Parts {
			itemID := fmt.Sprintf("cand_%d_part_%d", ci, pi)
			if part.Text != "" {
				fed, err := parser.Feed(streaming.RawChunk{Event: "response.output_item.done", Data: mustJSON(map[string]any{
					"output_index": pi, "item_id": itemID,
					"item": map[string]any{"type": "message", "content": []map[string]any{{"text": part.Text}}},
				})})
				if err != nil {
					return nil, err
				}
				updates = append(updates, fed...)
			}
			if part.FunctionCall != nil {
				argsJSON, _ := json.Marshal(part.FunctionCall.Args)
				fed, err := parser.Feed(streaming.RawChunk{Event: "response.output_item.done", Data: mustJSON(map[string]any{
					"output_index": pi, "item_id": itemID,
					"item": map[string]any{"type": "function_call", "id": itemID, "name": part.FunctionCall.Name, "arguments": string(argsJSON)},
				})})
				if err != nil {
					return nil, err
				}
				updates = append(updates, fed...)
			}
		}
		if cand.FinishReason != "" {
			var usage map[string]any
			if resp.UsageMetadata != nil {
				usage = map[string]any{
					"input_tokens":  resp.UsageMetadata.PromptTokenCount,
					"output_tokens": resp.UsageMetadata.CandidatesTokenCount,
				}
			}
			fed, err := parser.Feed(streaming.RawChunk{Event: "response.completed", Data: mustJSON(map[string]any{
				"response": map[string]any{"status": "completed", "usage": usage},
			})})
			if err != nil {
				return nil, err
			}
			updates = append(updates, fed...)
		}
	}
	return updates, nil
}
