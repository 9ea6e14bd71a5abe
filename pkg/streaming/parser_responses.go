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

package streaming

import (
	"encoding/json"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// responsesEvent is the minimal shape of a Responses-API style SSE event.
// Event discriminants arrive as chunk.Event (e.g. "response.created",
// "response.output_text.delta", "response.output_item.done",
// "response.completed").
type responsesEvent struct {
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	OutputIndex int   `json:"output_index"`
	Delta      string `json:"delta"`
	Item       *struct {
		Type      string `json:"type"` // "message" | "reasoning" | "function_call"
		ID        string `json:"id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
		Signature string `json:"signature"`
		Content   []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"item"`
	Response *struct {
		ID    string `json:"id"`
		Usage *struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
		} `json:"usage"`
		Status string `json:"status"`
	} `json:"response"`
}

// itemBuilder accumulates deltas for the item currently being streamed,
// keyed by item id (spec §9: disambiguate by id, not output index).
type itemBuilder struct {
	kind string // "message" | "reasoning" | "function_call"
	text string
	name string
	args string
}

// ResponsesAPIParser implements the "Responses-API style" family from
// spec §4.B: tracks response_id, the item currently under construction,
// and emits a full item on its item-done event.
type ResponsesAPIParser struct {
	responseID string
	items      map[string]*itemBuilder
	order      []string
	finished   bool
}

// NewResponsesAPIParser constructs a fresh parser for one request.
func NewResponsesAPIParser() *ResponsesAPIParser {
	return &ResponsesAPIParser{items: map[string]*itemBuilder{}}
}

func (p *ResponsesAPIParser) Feed(chunk RawChunk) ([]StreamUpdate, error) {
	var ev responsesEvent
	if len(chunk.Data) > 0 {
		if err := json.Unmarshal(chunk.Data, &ev); err != nil {
			return nil, err
		}
	}

	switch chunk.Event {
	case "response.created":
		p.responseID = ev.Response.ID
		return []StreamUpdate{{Kind: UpdateCreated}}, nil

	case "response.output_text.delta":
		b := p.builder(ev.ItemID, "message")
		b.text += ev.Delta
		return []StreamUpdate{{Kind: UpdateTextDelta, TextDelta: ev.Delta, BlockIndex: ev.OutputIndex}}, nil

	case "response.reasoning_summary_text.delta":
		b := p.builder(ev.ItemID, "reasoning")
		b.text += ev.Delta
		return []StreamUpdate{{Kind: UpdateReasoningSummaryDelta, ReasoningDelta: ev.Delta, BlockIndex: ev.OutputIndex}}, nil

	case "response.function_call_arguments.delta":
		b := p.builder(ev.ItemID, "function_call")
		b.args += ev.Delta
		return []StreamUpdate{{Kind: UpdateToolCallDelta, ToolCallID: ev.ItemID, BlockIndex: ev.OutputIndex}}, nil

	case "response.output_item.done":
		return p.completeItem(ev), nil

	case "response.completed", "response.incomplete", "response.failed":
		var usage protocol.TokenUsage
		finish := protocol.FinishStop
		if ev.Response != nil {
			if ev.Response.Usage != nil {
				in, _ := protocol.ClampI64(ev.Response.Usage.InputTokens)
				out, _ := protocol.ClampI64(ev.Response.Usage.OutputTokens)
				usage = protocol.TokenUsage{InputTokens: in, OutputTokens: out}
			}
			if ev.Response.Status == "incomplete" {
				finish = protocol.FinishMaxTurns
			} else if ev.Response.Status == "failed" {
				finish = protocol.FinishError
			}
		}
		p.finished = true
		return []StreamUpdate{{Kind: UpdateDone, FinishReason: finish, Usage: usage}}, nil

	default:
		return nil, nil
	}
}

func (p *ResponsesAPIParser) builder(itemID, kind string) *itemBuilder {
	b, ok := p.items[itemID]
	if !ok {
		b = &itemBuilder{kind: kind}
		p.items[itemID] = b
		p.order = append(p.order, itemID)
	}
	return b
}

func (p *ResponsesAPIParser) completeItem(ev responsesEvent) []StreamUpdate {
	if ev.Item == nil {
		return nil
	}
	b := p.builder(ev.ItemID, ev.Item.Type)
	switch ev.Item.Type {
	case "message":
		text := b.text
		if text == "" {
			for _, c := range ev.Item.Content {
				text += c.Text
			}
		}
		return []StreamUpdate{{Kind: UpdateTextDone, TextDelta: text, BlockIndex: ev.OutputIndex}}
	case "reasoning":
		return []StreamUpdate{{Kind: UpdateThinkingDone, ThinkingDelta: b.text, Signature: ev.Item.Signature, BlockIndex: ev.OutputIndex}}
	case "function_call":
		args := b.args
		if args == "" {
			args = ev.Item.Arguments
		}
		return []StreamUpdate{{
			Kind: UpdateToolCallComplete, ToolCallID: ev.Item.ID,
			ToolCallName: ev.Item.Name, ToolArgsJSON: args, BlockIndex: ev.OutputIndex,
		}}
	default:
		return nil
	}
}

// Flush: the Responses-API family always ends with an explicit
// response.completed/incomplete/failed event, so there is nothing left to
// flush when the transport closes cleanly. If the connection dropped
// mid-stream, the caller sees a transport error before Flush is reached.
func (p *ResponsesAPIParser) Flush() []StreamUpdate {
	if p.finished {
		return nil
	}
	return []StreamUpdate{{Kind: UpdateDone, FinishReason: protocol.FinishError}}
}
