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
	"strings"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// chatCompletionsChunk is the minimal shape common to OpenAI/Ollama-style
// chat-completions streaming deltas.
type chatCompletionsChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning_content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

type toolCallAccum struct {
	id   string
	name string
	args strings.Builder
}

// ChatCompletionsParser implements the "chat-completions style" family
// from spec §4.B: accumulates assistant text, reasoning text and tool-call
// fragments, and emits completed blocks only on finish_reason.
type ChatCompletionsParser struct {
	text      strings.Builder
	reasoning strings.Builder

	// indexToID maps the provider's positional tool-call index to its id,
	// populated as soon as an id is seen. Tool-call accumulation itself
	// is keyed by id (spec §9): two interleaved tool calls sharing a
	// block index are disambiguated by id, never by index alone.
	indexToID map[int]string
	calls     map[string]*toolCallAccum
	callOrder []string

	usage protocol.TokenUsage
	done  bool
}

// NewChatCompletionsParser constructs a fresh parser for one request.
func NewChatCompletionsParser() *ChatCompletionsParser {
	return &ChatCompletionsParser{
		indexToID: map[int]string{},
		calls:     map[string]*toolCallAccum{},
	}
}

func (p *ChatCompletionsParser) Feed(chunk RawChunk) ([]StreamUpdate, error) {
	if len(chunk.Data) == 0 || string(chunk.Data) == "[DONE]" {
		return p.flushOnSentinel(), nil
	}

	var c chatCompletionsChunk
	if err := json.Unmarshal(chunk.Data, &c); err != nil {
		return nil, err
	}

	var updates []StreamUpdate
	if c.Usage != nil {
		in, _ := protocol.ClampI64(c.Usage.PromptTokens)
		out, _ := protocol.ClampI64(c.Usage.CompletionTokens)
		p.usage = protocol.TokenUsage{InputTokens: in, OutputTokens: out}
	}

	for _, choice := range c.Choices {
		if choice.Delta.Content != "" {
			p.text.WriteString(choice.Delta.Content)
			updates = append(updates, StreamUpdate{Kind: UpdateTextDelta, TextDelta: choice.Delta.Content})
		}
		if choice.Delta.Reasoning != "" {
			p.reasoning.WriteString(choice.Delta.Reasoning)
			updates = append(updates, StreamUpdate{Kind: UpdateReasoningSummaryDelta, ReasoningDelta: choice.Delta.Reasoning})
		}
		for _, tc := range choice.Delta.ToolCalls {
			id := tc.ID
			if id == "" {
				id = p.indexToID[tc.Index]
			} else {
				p.indexToID[tc.Index] = id
			}
			if id == "" {
				// Provider never sent an id for this index; we cannot
				// disambiguate interleaved calls, so skip rather than
				// guess (spec §9).
				continue
			}
			acc, ok := p.calls[id]
			if !ok {
				acc = &toolCallAccum{id: id}
				p.calls[id] = acc
				p.callOrder = append(p.callOrder, id)
				updates = append(updates, StreamUpdate{Kind: UpdateToolCallStart, ToolCallID: id})
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				acc.args.WriteString(tc.Function.Arguments)
				updates = append(updates, StreamUpdate{Kind: UpdateToolCallDelta, ToolCallID: id})
			}
		}

		if choice.FinishReason != nil {
			updates = append(updates, p.finish(*choice.FinishReason)...)
		}
	}
	return updates, nil
}

func (p *ChatCompletionsParser) finish(reason string) []StreamUpdate {
	var updates []StreamUpdate
	if p.reasoning.Len() > 0 {
		updates = append(updates, StreamUpdate{Kind: UpdateThinkingDone, ThinkingDelta: p.reasoning.String()})
	}
	switch reason {
	case "tool_calls":
		for _, id := range p.callOrder {
			acc := p.calls[id]
			updates = append(updates, StreamUpdate{
				Kind: UpdateToolCallComplete, ToolCallID: acc.id,
				ToolCallName: acc.name, ToolArgsJSON: acc.args.String(),
			})
		}
		updates = append(updates, StreamUpdate{Kind: UpdateDone, FinishReason: protocol.FinishToolCalls, Usage: p.usage})
	case "stop":
		if p.text.Len() > 0 {
			updates = append(updates, StreamUpdate{Kind: UpdateTextDone, TextDelta: p.text.String()})
		}
		updates = append(updates, StreamUpdate{Kind: UpdateDone, FinishReason: protocol.FinishStop, Usage: p.usage})
	default:
		if p.text.Len() > 0 {
			updates = append(updates, StreamUpdate{Kind: UpdateTextDone, TextDelta: p.text.String()})
		}
		updates = append(updates, StreamUpdate{Kind: UpdateDone, FinishReason: protocol.FinishReason(reason), Usage: p.usage})
	}
	p.done = true
	return updates
}

// flushOnSentinel handles an explicit end-of-stream marker some providers
// send instead of (or in addition to) a finish_reason choice.
func (p *ChatCompletionsParser) flushOnSentinel() []StreamUpdate {
	if p.done {
		return nil
	}
	return p.finish("stop")
}

// Flush emits anything still accumulated when the transport closes
// without an explicit finish_reason or [DONE] sentinel.
func (p *ChatCompletionsParser) Flush() []StreamUpdate {
	if p.done {
		return nil
	}
	return p.finish("stop")
}
