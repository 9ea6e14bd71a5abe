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

// Package protocol defines the cross-component wire types for agentcore:
// messages, content blocks, streaming updates and token usage. Every
// exchange between the agent loop, the streaming aggregator, the tool
// engine and the provider adapters passes through these tagged types.
//
// There is no inheritance or runtime reflection here: every sum type is a
// struct with an explicit discriminant field and one populated payload
// field per variant. ContentBlock has a BlockOther discriminant with
// OtherType/OtherRaw fields, but no custom JSON methods: decoding a block
// with an unknown type keeps that type string in Type, drops every field
// the struct does not declare, and never converts it to BlockOther.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of conversation history.
type Message struct {
	Role     Role           `json:"role"`
	Content  []ContentBlock `json:"content"`
	Metadata MessageMeta    `json:"metadata,omitempty"`
}

// MessageMeta carries provenance used when history is replayed across
// providers (spec §9 switch_provider).
type MessageMeta struct {
	Source *ProviderSource `json:"source,omitempty"`
}

// ProviderSource names the (provider, model) pair that produced a message.
type ProviderSource struct {
	Provider string `json:"provider_name"`
	Model    string `json:"model_name"`
}

// ContentBlockType discriminates ContentBlock variants.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockThinking   ContentBlockType = "thinking"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
	BlockOther      ContentBlockType = "other"
)

// ContentBlock is a tagged union: Text, Thinking, ToolUse or ToolResult.
// Exactly one of the variant-specific fields is populated, selected by
// Type.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text / Thinking payload.
	Text string `json:"text,omitempty"`
	// Signature is provider-bound and present only on Thinking blocks.
	// It is stripped whenever history crosses a provider boundary.
	Signature string `json:"signature,omitempty"`

	// ToolUse payload.
	ToolUseID   string          `json:"id,omitempty"`
	ToolName    string          `json:"name,omitempty"`
	ToolArgsRaw json.RawMessage `json:"args_json,omitempty"`

	// ToolResult payload.
	ToolUseRefID string          `json:"tool_use_id,omitempty"`
	ResultText   string          `json:"result_text,omitempty"`
	ResultJSON   json.RawMessage `json:"result_json,omitempty"`
	IsError      bool            `json:"is_error,omitempty"`

	// Other payload: a discriminant name and its raw bytes. Only code that
	// builds a BlockOther block itself sets these; JSON decoding does not.
	OtherType string          `json:"other_type,omitempty"`
	OtherRaw  json.RawMessage `json:"other_raw,omitempty"`
}

// Text builds a Text content block.
func Text(text string) ContentBlock { return ContentBlock{Type: BlockText, Text: text} }

// Thinking builds a Thinking content block.
func Thinking(text, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Text: text, Signature: signature}
}

// ToolUse builds a ToolUse content block.
func ToolUse(id, name string, argsJSON json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolUseID: id, ToolName: name, ToolArgsRaw: argsJSON}
}

// ToolResultText builds a ToolResult block carrying plain text content.
func ToolResultText(toolUseID, text string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseRefID: toolUseID, ResultText: text, IsError: isError}
}

// ToolResultStructured builds a ToolResult block carrying structured JSON.
func ToolResultStructured(toolUseID string, payload json.RawMessage, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseRefID: toolUseID, ResultJSON: payload, IsError: isError}
}

// SanitizeForProvider strips provider-bound fields (thinking signatures)
// ahead of a cross-provider replay. It is idempotent: calling it twice is
// the same as calling it once.
func (m *Message) SanitizeForProvider() {
	for i := range m.Content {
		if m.Content[i].Type == BlockThinking {
			m.Content[i].Signature = ""
		}
	}
	m.Metadata.Source = nil
}

// ToolUseIDs returns the ToolUseID of every ToolUse block in this
// message. It is a single-message helper; full history well-formedness
// is a property of a Message slice, see protocol.HistoryWellFormed.
func (m *Message) ToolUseIDs() []string {
	var ids []string
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			ids = append(ids, b.ToolUseID)
		}
	}
	return ids
}

// HistoryWellFormed checks the spec §3 invariant: every ToolUse block is
// matched, in some later message, by a ToolResult block with the same id.
// Blocks belonging to a cancelled turn are exempt by the caller filtering
// them out before calling this.
func HistoryWellFormed(messages []Message) error {
	pending := map[string]bool{}
	for _, m := range messages {
		for _, b := range m.Content {
			switch b.Type {
			case BlockToolUse:
				pending[b.ToolUseID] = true
			case BlockToolResult:
				delete(pending, b.ToolUseRefID)
			}
		}
	}
	if len(pending) > 0 {
		ids := make([]string, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		return fmt.Errorf("history not well-formed: unmatched tool_use ids %v", ids)
	}
	return nil
}

// TokenUsage is saturating: values arriving as i64 are clamped to the i32
// range at the boundary rather than panicking or wrapping.
type TokenUsage struct {
	InputTokens       int32 `json:"input_tokens"`
	OutputTokens      int32 `json:"output_tokens"`
	CacheReadTokens   *int32 `json:"cache_read_tokens,omitempty"`
	CacheCreateTokens *int32 `json:"cache_creation_tokens,omitempty"`
}

// ClampI64 saturates an int64 into the i32 range, returning whether
// clamping occurred (callers use this to decide whether to log a warning).
func ClampI64(v int64) (int32, bool) {
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -int64(1 << 31)
	if v > maxI32 {
		return int32(maxI32), true
	}
	if v < minI32 {
		return int32(minI32), true
	}
	return int32(v), false
}

// Add accumulates usage from another record (used when merging streaming
// deltas, or compaction-call usage into the running total).
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	if other.CacheReadTokens != nil {
		v := u.derefAdd(u.CacheReadTokens, *other.CacheReadTokens)
		u.CacheReadTokens = &v
	}
	if other.CacheCreateTokens != nil {
		v := u.derefAdd(u.CacheCreateTokens, *other.CacheCreateTokens)
		u.CacheCreateTokens = &v
	}
}

func (u *TokenUsage) derefAdd(cur *int32, add int32) int32 {
	if cur == nil {
		return add
	}
	return *cur + add
}

// FinishReason explains why a turn or run ended.
type FinishReason string

const (
	FinishStop       FinishReason = "stop"
	FinishToolCalls  FinishReason = "tool_calls"
	FinishMaxTurns   FinishReason = "max_turns"
	FinishCancelled  FinishReason = "cancelled"
	FinishError      FinishReason = "error"
)
