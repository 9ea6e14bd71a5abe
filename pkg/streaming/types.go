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

// Package streaming hides the difference between provider SSE streaming
// and single-shot JSON responses behind one pull iterator of QueryResult:
// a lazy sequence of completed content blocks plus a final usage summary.
//
// Two state machines, keyed by provider wire-format family, accumulate
// deltas per block (tool calls by call id, Responses-API items by item id)
// and emit a completed block only on that block's
// completion event; intermediate deltas are forwarded for UI rendering but
// never mistaken for completed content. This mirrors the
// iter.Seq2[*Response, error] pull-iterator shape the teacher's
// pkg/model.LLM.GenerateContent uses for the same streaming/non-streaming
// unification.
package streaming

import "github.com/cocode-dev/agentcore/pkg/protocol"

// UpdateKind discriminates StreamUpdate variants (spec §3).
type UpdateKind string

const (
	UpdateCreated               UpdateKind = "created"
	UpdateTextDelta             UpdateKind = "text_delta"
	UpdateTextDone              UpdateKind = "text_done"
	UpdateThinkingDelta         UpdateKind = "thinking_delta"
	UpdateThinkingDone          UpdateKind = "thinking_done"
	UpdateToolCallStart         UpdateKind = "tool_call_start"
	UpdateToolCallDelta         UpdateKind = "tool_call_delta"
	UpdateToolCallComplete      UpdateKind = "tool_call_complete"
	UpdateReasoningSummaryDelta UpdateKind = "reasoning_summary_delta"
	UpdateDone                  UpdateKind = "done"
)

// StreamUpdate is one unit produced by a provider's streaming parser.
type StreamUpdate struct {
	Kind UpdateKind

	// BlockIndex identifies which content block this update belongs to.
	// For tool calls the authoritative key is ToolCallID, not BlockIndex:
	// providers may interleave deltas for two tool calls at the same
	// index, and disambiguating by id (not index) is required by spec §9.
	BlockIndex int

	TextDelta      string
	ThinkingDelta  string
	ReasoningDelta string

	ToolCallID   string
	ToolCallName string
	ToolArgsJSON string // accumulated/complete JSON, valid on *Complete

	Signature string // thinking signature, valid on ThinkingDone

	FinishReason protocol.FinishReason // valid on Done
	Usage        protocol.TokenUsage   // valid on Done
}

// ResultKind discriminates QueryResult variants (spec §4.B).
type ResultKind string

const (
	ResultAssistantContent ResultKind = "assistant_content_ready"
	ResultEvent            ResultKind = "event"
	ResultRetrySignal      ResultKind = "retry_signal"
	ResultError            ResultKind = "error"
	ResultDone             ResultKind = "done"
)

// QueryResult is one unit yielded by Aggregator.Next.
type QueryResult struct {
	Kind ResultKind

	// Block is populated when Kind == ResultAssistantContent: a single
	// completed ContentBlock, emitted exactly once per block.
	Block *protocol.ContentBlock

	// Event is populated when Kind == ResultEvent: a raw StreamUpdate for
	// UI rendering (text/thinking deltas). Never treated as completed
	// content.
	Event *StreamUpdate

	// Err is populated when Kind == ResultError.
	Err error

	// FinishReason/Usage are populated when Kind == ResultDone.
	FinishReason protocol.FinishReason
	Usage        protocol.TokenUsage
}

// Response is the result of draining an Aggregator via Collect: merged
// content blocks in emission order, final usage, and finish reason.
type Response struct {
	Content      []protocol.ContentBlock
	Usage        protocol.TokenUsage
	FinishReason protocol.FinishReason
}
