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
	"context"
	"encoding/json"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// RawChunk is one provider SSE event, already split from the wire by the
// adapter's transport layer (event name + data payload). Non-streaming
// adapters never produce RawChunks; they call NewSingleShot instead.
type RawChunk struct {
	Event string
	Data  []byte
}

// Parser is a stateful per-request state machine that turns provider
// RawChunks into StreamUpdates. Implementations must key any
// multi-chunk-call accumulation (tool calls) by the provider's call id,
// never by block index alone (spec §9).
type Parser interface {
	// Feed consumes one chunk and returns zero or more updates.
	Feed(chunk RawChunk) ([]StreamUpdate, error)
	// Flush is called once the transport signals end-of-stream (a
	// provider sentinel, or the connection closing); it emits any
	// updates the parser was still holding (chat-completions family).
	Flush() []StreamUpdate
}

// Source yields RawChunks from an open provider connection. Recv returns
// (chunk, true, nil) per chunk, (zero, false, nil) at clean end-of-stream,
// or (zero, false, err) on a transport error.
type Source interface {
	Recv(ctx context.Context) (RawChunk, bool, error)
}

// Aggregator unifies a Parser+Source pair (streaming) or a single
// pre-built Response (non-streaming) behind one QueryResult iterator.
type Aggregator struct {
	parser Parser
	source Source

	// singleShot holds the non-streaming response, nil in streaming mode.
	singleShot *Response

	pending []StreamUpdate // buffered updates not yet turned into QueryResults
	done    bool
	err     error

	accum []protocol.ContentBlock // completed blocks, in emission order
	usage protocol.TokenUsage
}

// New creates a streaming aggregator over a Parser fed by Source.
func New(parser Parser, source Source) *Aggregator {
	return &Aggregator{parser: parser, source: source}
}

// NewSingleShot creates an aggregator that yields one assistant-content
// result per block of resp, followed by Done — used for providers that
// don't stream, or when the caller requested stream=false.
func NewSingleShot(resp *Response) *Aggregator {
	return &Aggregator{singleShot: resp}
}

// Next returns the next QueryResult. ok is false once the stream is
// exhausted (after a Done result has already been returned). Cancellation
// makes Next return promptly with a ResultError carrying ctx.Err().
func (a *Aggregator) Next(ctx context.Context) (QueryResult, bool) {
	if a.done {
		return QueryResult{}, false
	}
	if a.singleShot != nil {
		return a.nextSingleShot()
	}
	return a.nextStreaming(ctx)
}

func (a *Aggregator) nextSingleShot() (QueryResult, bool) {
	if len(a.singleShot.Content) > 0 {
		b := a.singleShot.Content[0]
		a.singleShot.Content = a.singleShot.Content[1:]
		a.accum = append(a.accum, b)
		return QueryResult{Kind: ResultAssistantContent, Block: &b}, true
	}
	a.done = true
	a.usage = a.singleShot.Usage
	return QueryResult{Kind: ResultDone, FinishReason: a.singleShot.FinishReason, Usage: a.singleShot.Usage}, true
}

func (a *Aggregator) nextStreaming(ctx context.Context) (QueryResult, bool) {
	for {
		if select_done(ctx) {
			a.done = true
			return QueryResult{Kind: ResultError, Err: ctx.Err()}, true
		}

		if len(a.pending) > 0 {
			u := a.pending[0]
			a.pending = a.pending[1:]
			return a.emit(u)
		}

		chunk, ok, err := a.source.Recv(ctx)
		if err != nil {
			a.done = true
			return QueryResult{Kind: ResultError, Err: protocol.New(protocol.KindStreamProtocolError, "streaming", "recv", "stream closed", err)}, true
		}
		if !ok {
			updates := a.parser.Flush()
			if len(updates) == 0 {
				a.done = true
				return QueryResult{Kind: ResultDone, FinishReason: protocol.FinishStop, Usage: a.usage}, true
			}
			a.pending = updates
			continue
		}

		updates, perr := a.parser.Feed(chunk)
		if perr != nil {
			// Malformed JSON in a chunk raises a parse error event but
			// does not poison the session (spec §4.B Failure model).
			return QueryResult{Kind: ResultError, Err: protocol.New(protocol.KindStreamProtocolError, "streaming", "parse", "malformed chunk", perr)}, true
		}
		a.pending = updates
	}
}

func select_done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (a *Aggregator) emit(u StreamUpdate) (QueryResult, bool) {
	switch u.Kind {
	case UpdateTextDone:
		b := protocol.Text(u.TextDelta)
		a.accum = append(a.accum, b)
		return QueryResult{Kind: ResultAssistantContent, Block: &b}, true
	case UpdateThinkingDone:
		b := protocol.Thinking(u.ThinkingDelta, u.Signature)
		a.accum = append(a.accum, b)
		return QueryResult{Kind: ResultAssistantContent, Block: &b}, true
	case UpdateToolCallComplete:
		b := protocol.ToolUse(u.ToolCallID, u.ToolCallName, json.RawMessage(u.ToolArgsJSON))
		a.accum = append(a.accum, b)
		return QueryResult{Kind: ResultAssistantContent, Block: &b}, true
	case UpdateDone:
		a.done = true
		a.usage = u.Usage
		return QueryResult{Kind: ResultDone, FinishReason: u.FinishReason, Usage: u.Usage}, true
	default:
		uu := u
		return QueryResult{Kind: ResultEvent, Event: &uu}, true
	}
}

// Collect drains the aggregator and returns the merged response, with
// blocks in exactly the order they were emitted.
func (a *Aggregator) Collect(ctx context.Context) (*Response, error) {
	var blocks []protocol.ContentBlock
	var usage protocol.TokenUsage
	var finish protocol.FinishReason
	for {
		qr, ok := a.Next(ctx)
		if !ok {
			break
		}
		switch qr.Kind {
		case ResultAssistantContent:
			blocks = append(blocks, *qr.Block)
		case ResultError:
			return nil, qr.Err
		case ResultDone:
			usage = qr.Usage
			finish = qr.FinishReason
		}
	}
	return &Response{Content: blocks, Usage: usage, FinishReason: finish}, nil
}
