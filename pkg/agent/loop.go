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

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/provider"
	"github.com/cocode-dev/agentcore/pkg/streaming"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// DefaultMaxIterations bounds the outer loop the way the teacher's
// reasoning.MaxIterations safety check does in llmagent/flow.go — a
// runaway tool-call cycle ends with FinishMaxTurns (and a nil error)
// instead of spinning forever.
const DefaultMaxIterations = 50

// toolCancelGrace is how long dispatchTools keeps draining in-flight
// tools after the context is cancelled before abandoning the rest, per
// spec §4.D/§5: "drains currently running tools for a short grace
// period; tools that do not terminate are abandoned ... and synthesized
// as cancelled errors."
const toolCancelGrace = 500 * time.Millisecond

// Transport sends one already-adapter-shaped request and returns either a
// streaming.Source (stream=true) or a pre-built streaming.Response
// (stream=false). It is the network boundary the Agent Loop depends on;
// the concrete HTTP implementation lives outside this package so loop.go
// stays testable against a fake.
type Transport interface {
	Send(ctx context.Context, a provider.Adapter, raw []byte, meta provider.RequestMetadata, stream bool) (streaming.Source, *streaming.Response, error)
}

// LoopEventKind discriminates LoopEvent variants (spec §4.D public
// contract: turn-started, turn-completed, text-delta, tool-use-queued,
// tool-use-completed, error, cancelled).
type LoopEventKind string

const (
	EventTurnStarted      LoopEventKind = "turn_started"
	EventTurnCompleted    LoopEventKind = "turn_completed"
	EventTextDelta        LoopEventKind = "text_delta"
	EventThinkingDelta    LoopEventKind = "thinking_delta"
	EventToolUseQueued    LoopEventKind = "tool_use_queued"
	EventToolUseCompleted LoopEventKind = "tool_use_completed"
	EventError            LoopEventKind = "error"
	EventCancelled        LoopEventKind = "cancelled"
)

// LoopEvent is one unit pushed to the optional sink channel passed to
// Run. Only the fields relevant to Kind are populated.
type LoopEvent struct {
	Kind LoopEventKind

	Iteration int
	Delta     string
	ToolUseID string
	ToolName  string
	Result    protocol.ContentBlock
	Usage     protocol.TokenUsage
	Err       error
}

// LoopResult is Run's terminal value (spec §4.D public contract).
type LoopResult struct {
	FinalText      string
	TurnsCompleted int
	Usage          protocol.TokenUsage
	FinishReason   protocol.FinishReason
	Messages       []protocol.Message
}

// LoopConfig parameterizes one Loop.
type LoopConfig struct {
	Registry           *provider.Registry
	Transport          Transport
	Engine             *tool.Engine
	Compactor          *Compactor // optional; nil disables compaction
	Fallback           FallbackConfig
	Tools              []protocol.ToolSpec
	SystemInstruction  string
	GenerateConfig     provider.GenerateConfig
	Stream             bool
	MaxIterations      int
	MaxToolConcurrency int // how many tool calls one turn dispatches at once
}

// Loop drives one conversation's turn-by-turn state machine (spec §4.D):
// prompt → stream → dispatch tools → append results → repeat, applying
// compaction and fallback between iterations, until the model emits a
// stop signal, the turn budget is hit, or the context is cancelled.
//
// This generalizes the teacher's llmagent.Flow.Run outer/inner loop split
// (iter.Seq2 event stream, MaxIterations safety limit) from its A2A
// session/event model onto protocol.Message history the loop itself
// owns and returns, per spec §4.D's "session is not the source of truth
// here — the caller owns history" data model.
type Loop struct {
	cfg    LoopConfig
	logger *slog.Logger
}

// New builds a Loop, defaulting MaxIterations and tool concurrency.
func New(cfg LoopConfig, logger *slog.Logger) (*Loop, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent: LoopConfig.Registry is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("agent: LoopConfig.Transport is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("agent: LoopConfig.Engine is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxToolConcurrency <= 0 {
		cfg.MaxToolConcurrency = 8
	}
	if len(cfg.Fallback.Providers) == 0 {
		return nil, fmt.Errorf("agent: LoopConfig.Fallback.Providers must name at least one provider")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{cfg: cfg, logger: logger}, nil
}

// emit sends an event to sink without blocking forever on a full channel
// once ctx is cancelled; sink may be nil, in which case events are
// dropped (the caller only wants the final LoopResult).
func emit(ctx context.Context, sink chan<- LoopEvent, ev LoopEvent) {
	if sink == nil {
		return
	}
	select {
	case sink <- ev:
	case <-ctx.Done():
	}
}

// Run executes the turn-by-turn state machine described in spec §4.D
// over a copy of messages (the caller's slice is left unmodified; the
// history grown with assistant/tool messages is returned in
// LoopResult.Messages) until a stop finish
// reason, cancellation, or the iteration budget is reached.
func (l *Loop) Run(ctx context.Context, messages []protocol.Message, sink chan<- LoopEvent) (LoopResult, error) {
	history := append([]protocol.Message(nil), messages...)
	var totalUsage protocol.TokenUsage
	var lastText string

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			emit(ctx, sink, LoopEvent{Kind: EventCancelled, Iteration: iteration})
			return LoopResult{FinalText: lastText, TurnsCompleted: iteration, Usage: totalUsage, FinishReason: protocol.FinishCancelled, Messages: history}, ctx.Err()
		}

		if l.cfg.Compactor != nil && l.cfg.Compactor.ShouldCompact(history) {
			compacted, err := l.cfg.Compactor.Compact(ctx, history)
			if err != nil {
				l.logger.Warn("compaction failed, continuing with uncompacted history", "error", err)
			} else {
				history = compacted
			}
		}

		emit(ctx, sink, LoopEvent{Kind: EventTurnStarted, Iteration: iteration})

		assistantBlocks, usage, finish, err := l.runOneStep(ctx, history, sink, iteration)
		if err != nil {
			emit(ctx, sink, LoopEvent{Kind: EventError, Iteration: iteration, Err: err})
			return LoopResult{FinalText: lastText, TurnsCompleted: iteration, Usage: totalUsage, FinishReason: protocol.FinishError, Messages: history}, err
		}
		totalUsage.Add(usage)

		history = append(history, protocol.Message{Role: protocol.RoleAssistant, Content: assistantBlocks})
		for _, b := range assistantBlocks {
			if b.Type == protocol.BlockText {
				lastText = b.Text
			}
		}

		toolUses := filterToolUse(assistantBlocks)
		if len(toolUses) == 0 {
			emit(ctx, sink, LoopEvent{Kind: EventTurnCompleted, Iteration: iteration, Usage: usage})
			return LoopResult{FinalText: lastText, TurnsCompleted: iteration + 1, Usage: totalUsage, FinishReason: finish, Messages: history}, nil
		}

		results := l.dispatchTools(ctx, toolUses, sink, iteration)
		history = append(history, protocol.Message{Role: protocol.RoleTool, Content: results})

		if err := protocol.HistoryWellFormed(dropCancelledTurn(history)); err != nil {
			l.logger.Warn("history well-formedness check failed after tool dispatch", "error", err)
		}

		emit(ctx, sink, LoopEvent{Kind: EventTurnCompleted, Iteration: iteration, Usage: usage})
	}

	return LoopResult{FinalText: lastText, TurnsCompleted: l.cfg.MaxIterations, Usage: totalUsage, FinishReason: protocol.FinishMaxTurns, Messages: history}, nil
}

// runOneStep performs the BUILDING_REQUEST → STREAMING → STREAM_DONE
// portion of one iteration: build the Prompt, submit it through Fallback
// to an Adapter+Transport, and drain the Aggregator, forwarding text/
// thinking deltas to sink as they arrive and returning the completed
// content blocks once the model finishes its turn.
func (l *Loop) runOneStep(ctx context.Context, history []protocol.Message, sink chan<- LoopEvent, iteration int) ([]protocol.ContentBlock, protocol.TokenUsage, protocol.FinishReason, error) {
	prompt := provider.Prompt{
		Messages:          history,
		Tools:             l.cfg.Tools,
		SystemInstruction: l.cfg.SystemInstruction,
		Config:            l.cfg.GenerateConfig,
	}

	var agg *streaming.Aggregator
	var usedProvider string
	attempter := attempterFunc(func(ctx context.Context, providerName string) error {
		a, err := l.cfg.Registry.Get(providerName)
		if err != nil {
			return err
		}
		if err := a.ValidateConfig(); err != nil {
			return protocol.New(protocol.KindProviderErrorFatal, "agent.loop", "validate_config", "adapter config invalid", err)
		}
		raw, err := a.TransformRequest(prompt, provider.Context{Ctx: ctx, Scratchpad: provider.Scratchpad{}})
		if err != nil {
			return protocol.New(protocol.KindProviderErrorFatal, "agent.loop", "transform_request", "failed to build request", err)
		}
		meta := a.BuildRequestMetadata(prompt, provider.Context{Ctx: ctx})
		source, resp, err := l.cfg.Transport.Send(ctx, a, raw, meta, l.cfg.Stream)
		if err != nil {
			return err
		}
		if l.cfg.Stream {
			agg = streaming.New(newAdapterParser(a), source)
		} else {
			agg = streaming.NewSingleShot(resp)
		}
		usedProvider = providerName
		return nil
	})

	if _, err := Run(ctx, l.cfg.Fallback, attempter, l.logger); err != nil {
		return nil, protocol.TokenUsage{}, protocol.FinishError, err
	}
	l.logger.Debug("turn dispatched", "provider", usedProvider, "iteration", iteration)

	var blocks []protocol.ContentBlock
	var usage protocol.TokenUsage
	var finish protocol.FinishReason
	for {
		qr, ok := agg.Next(ctx)
		if !ok {
			break
		}
		switch qr.Kind {
		case streaming.ResultAssistantContent:
			blocks = append(blocks, *qr.Block)
		case streaming.ResultEvent:
			forwardEvent(ctx, sink, iteration, qr.Event)
		case streaming.ResultError:
			return nil, protocol.TokenUsage{}, protocol.FinishError, qr.Err
		case streaming.ResultDone:
			usage = qr.Usage
			finish = qr.FinishReason
		}
	}
	return blocks, usage, finish, nil
}

// dispatchTools runs DISPATCH_TOOLS/AWAITING_TOOLS: every queued tool
// call is submitted to the Engine concurrently (bounded by
// MaxToolConcurrency), honoring whatever serialization the Engine's own
// concurrency classes enforce internally; results are collected in
// queued order so history stays deterministic across runs even though
// execution itself is not.
func (l *Loop) dispatchTools(ctx context.Context, toolUses []protocol.ContentBlock, sink chan<- LoopEvent, iteration int) []protocol.ContentBlock {
	for _, tu := range toolUses {
		emit(ctx, sink, LoopEvent{Kind: EventToolUseQueued, Iteration: iteration, ToolUseID: tu.ToolUseID, ToolName: tu.ToolName})
	}

	results := make([]protocol.ContentBlock, len(toolUses))
	finished := make([]bool, len(toolUses))
	sem := make(chan struct{}, l.cfg.MaxToolConcurrency)
	done := make(chan int, len(toolUses))

	for i, tu := range toolUses {
		i, tu := i, tu
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			pctx := tool.Context{Ctx: ctx}
			results[i] = l.cfg.Engine.Call(ctx, tu, argSummaryOf(tu), pctx)
			done <- i
		}()
	}

	remaining := len(toolUses)
	var grace <-chan time.Time
	for remaining > 0 {
		select {
		case i := <-done:
			finished[i] = true
			remaining--
		case <-ctx.Done():
			if grace == nil {
				timer := time.NewTimer(toolCancelGrace)
				defer timer.Stop()
				grace = timer.C
			}
		case <-grace:
			for i, tu := range toolUses {
				if !finished[i] {
					results[i] = protocol.ToolResultText(tu.ToolUseID, "tool abandoned: cancellation grace period elapsed", true)
				}
			}
			remaining = 0
		}
	}

	for _, r := range results {
		emit(ctx, sink, LoopEvent{Kind: EventToolUseCompleted, Iteration: iteration, ToolUseID: r.ToolUseRefID, Result: r})
	}
	return results
}

func filterToolUse(blocks []protocol.ContentBlock) []protocol.ContentBlock {
	var out []protocol.ContentBlock
	for _, b := range blocks {
		if b.Type == protocol.BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// argSummaryOf extracts a stable string the Writes concurrency class can
// use as its per-path lock key. Tools that take a "path"/"file_path"
// argument get their own lock; others share the tool name as the key,
// which is still correct (just more conservative) for tools this engine
// doesn't recognize as path-scoped.
func argSummaryOf(tu protocol.ContentBlock) string {
	var args struct {
		Path     string `json:"path"`
		FilePath string `json:"file_path"`
	}
	if len(tu.ToolArgsRaw) > 0 {
		_ = json.Unmarshal(tu.ToolArgsRaw, &args)
	}
	if args.FilePath != "" {
		return args.FilePath
	}
	if args.Path != "" {
		return args.Path
	}
	return tu.ToolName
}

// dropCancelledTurn is a no-op, kept symmetric with the compactor's own
// exemption wording (spec §3: blocks belonging to a cancelled turn are
// exempt from well-formedness) — dispatchTools always synthesizes a
// ToolResult for an abandoned tool rather than omitting it, so a
// ToolUse is never left without a matching ToolResult even when the
// grace period elapses mid-dispatch.
func dropCancelledTurn(history []protocol.Message) []protocol.Message {
	return history
}

type attempterFunc func(ctx context.Context, providerName string) error

func (f attempterFunc) Attempt(ctx context.Context, providerName string) error {
	return f(ctx, providerName)
}

func newAdapterParser(a provider.Adapter) streaming.Parser {
	return &adapterParserBridge{adapter: a, scratchpad: provider.Scratchpad{}}
}

// adapterParserBridge satisfies streaming.Parser by routing Feed through
// the Adapter's TransformResponseChunk, keeping the adapter's own
// per-request scratchpad alive across calls.
type adapterParserBridge struct {
	adapter    provider.Adapter
	scratchpad provider.Scratchpad
}

func (b *adapterParserBridge) Feed(chunk streaming.RawChunk) ([]streaming.StreamUpdate, error) {
	return b.adapter.TransformResponseChunk(chunk, provider.Context{Ctx: context.Background(), Scratchpad: b.scratchpad})
}

func (b *adapterParserBridge) Flush() []streaming.StreamUpdate {
	return provider.FlushScratchpad(provider.Context{Scratchpad: b.scratchpad})
}

func forwardEvent(ctx context.Context, sink chan<- LoopEvent, iteration int, u *streaming.StreamUpdate) {
	if u == nil {
		return
	}
	switch u.Kind {
	case streaming.UpdateTextDelta:
		emit(ctx, sink, LoopEvent{Kind: EventTextDelta, Iteration: iteration, Delta: u.TextDelta})
	case streaming.UpdateThinkingDelta:
		emit(ctx, sink, LoopEvent{Kind: EventThinkingDelta, Iteration: iteration, Delta: u.ThinkingDelta})
	}
}
