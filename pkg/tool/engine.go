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

package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Engine schedules tool calls against a Catalogue under the concurrency
// classes named in spec §4.C:
//
//   - Safe tools run with only the global concurrency cap applied.
//   - Writes tools additionally serialize among themselves per
//     canonicalized target path (two writes to the same file never run
//     concurrently; writes to different files still overlap).
//   - Exclusive tools drain every in-flight call, run alone holding the
//     entire capacity, then release.
//
// This generalizes the teacher's pkg/tools/local.go registry (which has
// no concurrency classes at all — every call there runs independently)
// the way pkg/tools/streaming_orchestrator.go's worker-pool shape
// suggests, using golang.org/x/sync/semaphore for the capacity gate
// instead of a hand-rolled channel pool.
type Engine struct {
	catalogue *Catalogue
	policy    Policy
	logger    *slog.Logger

	cap *semaphore.Weighted
	n   int64

	pathLocksMu sync.Mutex
	pathLocks   map[string]*sync.Mutex
}

// NewEngine builds an Engine with the given global concurrency cap.
func NewEngine(catalogue *Catalogue, policy Policy, concurrency int, logger *slog.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalogue: catalogue,
		policy:    policy,
		logger:    logger,
		cap:       semaphore.NewWeighted(int64(concurrency)),
		n:         int64(concurrency),
		pathLocks: make(map[string]*sync.Mutex),
	}
}

// Call schedules and runs one tool call, resolving permission first. It
// returns a well-formed protocol.ContentBlock (BlockToolResult) regardless
// of outcome — including denial and cancellation — so history stays
// well-formed without a caller-side repair pass.
func (e *Engine) Call(ctx context.Context, call protocol.ContentBlock, argSummary string, pctx Context) protocol.ContentBlock {
	t, ok := e.catalogue.Get(call.ToolName)
	if !ok {
		return protocol.ToolResultText(call.ToolUseID, "unknown tool: "+call.ToolName, true)
	}
	spec := t.Spec()

	decision := Resolve(e.policy, spec, argSummary)
	switch decision.Kind {
	case protocol.PermissionDenied:
		return protocol.ToolResultText(call.ToolUseID, "permission denied: "+decision.Reason, true)
	case protocol.PermissionNeedsApproval:
		return protocol.ToolResultText(call.ToolUseID, "approval required for "+spec.Name, true)
	}

	release, err := e.acquire(ctx, spec, Canonicalize(pctx.WorkingDirectory, argSummary))
	if err != nil {
		return protocol.ToolResultText(call.ToolUseID, "cancelled", true)
	}
	defer release()

	if ctx.Err() != nil {
		return protocol.ToolResultText(call.ToolUseID, "cancelled", true)
	}

	var args map[string]any
	if len(call.ToolArgsRaw) > 0 {
		if err := json.Unmarshal(call.ToolArgsRaw, &args); err != nil {
			return protocol.ToolResultText(call.ToolUseID, "invalid tool arguments: "+err.Error(), true)
		}
	}
	pctx.CallID = call.ToolUseID
	result, err := t.Call(pctx, args)
	if err != nil {
		e.logger.Warn("tool call failed", "tool", spec.Name, "error", err)
		return protocol.ToolResultText(call.ToolUseID, err.Error(), true)
	}
	if result.Structured != nil {
		raw, err := json.Marshal(result.Structured)
		if err != nil {
			return protocol.ToolResultText(call.ToolUseID, "failed to encode tool result: "+err.Error(), true)
		}
		return protocol.ToolResultStructured(call.ToolUseID, raw, result.IsError)
	}
	return protocol.ToolResultText(call.ToolUseID, result.Text, result.IsError)
}

// acquire obtains the capacity + path-lock(s) appropriate to spec's
// ConcurrencySafety, returning a release func.
func (e *Engine) acquire(ctx context.Context, spec protocol.ToolSpec, argSummary string) (func(), error) {
	switch spec.ConcurrencySafety {
	case protocol.Exclusive:
		if err := e.cap.Acquire(ctx, e.n); err != nil {
			return nil, err
		}
		return func() { e.cap.Release(e.n) }, nil

	case protocol.Writes:
		if err := e.cap.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		lock := e.pathLock(argSummary)
		lock.Lock()
		return func() {
			lock.Unlock()
			e.cap.Release(1)
		}, nil

	default: // Safe
		if err := e.cap.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		return func() { e.cap.Release(1) }, nil
	}
}

func (e *Engine) pathLock(path string) *sync.Mutex {
	e.pathLocksMu.Lock()
	defer e.pathLocksMu.Unlock()
	l, ok := e.pathLocks[path]
	if !ok {
		l = &sync.Mutex{}
		e.pathLocks[path] = l
	}
	return l
}
