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

// Package subagent implements the Subagent Scheduler (spec §4.F): an
// in-process nested Agent Loop with its own model/provider resolution and
// a tool scope narrowed from the parent's catalogue, run either
// synchronously or in the background with poll/await semantics.
//
// No A2A wire protocol is used — the scheduler shares the parent's
// context.Context cancellation tree directly, the way the teacher's
// pkg/agent/task_service.go and task_awaiter.go manage task lifecycle
// in-process before any transport is involved.
package subagent

import (
	"fmt"
	"sync"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Definition is a named subagent template: its own system instruction,
// model/provider preferences, and the tool whitelist the inner loop's
// Tool Engine enforces (spec §4.F "tool scope... enforced inside the
// inner loop's Tool Engine, not by filtering at the request boundary").
//
// Mirrors the teacher's AgentEntry (pkg/agent/registry.go) minus the
// gRPC-shaped pb.A2AServiceServer handle, which has no home without an
// A2A transport.
type Definition struct {
	Name              string
	Description       string
	SystemInstruction string

	// Model and Provider are this definition's preference, priority (iii)
	// in the spec §4.F resolution order.
	Model    string
	Provider string

	// ToolWhitelist is the full set of tool names this subagent may call
	// in foreground (synchronous) mode.
	ToolWhitelist []string

	// BackgroundToolWhitelist, when non-nil, replaces ToolWhitelist when
	// the subagent runs with run_in_background=true — the "async-safe
	// subset" spec §4.F narrows to. A nil value means ToolWhitelist
	// applies unchanged in both modes.
	BackgroundToolWhitelist []string

	MaxIterations int
}

// toolScope returns the whitelist in effect for the given execution mode.
func (d Definition) toolScope(background bool) []string {
	if background && d.BackgroundToolWhitelist != nil {
		return d.BackgroundToolWhitelist
	}
	return d.ToolWhitelist
}

// Registry holds known subagent definitions, keyed by name. Populated
// once at session bootstrap and read concurrently thereafter, matching
// the teacher's AgentRegistry (pkg/agent/registry.go) read/write split —
// generalized past its pb.A2AServiceServer-keyed entries since no wire
// protocol is carried here.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds or replaces a Definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return protocol.New(protocol.KindFatal, "subagent.registry", "register", "definition name cannot be empty", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Name] = def
	return nil
}

// Get resolves a Definition by name.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("subagent: unknown agent definition %q", name)
	}
	return def, nil
}

// List returns every registered definition's name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	return names
}
