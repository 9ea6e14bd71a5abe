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

// Package tool defines the Tool Execution Engine (spec §4.C): the
// CallableTool interface every built-in and custom tool implements, the
// concurrency-class scheduler that runs them, and the permission
// resolution that gates them.
//
// The interface hierarchy is deliberately flat compared to the teacher's
// own pkg/tool (no StreamingTool / long-running variant) — the spec has
// no streaming-tool or async-job concept, so that axis is dropped rather
// than carried as unused surface.
package tool

import (
	"context"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Context is the narrow handle a tool receives at call time — never the
// session root (spec §9). FileReadState lets file-mutating tools enforce
// the "read before write" staleness rule without reaching back into
// agent-loop state.
type Context struct {
	Ctx context.Context

	// WorkingDirectory anchors every relative path a tool resolves.
	WorkingDirectory string

	// CallID is the id of the ToolUse block this call is satisfying.
	CallID string

	// FileReadState maps a canonical path (see Canonicalize) to the content
	// hash observed the last time this session read it. Tools that mutate
	// files consult and update it themselves; the Engine does not touch it.
	FileReadState *FileReadState
}

// CallableTool is the interface every tool in the catalogue implements.
type CallableTool interface {
	Spec() protocol.ToolSpec
	Call(ctx Context, args map[string]any) (Result, error)
}

// Result is the outcome of one tool call, translated into a
// protocol.ContentBlock by the engine once permission/concurrency
// bookkeeping is done.
type Result struct {
	// Text is the primary rendering shown to the model. Structured, when
	// non-nil, is preferred by callers that want the typed payload (e.g.
	// the retrieval engine's citation renderer).
	Text       string
	Structured map[string]any
	IsError    bool
}

// Catalogue is the set of tools available to one agent loop turn,
// keyed by name. Construction-time only; callers build a fresh Catalogue
// (or a filtered copy) per subagent scope rather than mutating a shared
// one, mirroring the teacher's Toolset.Tools(ctx) dynamic-resolution
// pattern without the lazy-loading machinery the spec doesn't need.
type Catalogue struct {
	tools map[string]CallableTool
}

// NewCatalogue builds a Catalogue from a list of tools, erroring on a
// duplicate name.
func NewCatalogue(tools ...CallableTool) (*Catalogue, error) {
	c := &Catalogue{tools: make(map[string]CallableTool, len(tools))}
	for _, t := range tools {
		name := t.Spec().Name
		if _, exists := c.tools[name]; exists {
			return nil, protocol.New(protocol.KindFatal, "tool.catalogue", "new", "duplicate tool name: "+name, nil)
		}
		c.tools[name] = t
	}
	return c, nil
}

// Get returns the named tool, or false if it isn't in the catalogue.
func (c *Catalogue) Get(name string) (CallableTool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Scoped returns a new Catalogue containing only the named tools,
// preserving call-site order independence (names not present are
// silently skipped) — used to build a subagent's restricted tool scope
// (spec §4.F).
func (c *Catalogue) Scoped(names []string) *Catalogue {
	scoped := &Catalogue{tools: make(map[string]CallableTool, len(names))}
	for _, n := range names {
		if t, ok := c.tools[n]; ok {
			scoped.tools[n] = t
		}
	}
	return scoped
}

// Specs returns the ToolSpec of every tool in the catalogue, the shape
// an Adapter.TransformRequest needs for tool-definition rendering.
func (c *Catalogue) Specs() []protocol.ToolSpec {
	specs := make([]protocol.ToolSpec, 0, len(c.tools))
	for _, t := range c.tools {
		specs = append(specs, t.Spec())
	}
	return specs
}
