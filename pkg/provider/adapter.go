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

// Package provider implements the model-specific request/response
// translation described in spec §4.J. Each Adapter is a single trait with
// a tagged variant for inputs and a small per-request scratchpad state
// map — no runtime reflection, no adapter inheritance.
package provider

import (
	"context"
	"encoding/json"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/streaming"
)

// Prompt is the adapter-agnostic input: history, tools, system prompt and
// generation config, mirroring the teacher's pkg/model.Request shape.
type Prompt struct {
	Messages          []protocol.Message
	Tools             []protocol.ToolSpec
	SystemInstruction string
	Config            GenerateConfig

	// PreviousResponseID, when non-empty and the provider supports
	// previous-response-id incremental mode, lets transform_request send
	// only the input suffix after the last model-output item.
	PreviousResponseID string
}

// GenerateConfig carries generation knobs common across providers.
type GenerateConfig struct {
	Temperature   *float64
	MaxTokens     *int
	TopP          *float64
	ThinkingLevel string
	StopSequences []string

	// Model, when non-empty, overrides the adapter instance's own
	// configured model for this request only — the seam the Subagent
	// Scheduler's model resolution (spec §4.F) writes into, since a
	// registered Adapter otherwise carries one fixed model for its
	// lifetime.
	Model string
}

// ResolveModel returns cfg.Model if set, else fallback. Adapters call
// this in TransformRequest so a per-request override always wins over
// their own configured default.
func (cfg GenerateConfig) ResolveModel(fallback string) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return fallback
}

// RequestMetadata is dynamic per-request transport additions (headers,
// query params) that don't belong in the JSON body.
type RequestMetadata struct {
	Headers     map[string]string
	QueryParams map[string]string
}

// Scratchpad is per-request state an adapter may read/write between
// successive transform_response_chunk calls. The engine guarantees this
// map's lifetime spans exactly one streaming request — never reused
// across requests, never shared between concurrent requests.
type Scratchpad map[string]any

// Context is the narrow handle adapters receive; never the session root
// (spec §9 "tools receive a narrow context handle, never the session
// root").
type Context struct {
	Ctx        context.Context
	Scratchpad Scratchpad
}

// Adapter is the per-provider translation contract (spec §4.J).
type Adapter interface {
	Name() string
	SupportsPreviousResponseID() bool

	// TransformRequest shapes prompt into the provider's wire JSON. It
	// must not mutate prompt; all provider-specific shaping happens in
	// the returned JSON.
	TransformRequest(prompt Prompt, pctx Context) (json.RawMessage, error)

	// BuildRequestMetadata returns dynamic per-request headers/params.
	BuildRequestMetadata(prompt Prompt, pctx Context) RequestMetadata

	// TransformResponseChunk turns one raw streaming chunk into zero or
	// more streaming.StreamUpdate values, using pctx.Scratchpad for any
	// state it needs to carry to the next call.
	TransformResponseChunk(chunk streaming.RawChunk, pctx Context) ([]streaming.StreamUpdate, error)

	// ValidateConfig rejects incompatible wire-protocol configurations
	// before a request is ever sent.
	ValidateConfig() error

	// NewParser returns a fresh Parser for one streaming request. Adapters
	// in the chat-completions family return streaming.NewChatCompletionsParser();
	// Responses-API family adapters return streaming.NewResponsesAPIParser().
	NewParser() streaming.Parser
}

// ParserStateKey is the stable scratchpad key every adapter uses to stash
// its per-request streaming.Parser (spec §4.J: "State held between chunks
// MUST be serialized into the adapter-context state map keyed by a stable
// string"). Exported so a caller driving TransformResponseChunk directly
// (rather than going through streaming.New with an adapter-native Parser)
// can still reach the underlying Parser to call Flush at end-of-stream.
const ParserStateKey = "stream_parser"

// getOrCreateParser fetches the Parser stashed in pctx.Scratchpad, or
// builds one with factory and stashes it, on first use for this request.
func getOrCreateParser(pctx Context, factory func() streaming.Parser) streaming.Parser {
	if pctx.Scratchpad == nil {
		return factory()
	}
	if p, ok := pctx.Scratchpad[ParserStateKey].(streaming.Parser); ok {
		return p
	}
	p := factory()
	pctx.Scratchpad[ParserStateKey] = p
	return p
}

// FlushScratchpad returns the end-of-stream updates from the Parser an
// adapter stashed in pctx.Scratchpad during TransformResponseChunk calls,
// or nil if no parser was ever created (e.g. an empty stream).
func FlushScratchpad(pctx Context) []streaming.StreamUpdate {
	if pctx.Scratchpad == nil {
		return nil
	}
	if p, ok := pctx.Scratchpad[ParserStateKey].(streaming.Parser); ok {
		return p.Flush()
	}
	return nil
}

// ToolDefinitionsJSON renders ToolSpecs into the adapter's tools array
// encoding; shared helper since several adapters use the same
// {name, description, parameters} shape.
func ToolDefinitionsJSON(specs []protocol.ToolSpec) []map[string]any {
	out := make([]map[string]any, 0, len(specs))
	for _, s := range specs {
		var params any
		_ = json.Unmarshal(s.InputSchema, &params)
		out = append(out, map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"parameters":  params,
		})
	}
	return out
}
