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

// Package retrievaltool adapts the spec §4.H Hybrid Retrieval Engine
// into a CallableTool surface ("search_codebase"), the same way
// pkg/tool/grep adapts a narrower search primitive: the tool stays a
// thin argument-parsing/rendering shell, all retrieval logic lives in
// pkg/retrieval/search.
package retrievaltool

import (
	"fmt"
	"strings"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/retrieval/search"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// Args defines the search_codebase tool's call surface. Mode selects
// which of the Engine's operations (spec §4.H) backs the call; the
// hybrid-fused default is what most calls should use.
type Args struct {
	Query   string `json:"query" jsonschema:"required,description=Natural-language or keyword search query"`
	Mode    string `json:"mode,omitempty" jsonschema:"description=hybrid|bm25|vector|snippet,default=hybrid"`
	K       int    `json:"k,omitempty" jsonschema:"description=Maximum number of results,default=10,minimum=1,maximum=50"`
	Hydrate bool   `json:"hydrate,omitempty" jsonschema:"description=Check each result against the live file for drift (is_stale)"`
}

// Config parameterizes one Tool instance.
type Config struct {
	Engine *search.Engine
}

// Tool implements tool.CallableTool.
type Tool struct{ cfg Config }

// New constructs the search_codebase tool over a live retrieval Engine.
func New(cfg Config) (*Tool, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("retrievaltool: Engine is required")
	}
	return &Tool{cfg: cfg}, nil
}

func (t *Tool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "search_codebase",
		Description:       "Search the indexed codebase with a hybrid BM25+vector+symbol engine, or a single mode (bm25, vector, snippet).",
		InputSchema:       tool.GenerateSchema[Args](),
		ConcurrencySafety: protocol.Safe,
		ReadOnly:          true,
	}
}

func (t *Tool) Call(tctx tool.Context, args map[string]any) (tool.Result, error) {
	a, err := parseArgs(args)
	if err != nil {
		return tool.Result{}, err
	}
	if strings.TrimSpace(a.Query) == "" {
		return tool.Result{Text: "query must not be empty", IsError: true}, nil
	}
	k := a.K
	if k <= 0 {
		k = 10
	}

	var results []search.Result
	switch a.Mode {
	case "", "hybrid":
		if a.Hydrate {
			results, err = t.cfg.Engine.SearchHydrated(tctx.Ctx, a.Query, k)
		} else {
			results, err = t.cfg.Engine.Search(tctx.Ctx, a.Query, k)
		}
	case "bm25":
		results, err = t.cfg.Engine.SearchBM25(tctx.Ctx, a.Query, k)
	case "vector":
		results, err = t.cfg.Engine.SearchVector(tctx.Ctx, a.Query, k)
	case "snippet":
		results, err = t.cfg.Engine.SearchSnippet(tctx.Ctx, a.Query, k)
	default:
		return tool.Result{Text: fmt.Sprintf("unknown mode %q (want hybrid, bm25, vector, snippet)", a.Mode), IsError: true}, nil
	}
	if err != nil {
		return tool.Result{}, err
	}

	return tool.Result{Text: renderResults(results), Structured: map[string]any{"results": results}}, nil
}

func parseArgs(raw map[string]any) (Args, error) {
	var a Args
	query, _ := raw["query"].(string)
	a.Query = query
	if mode, ok := raw["mode"].(string); ok {
		a.Mode = mode
	}
	if k, ok := raw["k"].(float64); ok {
		a.K = int(k)
	}
	if h, ok := raw["hydrate"].(bool); ok {
		a.Hydrate = h
	}
	return a, nil
}

func renderResults(results []search.Result) string {
	if len(results) == 0 {
		return "no results"
	}
	var b strings.Builder
	for i, r := range results {
		stale := ""
		if r.IsStale != nil && *r.IsStale {
			stale = " [stale]"
		}
		fmt.Fprintf(&b, "%d. %s:%d-%d (%s, score=%.4f)%s\n", i+1, r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine, r.ScoreType, r.Score, stale)
		snippet := r.Chunk.Content
		if len(snippet) > 400 {
			snippet = snippet[:400] + "..."
		}
		b.WriteString(snippet)
		b.WriteString("\n\n")
	}
	return b.String()
}
