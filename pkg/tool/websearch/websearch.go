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

// Package websearch implements the web_search tool (spec §4.C): a
// pluggable search Provider behind an LRU+TTL result cache. Grounded on
// the teacher's pkg/tools/web_request.go (domain allow/deny lists,
// httpclient retry wrapper) generalized from "make any HTTP request" to
// "query a search provider and cache the result", with
// github.com/hashicorp/golang-lru promoted from the teacher's indirect
// dependency closure to a direct one for the cache itself.
package websearch

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider performs the actual search. Implementations wrap a specific
// backend (Brave, SerpAPI, a self-hosted index, …); websearch.Tool stays
// provider-agnostic.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Args defines the web_search tool's call surface.
type Args struct {
	Query      string `json:"query" jsonschema:"required,description=Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results,default=5,minimum=1,maximum=20"`
}

// Config parameterizes one Tool instance.
type Config struct {
	Provider Provider
	CacheTTL time.Duration // default 10m
	CacheCap int           // default 256 entries
}

type cacheEntry struct {
	results []Result
	expires time.Time
}

// Tool implements tool.CallableTool.
type Tool struct {
	cfg   Config
	cache *lru.Cache
	mu    sync.Mutex
}

// New constructs the web_search tool. Returns an error only if the
// underlying LRU allocation fails (invalid capacity).
func New(cfg Config) (*Tool, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("websearch: Provider is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = 256
	}
	c, err := lru.New(cfg.CacheCap)
	if err != nil {
		return nil, fmt.Errorf("websearch: failed to allocate cache: %w", err)
	}
	return &Tool{cfg: cfg, cache: c}, nil
}

func (t *Tool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "web_search",
		Description:       "Search the web and return ranked results with titles, URLs and snippets.",
		InputSchema:       tool.GenerateSchema[Args](),
		ConcurrencySafety: protocol.Safe,
		ReadOnly:          true,
	}
}

// ErrProviderFailed wraps a backend error with the provider's identity,
// matching the typed-error convention the rest of this module uses for
// anything that crosses a component boundary (pkg/context/search.go's
// *SearchError shape in the teacher).
type ErrProviderFailed struct {
	Provider string
	Err      error
}

func (e *ErrProviderFailed) Error() string {
	return fmt.Sprintf("websearch: provider %q failed: %v", e.Provider, e.Err)
}
func (e *ErrProviderFailed) Unwrap() error { return e.Err }

func (t *Tool) Call(ctx tool.Context, args map[string]any) (tool.Result, error) {
	a, err := parseArgs(args)
	if err != nil {
		return tool.Result{}, err
	}

	key := cacheKey(a.Query, a.MaxResults)
	if results, ok := t.lookup(key); ok {
		return tool.Result{Structured: render(results)}, nil
	}

	results, err := t.cfg.Provider.Search(ctx.Ctx, a.Query, a.MaxResults)
	if err != nil {
		return tool.Result{}, &ErrProviderFailed{Provider: fmt.Sprintf("%T", t.cfg.Provider), Err: err}
	}

	t.store(key, results)
	return tool.Result{Structured: render(results)}, nil
}

func (t *Tool) lookup(key string) ([]Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if time.Now().After(entry.expires) {
		t.cache.Remove(key)
		return nil, false
	}
	return entry.results, true
}

func (t *Tool) store(key string, results []Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Add(key, cacheEntry{results: results, expires: time.Now().Add(t.cfg.CacheTTL)})
}

func render(results []Result) map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{"title": r.Title, "url": r.URL, "snippet": r.Snippet})
	}
	return map[string]any{"results": out, "count": len(out)}
}

func cacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%s\x00%d", query, maxResults)
}

func parseArgs(m map[string]any) (Args, error) {
	var a Args
	a.Query, _ = m["query"].(string)
	if a.Query == "" {
		return a, fmt.Errorf("query is required")
	}
	a.MaxResults = 5
	if v, ok := m["max_results"].(float64); ok && v > 0 {
		a.MaxResults = int(v)
	}
	return a, nil
}
