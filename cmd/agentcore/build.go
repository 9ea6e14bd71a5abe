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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cocode-dev/agentcore/internal/config"
	"github.com/cocode-dev/agentcore/internal/obslog"
	"github.com/cocode-dev/agentcore/pkg/agent"
	"github.com/cocode-dev/agentcore/pkg/observability"
	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/provider"
	"github.com/cocode-dev/agentcore/pkg/provider/embed"
	"github.com/cocode-dev/agentcore/pkg/retrieval/search"
	"github.com/cocode-dev/agentcore/pkg/retrieval/vector"
	"github.com/cocode-dev/agentcore/pkg/subagent"
	"github.com/cocode-dev/agentcore/pkg/tool"
	"github.com/cocode-dev/agentcore/pkg/tool/edittool"
	"github.com/cocode-dev/agentcore/pkg/tool/grep"
	"github.com/cocode-dev/agentcore/pkg/tool/retrievaltool"
	"github.com/cocode-dev/agentcore/pkg/tool/subagenttool"
	"github.com/cocode-dev/agentcore/pkg/tool/websearch"
)

// loadConfig reads and validates the config file named by the root CLI
// flags, applying LogLevel/LogFormat overrides before returning.
func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.LoadWithDotenv(cli.Config, cli.Dotenv)
	if err != nil {
		return nil, &configError{err}
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	return cfg, nil
}

// buildRegistry populates and seals a provider.Registry from cfg's
// Providers map (spec §6 "Provider block per provider").
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	for name, p := range cfg.Providers {
		apiKey := p.APIKey
		if apiKey == "" && p.EnvKey != "" {
			apiKey = os.Getenv(p.EnvKey)
		}
		var a provider.Adapter
		switch name {
		case "anthropic":
			a = &provider.AnthropicAdapter{APIKey: apiKey, BaseURL: p.BaseURL, Model: p.DefaultModel}
		case "openai":
			a = &provider.OpenAIAdapter{APIKey: apiKey, BaseURL: p.BaseURL, Model: p.DefaultModel}
		case "gemini":
			a = &provider.GeminiAdapter{APIKey: apiKey, Model: p.DefaultModel}
		case "ollama":
			a = &provider.OllamaAdapter{BaseURL: p.BaseURL, Model: p.DefaultModel}
		default:
			return nil, fmt.Errorf("config: unrecognized provider name %q (want anthropic, openai, gemini, or ollama)", name)
		}
		if err := a.ValidateConfig(); err != nil {
			return nil, fmt.Errorf("config: provider %q: %w", name, err)
		}
		reg.Register(a)
	}
	reg.Seal()
	return reg, nil
}

// buildTransport builds the HTTP transport, pointing each provider name
// at its configured base URL override.
func buildTransport(cfg *config.Config) *provider.HTTPTransport {
	t := provider.NewHTTPTransport()
	for name, p := range cfg.Providers {
		if p.BaseURL != "" {
			t.BaseURL[name] = p.BaseURL
		}
	}
	return t
}

// buildPolicy translates the config's three permission rule lists into a
// tool.Policy (spec §4.C precedence chain).
func buildPolicy(cfg config.PermissionsConfig) tool.Policy {
	toRules := func(rs []config.PermissionRule) []tool.Rule {
		out := make([]tool.Rule, 0, len(rs))
		for _, r := range rs {
			out = append(out, tool.Rule{ToolName: r.Tool, ArgPattern: r.Pattern})
		}
		return out
	}
	return tool.Policy{
		ConfigDeny:  toRules(cfg.Deny),
		ConfigAllow: toRules(cfg.Allow),
		ConfigAsk:   toRules(cfg.Ask),
		Passthrough: true,
	}
}

// buildCatalogue assembles the full tool catalogue: the always-present
// edit/grep tools, web_search when configured, search_codebase when
// retrieval is enabled, and Task/TaskOutput when at least one subagent
// definition is configured. Building the subagent pair requires a
// catalogue of its own (the scheduler scopes subagents down from it), so
// this constructs a base catalogue first and layers Task/TaskOutput on
// top of it rather than the reverse.
func buildCatalogue(cfg *config.Config, workingDir string, reg *provider.Registry, transport agent.Transport, policy tool.Policy, logger *slog.Logger) (*tool.Catalogue, error) {
	tools := []tool.CallableTool{
		edittool.New(edittool.Config{WorkingDirectory: workingDir}),
		grep.New(grep.Config{WorkingDirectory: workingDir}),
	}

	if cfg.WebSearch.Provider != "" {
		wsTool, err := websearch.New(websearch.Config{
			Provider: resolveWebSearchProvider(cfg.WebSearch),
		})
		if err != nil {
			return nil, fmt.Errorf("config: web_search: %w", err)
		}
		tools = append(tools, wsTool)
	}

	if cfg.Retrieval.Enabled {
		engine, err := buildRetrievalEngine(cfg, workingDir)
		if err != nil {
			return nil, fmt.Errorf("config: retrieval: %w", err)
		}
		searchTool, err := retrievaltool.New(retrievaltool.Config{Engine: engine})
		if err != nil {
			return nil, fmt.Errorf("config: retrieval: %w", err)
		}
		tools = append(tools, searchTool)
	}

	base, err := tool.NewCatalogue(tools...)
	if err != nil {
		return nil, err
	}

	if len(cfg.Subagents) == 0 {
		return base, nil
	}

	registry := subagent.NewRegistry()
	providerDefaults := make(map[string]string, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providerDefaults[name] = p.DefaultModel
	}
	for _, sa := range cfg.Subagents {
		if err := registry.Register(subagent.Definition{
			Name:                    sa.Name,
			Description:             sa.Description,
			SystemInstruction:       sa.SystemInstruction,
			Model:                   sa.Model,
			Provider:                sa.Provider,
			ToolWhitelist:           sa.ToolWhitelist,
			BackgroundToolWhitelist: sa.BackgroundToolWhitelist,
			MaxIterations:           sa.MaxIterations,
		}); err != nil {
			return nil, fmt.Errorf("config: subagent %q: %w", sa.Name, err)
		}
	}

	scheduler := subagent.New(subagent.Config{
		Registry:             reg,
		Transport:            transport,
		Catalogue:            base,
		Policy:               policy,
		ProviderDefaultModel: providerDefaults,
		Logger:               logger,
	}, registry)

	taskTool, err := subagenttool.NewTask(subagenttool.Config{Scheduler: scheduler})
	if err != nil {
		return nil, err
	}
	taskOutputTool, err := subagenttool.NewTaskOutput(subagenttool.Config{Scheduler: scheduler})
	if err != nil {
		return nil, err
	}

	return tool.NewCatalogue(append(tools, taskTool, taskOutputTool)...)
}

// buildRetrievalEngine constructs the hybrid retrieval engine's storage
// (sqlite FTS5), vector provider (always the embedded chromem-go store
// under dataDir; cfg.Retrieval.VectorStore is not consulted), and embedder.
func buildRetrievalEngine(cfg *config.Config, workingDir string) (*search.Engine, error) {
	dataDir := cfg.Retrieval.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(workingDir, ".agentcore")
	}

	store, err := search.NewSQLiteStore(filepath.Join(dataDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	vectors, err := vector.NewChromemProvider(filepath.Join(dataDir, "vectors"))
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	var embedder search.Embedder
	if cfg.Retrieval.Embedder.Provider != "" {
		embedder = embed.New(cfg.Retrieval.Embedder.APIKey, cfg.Retrieval.Embedder.BaseURL, cfg.Retrieval.Embedder.Model)
	}

	return search.NewEngine(store, vectors, embedder, search.Config{
		Collection:       "default",
		MaxChunksPerFile: cfg.Retrieval.Search.MaxChunksPerFile,
	}), nil
}

// buildEngine wraps catalogue in a tool.Engine under cfg's permission
// policy, with a fixed global concurrency cap (spec §4.C "Engine-global
// concurrency is bounded by a configured maximum").
func buildEngine(cfg *config.Config, catalogue *tool.Catalogue, logger *slog.Logger) *tool.Engine {
	return tool.NewEngine(catalogue, buildPolicy(cfg.Permissions), 8, logger)
}

// resolveWebSearchProvider is a seam for wiring a concrete
// websearch.Provider implementation per cfg.WebSearch.Provider ("brave",
// "serpapi", ...). No concrete provider backend ships with this module
// (the wire format of each search API is an external collaborator, spec
// §1 non-goal list analog); callers that need one supply their own
// websearch.Provider and skip this helper.
func resolveWebSearchProvider(cfg config.WebSearchConfig) websearch.Provider {
	return noopSearchProvider{}
}

type noopSearchProvider struct{}

func (noopSearchProvider) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	return nil, fmt.Errorf("websearch: no provider configured for %q", query)
}

// buildLoop assembles one agent.Loop from cfg plus the pieces built
// above.
func buildLoop(cfg *config.Config, reg *provider.Registry, transport agent.Transport, engine *tool.Engine, tools []protocol.ToolSpec, logger *slog.Logger) (*agent.Loop, error) {
	fallbackProviders := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		fallbackProviders = append(fallbackProviders, name)
	}
	if len(cfg.Fallback.Providers) > 0 {
		fallbackProviders = cfg.Fallback.Providers
	}

	loopCfg := agent.LoopConfig{
		Registry:      reg,
		Transport:     transport,
		Engine:        engine,
		Tools:         tools,
		Stream:        true,
		MaxIterations: cfg.MaxTurns,
		Fallback: agent.FallbackConfig{
			Providers:  fallbackProviders,
			MaxRetries: cfg.Fallback.MaxRetries,
			BaseDelay:  time.Duration(cfg.Fallback.BackoffMS) * time.Millisecond,
		},
	}
	return agent.New(loopCfg, logger)
}

// buildObservability constructs the observability.Manager per cfg.
func buildObservability(ctx context.Context, cfg *config.Config) (*observability.Manager, error) {
	return observability.NewManager(ctx, &observability.Config{
		Metrics: observability.MetricsConfig{
			Enabled:   cfg.Observability.Metrics.Enabled,
			Namespace: cfg.Observability.Metrics.Namespace,
		},
		Tracing: observability.TracingConfig{
			Enabled:      cfg.Observability.Tracing.Enabled,
			Exporter:     cfg.Observability.Tracing.Exporter,
			Endpoint:     cfg.Observability.Tracing.Endpoint,
			SamplingRate: cfg.Observability.Tracing.SamplingRate,
		},
	})
}

func initLogging(cfg *config.Config) *slog.Logger {
	return obslog.Init(obslog.ParseLevel(cfg.Logging.Level), os.Stderr, cfg.Logging.Format)
}
