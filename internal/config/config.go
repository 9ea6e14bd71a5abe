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

// Package config holds the recognized configuration surface (spec §6):
// turn budget, compaction/fallback knobs, permission rule lists, web
// search and retrieval settings, and the per-provider blocks that feed
// pkg/provider.Registry. Shaped after the teacher's pkg/config.Config —
// one root struct, YAML-tagged, loaded through a Provider + env-var
// expansion + mapstructure decode pipeline (loader.go) — generalized from
// Hector's agent/tool/LLM definitions onto this spec's flatter surface
// (one conversation loop, not a registry of named agents).
package config

import "fmt"

// Config is the root configuration structure this runtime loads from
// YAML, same shape the teacher's own config.yaml takes at the top level.
type Config struct {
	Version string `yaml:"version,omitempty" mapstructure:"version"`
	Name    string `yaml:"name,omitempty" mapstructure:"name"`

	MaxTurns   int              `yaml:"max_turns,omitempty" mapstructure:"max_turns"`
	Compaction CompactionConfig `yaml:"compaction,omitempty" mapstructure:"compaction"`
	Fallback   FallbackConfig   `yaml:"fallback,omitempty" mapstructure:"fallback"`
	Permissions PermissionsConfig `yaml:"permissions,omitempty" mapstructure:"permissions"`
	WebSearch  WebSearchConfig  `yaml:"web_search,omitempty" mapstructure:"web_search"`
	Retrieval  RetrievalConfig  `yaml:"retrieval,omitempty" mapstructure:"retrieval"`

	// Providers is keyed by provider name ("anthropic", "openai", ...);
	// at least one entry is required.
	Providers map[string]*ProviderConfig `yaml:"providers,omitempty" mapstructure:"providers"`

	// Subagents lists the named subagent definitions the Task tool can
	// dispatch to (spec §4.F).
	Subagents []SubagentConfig `yaml:"subagents,omitempty" mapstructure:"subagents"`

	Server   ServerConfig   `yaml:"server,omitempty" mapstructure:"server"`
	Logging  LoggingConfig  `yaml:"logging,omitempty" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability,omitempty" mapstructure:"observability"`
}

// CompactionConfig triggers and scope for spec §4.E.
type CompactionConfig struct {
	ThresholdPercent float64 `yaml:"threshold_percent,omitempty" mapstructure:"threshold_percent"`
	KeepLastN        int     `yaml:"keep_last_n,omitempty" mapstructure:"keep_last_n"`
	Role             string  `yaml:"role,omitempty" mapstructure:"role"`
}

// FallbackConfig parameterizes retry-then-failover (spec §4.D/§4.E).
type FallbackConfig struct {
	Enabled    bool     `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Model      string   `yaml:"model,omitempty" mapstructure:"model"`
	Providers  []string `yaml:"providers,omitempty" mapstructure:"providers"`
	MaxRetries int      `yaml:"max_retries,omitempty" mapstructure:"max_retries"`
	BackoffMS  int      `yaml:"backoff_ms,omitempty" mapstructure:"backoff_ms"`
}

// PermissionsConfig is the three pattern lists consulted by
// tool.Resolve's Passthrough branch (spec §4.C).
type PermissionsConfig struct {
	Allow []PermissionRule `yaml:"allow,omitempty" mapstructure:"allow"`
	Deny  []PermissionRule `yaml:"deny,omitempty" mapstructure:"deny"`
	Ask   []PermissionRule `yaml:"ask,omitempty" mapstructure:"ask"`
}

// PermissionRule is one YAML-level rule entry, decoded into a
// tool.Rule by the caller that builds a tool.Policy from this config.
type PermissionRule struct {
	Tool    string `yaml:"tool" mapstructure:"tool"`
	Pattern string `yaml:"pattern,omitempty" mapstructure:"pattern"`
}

// WebSearchConfig configures the web_search tool's provider and cache.
type WebSearchConfig struct {
	Provider   string `yaml:"provider,omitempty" mapstructure:"provider"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	MaxResults int    `yaml:"max_results,omitempty" mapstructure:"max_results"`
}

// RetrievalConfig is the hybrid retrieval engine's settings block.
type RetrievalConfig struct {
	Enabled   bool                    `yaml:"enabled,omitempty" mapstructure:"enabled"`
	DataDir   string                  `yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Indexing  RetrievalIndexingConfig `yaml:"indexing,omitempty" mapstructure:"indexing"`
	Chunking  RetrievalChunkingConfig `yaml:"chunking,omitempty" mapstructure:"chunking"`
	Search    RetrievalSearchConfig   `yaml:"search,omitempty" mapstructure:"search"`
	VectorStore string                `yaml:"vector_store,omitempty" mapstructure:"vector_store"`
	SQLBackend  string                `yaml:"sql_backend,omitempty" mapstructure:"sql_backend"`
	SQLDSN      string                `yaml:"sql_dsn,omitempty" mapstructure:"sql_dsn"`
	Embedder    RetrievalEmbedderConfig `yaml:"embedder,omitempty" mapstructure:"embedder"`
}

// RetrievalEmbedderConfig configures the Embedder the hybrid engine uses
// for IndexFile/SearchVector (spec §4.H). Provider is "openai" or
// "ollama"-compatible; both speak the same /embeddings wire shape.
type RetrievalEmbedderConfig struct {
	Provider string `yaml:"provider,omitempty" mapstructure:"provider"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model    string `yaml:"model,omitempty" mapstructure:"model"`
}

// SubagentConfig is one Task-dispatchable subagent definition (spec
// §4.F), decoded into a subagent.Definition by the caller.
type SubagentConfig struct {
	Name                    string   `yaml:"name" mapstructure:"name"`
	Description             string   `yaml:"description,omitempty" mapstructure:"description"`
	SystemInstruction       string   `yaml:"system_instruction,omitempty" mapstructure:"system_instruction"`
	Model                   string   `yaml:"model,omitempty" mapstructure:"model"`
	Provider                string   `yaml:"provider,omitempty" mapstructure:"provider"`
	ToolWhitelist           []string `yaml:"tool_whitelist,omitempty" mapstructure:"tool_whitelist"`
	BackgroundToolWhitelist []string `yaml:"background_tool_whitelist,omitempty" mapstructure:"background_tool_whitelist"`
	MaxIterations           int      `yaml:"max_iterations,omitempty" mapstructure:"max_iterations"`
}

type RetrievalIndexingConfig struct {
	Watch       bool     `yaml:"watch,omitempty" mapstructure:"watch"`
	Extensions  []string `yaml:"extensions,omitempty" mapstructure:"extensions"`
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty" mapstructure:"exclude_dirs"`
}

type RetrievalChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens,omitempty" mapstructure:"overlap_tokens"`
}

type RetrievalSearchConfig struct {
	NFinal           int     `yaml:"n_final,omitempty" mapstructure:"n_final"`
	BM25Weight       float64 `yaml:"bm25_weight,omitempty" mapstructure:"bm25_weight"`
	VectorWeight     float64 `yaml:"vector_weight,omitempty" mapstructure:"vector_weight"`
	SnippetWeight    float64 `yaml:"snippet_weight,omitempty" mapstructure:"snippet_weight"`
	MaxChunksPerFile int     `yaml:"max_chunks_per_file,omitempty" mapstructure:"max_chunks_per_file"`
}

// ProviderConfig is one entry of the Providers map (spec §6 "Provider
// block per provider").
type ProviderConfig struct {
	WireAPI        string            `yaml:"wire_api,omitempty" mapstructure:"wire_api"` // "chat" | "responses"
	BaseURL        string            `yaml:"base_url,omitempty" mapstructure:"base_url"`
	EnvKey         string            `yaml:"env_key,omitempty" mapstructure:"env_key"`
	APIKey         string            `yaml:"api_key,omitempty" mapstructure:"api_key"`
	DefaultModel   string            `yaml:"default_model,omitempty" mapstructure:"default_model"`
	TimeoutSecs    int               `yaml:"timeout_secs,omitempty" mapstructure:"timeout_secs"`
	Models         []string          `yaml:"models,omitempty" mapstructure:"models"`
	ModelOverrides map[string]string `yaml:"model_overrides,omitempty" mapstructure:"model_overrides"`
}

// ServerConfig configures the optional SSE transport (pkg/transport/sse).
type ServerConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Addr    string `yaml:"addr,omitempty" mapstructure:"addr"`
}

// LoggingConfig feeds internal/obslog.Init.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" mapstructure:"level"`
	Format string `yaml:"format,omitempty" mapstructure:"format"`
	File   string `yaml:"file,omitempty" mapstructure:"file"`
}

// ObservabilityConfig feeds pkg/observability.Manager.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics,omitempty" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing,omitempty" mapstructure:"tracing"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Namespace string `yaml:"namespace,omitempty" mapstructure:"namespace"`
	Addr      string `yaml:"addr,omitempty" mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Exporter     string  `yaml:"exporter,omitempty" mapstructure:"exporter"` // "stdout" | "otlp"
	Endpoint     string  `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty" mapstructure:"sampling_rate"`
}

// SetDefaults fills the zero-value gaps the teacher's own
// Config.SetDefaults (pkg/config/defaults_test.go's target) fills,
// scaled to this spec's surface.
func (c *Config) SetDefaults() {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 50
	}
	if c.Compaction.ThresholdPercent <= 0 {
		c.Compaction.ThresholdPercent = 80
	}
	if c.Compaction.KeepLastN <= 0 {
		c.Compaction.KeepLastN = 10
	}
	if c.Compaction.Role == "" {
		c.Compaction.Role = "fast"
	}
	if c.Fallback.MaxRetries <= 0 {
		c.Fallback.MaxRetries = 3
	}
	if c.Fallback.BackoffMS <= 0 {
		c.Fallback.BackoffMS = 500
	}
	if c.WebSearch.MaxResults <= 0 {
		c.WebSearch.MaxResults = 5
	}
	if c.Retrieval.Chunking.MaxTokens <= 0 {
		c.Retrieval.Chunking.MaxTokens = 512
	}
	if c.Retrieval.Chunking.OverlapTokens <= 0 {
		c.Retrieval.Chunking.OverlapTokens = 64
	}
	if c.Retrieval.Search.NFinal <= 0 {
		c.Retrieval.Search.NFinal = 10
	}
	if c.Retrieval.Search.BM25Weight <= 0 {
		c.Retrieval.Search.BM25Weight = 1.0
	}
	if c.Retrieval.Search.VectorWeight <= 0 {
		c.Retrieval.Search.VectorWeight = 1.0
	}
	if c.Retrieval.Search.SnippetWeight <= 0 {
		c.Retrieval.Search.SnippetWeight = 0.5
	}
	if c.Retrieval.Search.MaxChunksPerFile <= 0 {
		c.Retrieval.Search.MaxChunksPerFile = 3
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
	for name, p := range c.Providers {
		if p.TimeoutSecs <= 0 {
			p.TimeoutSecs = 60
		}
		if p.WireAPI == "" {
			p.WireAPI = "chat"
		}
		_ = name
	}
}

// Validate checks the cross-field invariants SetDefaults alone can't
// express, mirroring the teacher's own Config.Validate contract.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: at least one provider must be configured")
	}
	for name, p := range c.Providers {
		if p.DefaultModel == "" {
			return fmt.Errorf("config: provider %q: default_model is required", name)
		}
		if p.WireAPI != "chat" && p.WireAPI != "responses" {
			return fmt.Errorf("config: provider %q: wire_api must be \"chat\" or \"responses\", got %q", name, p.WireAPI)
		}
	}
	if c.Fallback.Enabled && c.Fallback.Model == "" && len(c.Providers) < 2 {
		return fmt.Errorf("config: fallback.enabled requires fallback.model or a second provider")
	}
	if c.Compaction.ThresholdPercent <= 0 || c.Compaction.ThresholdPercent > 100 {
		return fmt.Errorf("config: compaction.threshold_percent must be in (0, 100]")
	}
	return nil
}
