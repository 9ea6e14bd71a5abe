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

// Package search implements spec §4.H's Hybrid Retrieval Engine: BM25,
// vector, and symbol search fused by Reciprocal Rank Fusion, with
// per-file result diversity and hydration against the live filesystem.
// Fused results are not reranked.
package search

import "context"

// ScoreType names which source (or fusion of sources) produced a
// result's score.
type ScoreType string

const (
	ScoreBM25   ScoreType = "bm25"
	ScoreVector ScoreType = "vector"
	ScoreSymbol ScoreType = "symbol"
	ScoreFused  ScoreType = "fused"
)

// IndexedChunk is one chunk as stored by the index — what pkg/retrieval/chunk
// produced, plus its file path and content hash at index time.
type IndexedChunk struct {
	ID         string
	Path       string
	Content    string
	StartLine  int
	EndLine    int
	IsOverview bool
	Symbol     string // the enclosing function/type name, when known
	FileHash   string
}

// Result is one hybrid-search hit. IsStale is nil until SearchHydrated
// populates it (spec §4.H: "is_stale is only ever absent before
// hydration; after search_hydrated it is always Some").
type Result struct {
	Chunk     IndexedChunk
	Score     float64
	ScoreType ScoreType
	IsStale   *bool
}

// Embedder produces a query/document embedding. Implementations live
// alongside the provider registry (pkg/provider), kept as a narrow
// interface here so this package doesn't import the whole provider
// stack.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
