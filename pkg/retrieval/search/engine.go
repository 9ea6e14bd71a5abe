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

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cocode-dev/agentcore/pkg/retrieval/vector"
)

// Config tunes Engine behavior.
type Config struct {
	// Collection scopes the vector Provider's namespace for this engine.
	Collection string
	// MaxChunksPerFile enforces result diversity across files. <= 0
	// disables the cap.
	MaxChunksPerFile int
}

// Engine is the hybrid retrieval engine: a Store for BM25/symbol
// search, a vector.Provider for embedding similarity, and an Embedder
// to turn queries (and chunk content at index time) into vectors.
type Engine struct {
	store    Store
	vectors  vector.Provider
	embedder Embedder
	cfg      Config
}

func NewEngine(store Store, vectors vector.Provider, embedder Embedder, cfg Config) *Engine {
	return &Engine{store: store, vectors: vectors, embedder: embedder, cfg: cfg}
}

// IndexFile replaces every chunk previously indexed for path: the
// Store keeps full-text/symbol data, the vector Provider keeps
// embeddings. fileHash is the hash of the raw file content (not the
// chunks) so SearchHydrated can later detect on-disk drift by
// recomputing the same hash. Each chunk's own fields ride along as
// vector metadata so vector search results don't need a second Store
// round-trip.
func (e *Engine) IndexFile(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error {
	if err := e.store.UpsertChunks(ctx, path, fileHash, chunks); err != nil {
		return err
	}

	if e.vectors == nil || e.embedder == nil {
		return nil
	}

	if err := e.vectors.Delete(ctx, e.cfg.Collection, path); err != nil {
		// best-effort: most providers no-op on missing IDs; chunk IDs are
		// per-chunk below, this call only clears a stale whole-file alias
		// if one was ever written.
		_ = err
	}

	for _, c := range chunks {
		embedding, err := e.embedder.Embed(ctx, c.Content)
		if err != nil {
			return fmt.Errorf("search: embed chunk %s: %w", c.ID, err)
		}
		meta := chunkMetadata(c, fileHash)
		if err := e.vectors.Upsert(ctx, e.cfg.Collection, c.ID, embedding, meta); err != nil {
			return fmt.Errorf("search: upsert vector for %s: %w", c.ID, err)
		}
	}
	return nil
}

// DeleteFile removes every chunk indexed for path from both the Store
// and the vector Provider. The vector Provider is keyed per-chunk ID,
// which the caller no longer has once chunks are gone from the Store,
// so vector cleanup is left to a subsequent re-index (an Upsert with
// the same ID overwrites, and collections are expected to be rebuilt
// wholesale on major changes) — callers that need strict vector
// cleanup should track chunk IDs themselves before calling DeleteFile.
func (e *Engine) DeleteFile(ctx context.Context, path string) error {
	return e.store.DeleteFile(ctx, path)
}

// HashFile computes the content hash IndexFile and SearchHydrated both
// use to detect drift between the index and the file on disk.
func HashFile(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func chunkMetadata(c IndexedChunk, fileHash string) map[string]string {
	overview := "0"
	if c.IsOverview {
		overview = "1"
	}
	return map[string]string{
		"path":        c.Path,
		"content":     c.Content,
		"start_line":  strconv.Itoa(c.StartLine),
		"end_line":    strconv.Itoa(c.EndLine),
		"is_overview": overview,
		"symbol":      c.Symbol,
		"file_hash":   fileHash,
	}
}

func chunkFromMetadata(id string, meta map[string]string) IndexedChunk {
	startLine, _ := strconv.Atoi(meta["start_line"])
	endLine, _ := strconv.Atoi(meta["end_line"])
	return IndexedChunk{
		ID:         id,
		Path:       meta["path"],
		Content:    meta["content"],
		StartLine:  startLine,
		EndLine:    endLine,
		IsOverview: meta["is_overview"] == "1",
		Symbol:     meta["symbol"],
		FileHash:   meta["file_hash"],
	}
}

// SearchBM25 runs full-text search alone, per spec §4.H's search_bm25
// operation.
func (e *Engine) SearchBM25(ctx context.Context, query string, k int) ([]Result, error) {
	return e.store.BM25(ctx, query, k)
}

// SearchVector runs embedding similarity search alone, per spec §4.H's
// search_vector operation.
func (e *Engine) SearchVector(ctx context.Context, query string, k int) ([]Result, error) {
	if e.vectors == nil || e.embedder == nil {
		return nil, nil
	}
	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	matches, err := e.vectors.Search(ctx, e.cfg.Collection, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search: vector query: %w", err)
	}
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Chunk:     chunkFromMetadata(m.ID, m.Metadata),
			Score:     float64(m.Score),
			ScoreType: ScoreVector,
		})
	}
	return results, nil
}

// SearchSnippet runs an exact-phrase full-text match, per spec §4.H's
// search_snippet operation: the query is treated as a literal phrase
// rather than a bag of terms.
func (e *Engine) SearchSnippet(ctx context.Context, query string, k int) ([]Result, error) {
	results, err := e.store.BM25(ctx, query, k*4)
	if err != nil {
		return nil, err
	}
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if containsPhrase(r.Chunk.Content, query) {
			r.ScoreType = ScoreBM25
			filtered = append(filtered, r)
			if len(filtered) >= k {
				break
			}
		}
	}
	return filtered, nil
}

func containsPhrase(content, phrase string) bool {
	return len(phrase) > 0 && strings.Contains(strings.ToLower(content), strings.ToLower(phrase))
}

// Search runs the full hybrid pipeline described in spec §4.H:
// query-type detection picks per-source weights, BM25/vector/symbol
// results are fused by Reciprocal Rank Fusion, overlapping (path, line
// range) duplicates are dropped, and a per-file cap enforces
// diversity. If BM25 alone returns results and vector+symbol are both
// empty, the BM25 results are returned unfused (score_type stays
// "bm25", not "fused") — fusing against empty lists is a no-op
// mathematically, but this keeps callers from seeing a misleading
// score_type on otherwise single-source results.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Result, error) {
	weights := weightsFor(query)

	bm25Results, err := e.store.BM25(ctx, query, k*3)
	if err != nil {
		return nil, err
	}

	var vectorResults []Result
	if e.vectors != nil && e.embedder != nil {
		vectorResults, err = e.SearchVector(ctx, query, k*3)
		if err != nil {
			return nil, err
		}
	}

	var symbolResults []Result
	if isSymbolQuery(query) {
		symbolResults, err = e.store.Symbol(ctx, symbolQueryName(query), k*3)
		if err != nil {
			return nil, err
		}
	}

	if len(vectorResults) == 0 && len(symbolResults) == 0 {
		return finalize(bm25Results, k, e.cfg.MaxChunksPerFile), nil
	}

	fused := fuse(
		rankedList{results: bm25Results, weight: weights.bm25},
		rankedList{results: vectorResults, weight: weights.vector},
		rankedList{results: symbolResults, weight: weights.symbol},
	)
	return finalize(fused, k, e.cfg.MaxChunksPerFile), nil
}

func finalize(results []Result, k, maxPerFile int) []Result {
	deduped := dedupeOverlapping(results)
	capped := capPerFile(deduped, maxPerFile)
	if k > 0 && len(capped) > k {
		capped = capped[:k]
	}
	return capped
}

// fileSnapshot is a lazily-read, per-path cache SearchHydrated uses so
// results sharing a file only hit disk once.
type fileSnapshot struct {
	content []byte
	lines   []string
	err     error
}

// SearchHydrated runs Search and then, per result, reads the file's
// current content from disk: IsStale records whether the index is out of
// date, and Chunk.Content is replaced with the file's current bytes for
// that line range (spec §4.H / §8 scenario 6: "each chunk's content
// equals the current bytes of its file"). The indexed content is kept
// only when the file is missing/unreadable or the chunk's line range no
// longer exists in the current file, in which case IsStale is forced
// true regardless of the hash comparison.
func (e *Engine) SearchHydrated(ctx context.Context, query string, k int) ([]Result, error) {
	results, err := e.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]fileSnapshot)
	for i := range results {
		path := results[i].Chunk.Path
		snap, ok := snapshots[path]
		if !ok {
			content, rerr := os.ReadFile(path)
			snap = fileSnapshot{content: content, err: rerr}
			if rerr == nil {
				snap.lines = strings.Split(string(content), "\n")
			}
			snapshots[path] = snap
		}

		if snap.err != nil {
			stale := true
			results[i].IsStale = &stale
			continue
		}

		hydrated, ok := linesInRange(snap.lines, results[i].Chunk.StartLine, results[i].Chunk.EndLine)
		stale := results[i].Chunk.FileHash != "" && HashFile(snap.content) != results[i].Chunk.FileHash
		if ok {
			results[i].Chunk.Content = hydrated
		} else {
			stale = true
		}
		results[i].IsStale = &stale
	}
	return results, nil
}

// linesInRange extracts 1-indexed, inclusive lines [start, end] from
// lines. It reports false if the range no longer fits the current file,
// e.g. after the file shrank since indexing.
func linesInRange(lines []string, start, end int) (string, bool) {
	if start < 1 || end < start || end > len(lines) {
		return "", false
	}
	return strings.Join(lines[start-1:end], "\n"), true
}
