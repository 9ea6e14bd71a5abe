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
	"regexp"
	"sort"
	"strings"
)

// rrfK is the Reciprocal Rank Fusion constant, grounded on the
// teacher's own reciprocalRankFusion (pkg/databases/qdrant.go): "60
// (standard value)".
const rrfK = 60

// sourceWeights controls how much each ranked list contributes to a
// fused score, per spec §4.H: "symbol-syntax or identifier-only
// queries bias toward BM25+snippet; natural-language queries bias
// toward vector."
type sourceWeights struct {
	bm25   float64
	vector float64
	symbol float64
	recent float64
}

var (
	naturalLanguageWeights = sourceWeights{bm25: 0.3, vector: 0.6, symbol: 0.1}
	symbolQueryWeights     = sourceWeights{bm25: 0.45, vector: 0.2, symbol: 0.35}
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// isSymbolQuery reports whether query looks like a `type:`/`name:`
// filter or a bare identifier, per spec §4.H's query-type detection.
func isSymbolQuery(query string) bool {
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(trimmed, "type:") || strings.HasPrefix(trimmed, "name:") {
		return true
	}
	if strings.Contains(trimmed, " ") {
		return false
	}
	return identifierRe.MatchString(trimmed)
}

// symbolQueryName strips a `type:`/`name:` prefix, leaving the bare
// identifier to search for.
func symbolQueryName(query string) string {
	trimmed := strings.TrimSpace(query)
	if rest, ok := strings.CutPrefix(trimmed, "type:"); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(trimmed, "name:"); ok {
		return strings.TrimSpace(rest)
	}
	return trimmed
}

func weightsFor(query string) sourceWeights {
	if isSymbolQuery(query) {
		return symbolQueryWeights
	}
	return naturalLanguageWeights
}

// rankedList is one source's chunks in best-first order, tagged with
// the weight to apply during fusion.
type rankedList struct {
	results []Result
	weight  float64
}

// fuse merges ranked lists by Reciprocal Rank Fusion: a chunk's fused
// score is Σ_sources weight_source / (rrfK + rank_source), best-first.
// Identity is by chunk ID; a chunk absent from a list contributes
// nothing from that list.
func fuse(lists ...rankedList) []Result {
	type accum struct {
		result Result
		score  float64
	}
	byID := make(map[string]*accum)
	order := make([]string, 0)

	for _, list := range lists {
		if list.weight <= 0 {
			continue
		}
		for rank, r := range list.results {
			contribution := list.weight / float64(rrfK+rank+1)
			if existing, ok := byID[r.Chunk.ID]; ok {
				existing.score += contribution
			} else {
				acc := &accum{result: r, score: contribution}
				byID[r.Chunk.ID] = acc
				order = append(order, r.Chunk.ID)
			}
		}
	}

	fused := make([]Result, 0, len(order))
	for _, id := range order {
		acc := byID[id]
		acc.result.Score = acc.score
		acc.result.ScoreType = ScoreFused
		fused = append(fused, acc.result)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}

// dedupeOverlapping drops results whose line range overlaps a
// higher-ranked result already kept for the same file (spec §4.H:
// "deduplicates by (path, overlapping line range)").
func dedupeOverlapping(results []Result) []Result {
	type kept struct {
		start, end int
	}
	seen := make(map[string][]kept)
	out := make([]Result, 0, len(results))

	for _, r := range results {
		overlaps := false
		for _, k := range seen[r.Chunk.Path] {
			if r.Chunk.StartLine <= k.end && r.Chunk.EndLine >= k.start {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		seen[r.Chunk.Path] = append(seen[r.Chunk.Path], kept{r.Chunk.StartLine, r.Chunk.EndLine})
		out = append(out, r)
	}
	return out
}

// capPerFile keeps at most max results per file, preserving order
// (spec §4.H: "enforces a per-file chunk cap for diversity"). max <= 0
// disables the cap.
func capPerFile(results []Result, max int) []Result {
	if max <= 0 {
		return results
	}
	counts := make(map[string]int)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if counts[r.Chunk.Path] >= max {
			continue
		}
		counts[r.Chunk.Path]++
		out = append(out, r)
	}
	return out
}
