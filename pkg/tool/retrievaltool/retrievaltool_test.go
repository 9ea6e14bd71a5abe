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

package retrievaltool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/retrieval/search"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// fakeStore is a minimal in-memory search.Store: BM25 returns every
// chunk whose content contains query as a substring, ignoring real
// ranking. Symbol matches by exact Symbol field.
type fakeStore struct {
	chunks []search.IndexedChunk
	hashes map[string]string
}

func (f *fakeStore) UpsertChunks(ctx context.Context, path, fileHash string, chunks []search.IndexedChunk) error {
	if f.hashes == nil {
		f.hashes = make(map[string]string)
	}
	f.hashes[path] = fileHash
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) DeleteFile(ctx context.Context, path string) error { return nil }

func (f *fakeStore) BM25(ctx context.Context, query string, k int) ([]search.Result, error) {
	var out []search.Result
	for _, c := range f.chunks {
		if strings.Contains(strings.ToLower(c.Content), strings.ToLower(query)) {
			out = append(out, search.Result{Chunk: c, Score: 1.0, ScoreType: search.ScoreBM25})
		}
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Symbol(ctx context.Context, name string, k int) ([]search.Result, error) {
	var out []search.Result
	for _, c := range f.chunks {
		if c.Symbol == name {
			out = append(out, search.Result{Chunk: c, Score: 1.0, ScoreType: search.ScoreSymbol})
		}
	}
	return out, nil
}

func (f *fakeStore) FileHash(ctx context.Context, path string) (string, bool, error) {
	h, ok := f.hashes[path]
	return h, ok, nil
}

func (f *fakeStore) Close() error { return nil }

func buildTool(t *testing.T) *Tool {
	t.Helper()
	store := &fakeStore{}
	engine := search.NewEngine(store, nil, nil, search.Config{Collection: "test"})
	require.NoError(t, store.UpsertChunks(context.Background(), "foo.go", "hash1", []search.IndexedChunk{
		{ID: "c1", Path: "foo.go", Content: "func ParseConfig() error { return nil }", StartLine: 1, EndLine: 3, Symbol: "ParseConfig"},
	}))
	tl, err := New(Config{Engine: engine})
	require.NoError(t, err)
	return tl
}

func TestSearchCodebaseHybridMode(t *testing.T) {
	tl := buildTool(t)
	result, err := tl.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"query": "ParseConfig",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Text, "foo.go")
}

func TestSearchCodebaseBM25Mode(t *testing.T) {
	tl := buildTool(t)
	result, err := tl.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"query": "ParseConfig", "mode": "bm25",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "foo.go")
}

func TestSearchCodebaseRejectsEmptyQuery(t *testing.T) {
	tl := buildTool(t)
	result, err := tl.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"query": "   ",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchCodebaseRejectsUnknownMode(t *testing.T) {
	tl := buildTool(t)
	result, err := tl.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"query": "x", "mode": "carrier-pigeon",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "unknown mode")
}

func TestSearchCodebaseVectorModeWithoutEmbedderReturnsEmpty(t *testing.T) {
	tl := buildTool(t)
	result, err := tl.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"query": "ParseConfig", "mode": "vector",
	})
	require.NoError(t, err)
	assert.Equal(t, "no results", result.Text)
}

func TestNewRejectsNilEngine(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
