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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	results []Result
}

func (f *fakeStore) UpsertChunks(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error {
	return nil
}
func (f *fakeStore) DeleteFile(ctx context.Context, path string) error { return nil }
func (f *fakeStore) BM25(ctx context.Context, query string, k int) ([]Result, error) {
	return f.results, nil
}
func (f *fakeStore) Symbol(ctx context.Context, name string, k int) ([]Result, error) { return nil, nil }
func (f *fakeStore) FileHash(ctx context.Context, path string) (string, bool, error)  { return "", false, nil }
func (f *fakeStore) Close() error                                                      { return nil }

func TestSearchHydratedReplacesContentAndClearsStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	current := "package main\n\nfunc foo() {\n\treturn\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(current), 0o644))

	store := &fakeStore{results: []Result{{
		Chunk: IndexedChunk{
			ID: "c1", Path: path, Content: "stale indexed content",
			StartLine: 3, EndLine: 5, FileHash: HashFile([]byte(current)),
		},
		Score: 1.0, ScoreType: ScoreBM25,
	}}}
	engine := NewEngine(store, nil, nil, Config{})

	results, err := engine.SearchHydrated(context.Background(), "foo", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].IsStale)
	assert.False(t, *results[0].IsStale)
	assert.Equal(t, "func foo() {\n\treturn\n}", results[0].Chunk.Content)
}

func TestSearchHydratedMarksStaleOnHashMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	current := "package main\n\nfunc foo() {\n\treturn\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(current), 0o644))

	store := &fakeStore{results: []Result{{
		Chunk: IndexedChunk{
			ID: "c1", Path: path, Content: "stale indexed content",
			StartLine: 3, EndLine: 5, FileHash: "deadbeef",
		},
		Score: 1.0, ScoreType: ScoreBM25,
	}}}
	engine := NewEngine(store, nil, nil, Config{})

	results, err := engine.SearchHydrated(context.Background(), "foo", 10)
	require.NoError(t, err)
	require.NotNil(t, results[0].IsStale)
	assert.True(t, *results[0].IsStale)
	assert.Equal(t, "func foo() {\n\treturn\n}", results[0].Chunk.Content)
}

func TestSearchHydratedKeepsIndexedContentWhenFileMissing(t *testing.T) {
	store := &fakeStore{results: []Result{{
		Chunk: IndexedChunk{
			ID: "c1", Path: "/does/not/exist.go", Content: "indexed content",
			StartLine: 1, EndLine: 1, FileHash: "irrelevant",
		},
		Score: 1.0, ScoreType: ScoreBM25,
	}}}
	engine := NewEngine(store, nil, nil, Config{})

	results, err := engine.SearchHydrated(context.Background(), "foo", 10)
	require.NoError(t, err)
	require.NotNil(t, results[0].IsStale)
	assert.True(t, *results[0].IsStale)
	assert.Equal(t, "indexed content", results[0].Chunk.Content)
}

func TestSearchHydratedMarksStaleWhenLineRangeShrank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	current := "package main\n"
	require.NoError(t, os.WriteFile(path, []byte(current), 0o644))

	store := &fakeStore{results: []Result{{
		Chunk: IndexedChunk{
			ID: "c1", Path: path, Content: "indexed content",
			StartLine: 10, EndLine: 20, FileHash: HashFile([]byte(current)),
		},
		Score: 1.0, ScoreType: ScoreBM25,
	}}}
	engine := NewEngine(store, nil, nil, Config{})

	results, err := engine.SearchHydrated(context.Background(), "foo", 10)
	require.NoError(t, err)
	require.NotNil(t, results[0].IsStale)
	assert.True(t, *results[0].IsStale)
	assert.Equal(t, "indexed content", results[0].Chunk.Content)
}
