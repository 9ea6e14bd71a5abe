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

import "context"

// Store is the full-text half of the hybrid engine: chunk persistence,
// BM25 full-text search, and symbol (identifier) search. SQLiteStore is
// the default implementation (FTS5); Postgres/MySQL variants implement
// the same contract against their native full-text ranking.
type Store interface {
	// UpsertChunks replaces every chunk previously indexed for path with
	// chunks, atomically.
	UpsertChunks(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error

	// DeleteFile removes every chunk indexed for path.
	DeleteFile(ctx context.Context, path string) error

	// BM25 runs a full-text query, returning up to k chunks ranked by
	// BM25 score (best first).
	BM25(ctx context.Context, query string, k int) ([]Result, error)

	// Symbol searches chunks by enclosing symbol name, for `type:`/`name:`
	// queries and identifier-like queries.
	Symbol(ctx context.Context, name string, k int) ([]Result, error)

	// FileHash returns the content hash stored at index time for path,
	// and whether path is indexed at all.
	FileHash(ctx context.Context, path string) (hash string, ok bool, err error)

	// Close releases the store's resources.
	Close() error
}
