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
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store against Postgres's native full-text
// search (tsvector/ts_rank) rather than FTS5, so its "BM25" ranking is
// an approximation — ts_rank weights term frequency and proximity, not
// the same formula sqlite's bm25() computes. Offered as a pluggable
// backend for deployments already standardized on Postgres, matching
// the teacher's pattern of swappable SQL backends behind one schema
// (pkg/config/dbpool.go).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("search: open postgres store: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	content TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	is_overview BOOLEAN NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	file_hash TEXT NOT NULL,
	content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
CREATE INDEX IF NOT EXISTS idx_chunks_symbol ON chunks(symbol);
CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN(content_tsv);
`

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("search: postgres migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertChunks(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = $1`, path); err != nil {
		return fmt.Errorf("search: clear existing chunks for %s: %w", path, err)
	}

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, path, content, start_line, end_line, is_overview, symbol, file_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ID, path, c.Content, c.StartLine, c.EndLine, c.IsOverview, c.Symbol, fileHash)
		if err != nil {
			return fmt.Errorf("search: insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) DeleteFile(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("search: delete file %s: %w", path, err)
	}
	return nil
}

func (s *PostgresStore) BM25(ctx context.Context, query string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, start_line, end_line, is_overview, symbol, file_hash,
		       ts_rank(content_tsv, plainto_tsquery('english', $1)) AS rank
		FROM chunks
		WHERE content_tsv @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2
	`, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: postgres fulltext query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var c IndexedChunk
		var rank float64
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &c.IsOverview, &c.Symbol, &c.FileHash, &rank); err != nil {
			return nil, fmt.Errorf("search: scan postgres row: %w", err)
		}
		results = append(results, Result{Chunk: c, Score: rank, ScoreType: ScoreBM25})
	}
	return results, rows.Err()
}

func (s *PostgresStore) Symbol(ctx context.Context, name string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, start_line, end_line, is_overview, symbol, file_hash
		FROM chunks
		WHERE symbol = $1 OR symbol LIKE $2
		ORDER BY (symbol = $1) DESC, length(symbol)
		LIMIT $3
	`, name, name+"%", k)
	if err != nil {
		return nil, fmt.Errorf("search: postgres symbol query: %w", err)
	}
	defer rows.Close()

	var results []Result
	rank := 0
	for rows.Next() {
		var c IndexedChunk
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &c.IsOverview, &c.Symbol, &c.FileHash); err != nil {
			return nil, fmt.Errorf("search: scan postgres symbol row: %w", err)
		}
		rank++
		results = append(results, Result{Chunk: c, Score: 1.0 / float64(rank), ScoreType: ScoreSymbol})
	}
	return results, rows.Err()
}

func (s *PostgresStore) FileHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT file_hash FROM chunks WHERE path = $1 LIMIT 1`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("search: file hash lookup for %s: %w", path, err)
	}
	return hash, true, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

var _ Store = (*PostgresStore)(nil)
