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
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default Store: one chunks table plus an FTS5
// virtual table kept in sync via triggers over an external-content
// table, exactly the pattern the teacher's own repo never needed (it
// delegates full-text entirely to vector-store hybrid modes) but
// sqlite's own documentation prescribes for an external-content FTS5
// index. Requires go-sqlite3 built with the "sqlite_fts5" build tag.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("search: open sqlite store: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	content TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	is_overview INTEGER NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	file_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
CREATE INDEX IF NOT EXISTS idx_chunks_symbol ON chunks(symbol);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	content,
	content='chunks',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	if err != nil {
		return fmt.Errorf("search: sqlite migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertChunks(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: clear existing chunks for %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, path, content, start_line, end_line, is_overview, symbol, file_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("search: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		overview := 0
		if c.IsOverview {
			overview = 1
		}
		if _, err := stmt.ExecContext(ctx, c.ID, path, c.Content, c.StartLine, c.EndLine, overview, c.Symbol, fileHash); err != nil {
			return fmt.Errorf("search: insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("search: delete file %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) BM25(ctx context.Context, query string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.path, c.content, c.start_line, c.end_line, c.is_overview, c.symbol, c.file_hash, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(query), k)
	if err != nil {
		return nil, fmt.Errorf("search: bm25 query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var c IndexedChunk
		var overview int
		var rank float64
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &overview, &c.Symbol, &c.FileHash, &rank); err != nil {
			return nil, fmt.Errorf("search: scan bm25 row: %w", err)
		}
		c.IsOverview = overview != 0
		// sqlite's bm25() is "lower is more relevant"; invert so higher
		// Result.Score always means "better", matching vector/symbol scores.
		results = append(results, Result{Chunk: c, Score: -rank, ScoreType: ScoreBM25})
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Symbol(ctx context.Context, name string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, start_line, end_line, is_overview, symbol, file_hash
		FROM chunks
		WHERE symbol = ? OR symbol LIKE ?
		ORDER BY CASE WHEN symbol = ? THEN 0 ELSE 1 END, length(symbol)
		LIMIT ?
	`, name, name+"%", name, k)
	if err != nil {
		return nil, fmt.Errorf("search: symbol query: %w", err)
	}
	defer rows.Close()

	var results []Result
	rank := 0
	for rows.Next() {
		var c IndexedChunk
		var overview int
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &overview, &c.Symbol, &c.FileHash); err != nil {
			return nil, fmt.Errorf("search: scan symbol row: %w", err)
		}
		c.IsOverview = overview != 0
		rank++
		results = append(results, Result{Chunk: c, Score: 1.0 / float64(rank), ScoreType: ScoreSymbol})
	}
	return results, rows.Err()
}

func (s *SQLiteStore) FileHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT file_hash FROM chunks WHERE path = ? LIMIT 1`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("search: file hash lookup for %s: %w", path, err)
	}
	return hash, true, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// ftsQuery quotes each token as an FTS5 string literal (doubling any
// embedded double quotes) so identifiers containing FTS5 syntax
// characters (., -, :) don't break the MATCH expression.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

var _ Store = (*SQLiteStore)(nil)
