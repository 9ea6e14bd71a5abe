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

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store against MySQL's native FULLTEXT index and
// MATCH ... AGAINST relevance scoring — another approximation of true
// BM25, offered as a pluggable backend alongside SQLiteStore and
// PostgresStore.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("search: open mysql store: %w", err)
	}
	s := &MySQLStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id VARCHAR(191) PRIMARY KEY,
	path VARCHAR(1024) NOT NULL,
	content MEDIUMTEXT NOT NULL,
	start_line INT NOT NULL,
	end_line INT NOT NULL,
	is_overview TINYINT NOT NULL,
	symbol VARCHAR(512) NOT NULL DEFAULT '',
	file_hash VARCHAR(128) NOT NULL,
	INDEX idx_chunks_path (path(255)),
	INDEX idx_chunks_symbol (symbol),
	FULLTEXT INDEX idx_chunks_fulltext (content)
) ENGINE=InnoDB;
`

func (s *MySQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("search: mysql migrate: %w", err)
	}
	return nil
}

func (s *MySQLStore) UpsertChunks(ctx context.Context, path, fileHash string, chunks []IndexedChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: clear existing chunks for %s: %w", path, err)
	}

	for _, c := range chunks {
		overview := 0
		if c.IsOverview {
			overview = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, path, content, start_line, end_line, is_overview, symbol, file_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, path, c.Content, c.StartLine, c.EndLine, overview, c.Symbol, fileHash)
		if err != nil {
			return fmt.Errorf("search: insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) DeleteFile(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("search: delete file %s: %w", path, err)
	}
	return nil
}

func (s *MySQLStore) BM25(ctx context.Context, query string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, start_line, end_line, is_overview, symbol, file_hash,
		       MATCH(content) AGAINST (? IN NATURAL LANGUAGE MODE) AS rank
		FROM chunks
		WHERE MATCH(content) AGAINST (? IN NATURAL LANGUAGE MODE)
		ORDER BY rank DESC
		LIMIT ?
	`, query, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: mysql fulltext query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var c IndexedChunk
		var overview int
		var rank float64
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &overview, &c.Symbol, &c.FileHash, &rank); err != nil {
			return nil, fmt.Errorf("search: scan mysql row: %w", err)
		}
		c.IsOverview = overview != 0
		results = append(results, Result{Chunk: c, Score: rank, ScoreType: ScoreBM25})
	}
	return results, rows.Err()
}

func (s *MySQLStore) Symbol(ctx context.Context, name string, k int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, start_line, end_line, is_overview, symbol, file_hash
		FROM chunks
		WHERE symbol = ? OR symbol LIKE ?
		ORDER BY (symbol = ?) DESC, CHAR_LENGTH(symbol)
		LIMIT ?
	`, name, name+"%", name, k)
	if err != nil {
		return nil, fmt.Errorf("search: mysql symbol query: %w", err)
	}
	defer rows.Close()

	var results []Result
	rank := 0
	for rows.Next() {
		var c IndexedChunk
		var overview int
		if err := rows.Scan(&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &overview, &c.Symbol, &c.FileHash); err != nil {
			return nil, fmt.Errorf("search: scan mysql symbol row: %w", err)
		}
		c.IsOverview = overview != 0
		rank++
		results = append(results, Result{Chunk: c, Score: 1.0 / float64(rank), ScoreType: ScoreSymbol})
	}
	return results, rows.Err()
}

func (s *MySQLStore) FileHash(ctx context.Context, path string) (string, bool, error) {
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

func (s *MySQLStore) Close() error { return s.db.Close() }

var _ Store = (*MySQLStore)(nil)
