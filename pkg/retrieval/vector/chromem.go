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

package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemProvider is the default embedded Provider: no external service,
// one chromem-go *chromem.DB per process, one chromem collection per
// vector.Provider "collection" argument.
type ChromemProvider struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemProvider opens (or creates) a persistent chromem-go database
// rooted at path. An empty path keeps everything in memory.
func NewChromemProvider(path string) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("vector: open chromem db: %w", err)
	}
	return &ChromemProvider{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

func (p *ChromemProvider) collection(name string) (*chromem.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.collections[name]; ok {
		return c, nil
	}
	c, err := p.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}
	p.collections[name] = c
	return c, nil
}

func (p *ChromemProvider) Upsert(ctx context.Context, collection, id string, embedding []float32, metadata map[string]string) error {
	c, err := p.collection(collection)
	if err != nil {
		return err
	}
	return c.AddDocument(ctx, chromem.Document{
		ID:        id,
		Embedding: embedding,
		Metadata:  metadata,
	})
}

func (p *ChromemProvider) Search(ctx context.Context, collection string, embedding []float32, k int) ([]Match, error) {
	c, err := p.collection(collection)
	if err != nil {
		return nil, err
	}
	if k > c.Count() {
		k = c.Count()
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: chromem query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{ID: r.ID, Score: r.Similarity, Metadata: r.Metadata})
	}
	return matches, nil
}

func (p *ChromemProvider) Delete(ctx context.Context, collection, id string) error {
	c, err := p.collection(collection)
	if err != nil {
		return err
	}
	return c.Delete(ctx, nil, nil, id)
}

func (p *ChromemProvider) Close() error { return nil }

var _ Provider = (*ChromemProvider)(nil)
