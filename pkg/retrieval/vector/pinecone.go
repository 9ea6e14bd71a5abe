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

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeProvider wraps pinecone-io/go-pinecone, grounded on the
// teacher's pkg/databases/pinecone.go: one client, a fresh
// DescribeIndex+Index connection per call (Pinecone index hosts are
// resolved lazily and may change), collection argument treated as the
// index name.
type PineconeProvider struct {
	client       *pinecone.Client
	defaultIndex string
}

type PineconeConfig struct {
	APIKey       string
	Host         string
	DefaultIndex string
}

func NewPineconeProvider(cfg PineconeConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vector: pinecone API key is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey, Host: cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("vector: pinecone client: %w", err)
	}
	index := cfg.DefaultIndex
	if index == "" {
		index = "agentcore"
	}
	return &PineconeProvider{client: client, defaultIndex: index}, nil
}

func (p *PineconeProvider) indexName(collection string) string {
	if collection != "" {
		return collection
	}
	return p.defaultIndex
}

func (p *PineconeProvider) connect(ctx context.Context, collection string) (*pinecone.IndexConnection, error) {
	name := p.indexName(collection)
	idx, err := p.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("vector: pinecone describe index %s: %w", name, err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: idx.Host})
	if err != nil {
		return nil, fmt.Errorf("vector: pinecone connect to index %s: %w", name, err)
	}
	return conn, nil
}

func (p *PineconeProvider) Upsert(ctx context.Context, collection, id string, embedding []float32, metadata map[string]string) error {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	var meta *pinecone.Metadata
	if len(metadata) > 0 {
		fields := make(map[string]interface{}, len(metadata))
		for k, v := range metadata {
			fields[k] = v
		}
		meta, err = structpb.NewStruct(fields)
		if err != nil {
			return fmt.Errorf("vector: pinecone metadata conversion: %w", err)
		}
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: id, Values: embedding, Metadata: meta}})
	if err != nil {
		return fmt.Errorf("vector: pinecone upsert: %w", err)
	}
	return nil
}

func (p *PineconeProvider) Search(ctx context.Context, collection string, embedding []float32, k int) ([]Match, error) {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vector: pinecone query: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.Vector == nil {
			continue
		}
		metadata := map[string]string{}
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				if s, ok := v.(string); ok {
					metadata[k] = s
				}
			}
		}
		matches = append(matches, Match{ID: m.Vector.Id, Score: m.Score, Metadata: metadata})
	}
	return matches, nil
}

func (p *PineconeProvider) Delete(ctx context.Context, collection, id string) error {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteVectorsById(ctx, []string{id}); err != nil {
		return fmt.Errorf("vector: pinecone delete %s: %w", id, err)
	}
	return nil
}

func (p *PineconeProvider) Close() error { return nil }

var _ Provider = (*PineconeProvider)(nil)
