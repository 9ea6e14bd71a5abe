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

	"github.com/qdrant/go-client/qdrant"
)

// QdrantProvider wraps qdrant/go-client, grounded on the teacher's
// pkg/databases/qdrant.go (client construction, collection
// auto-creation on first upsert, payload/value conversion).
type QdrantProvider struct {
	client *qdrant.Client
	host   string
	port   int
}

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

func NewQdrantProvider(cfg QdrantConfig) (*QdrantProvider, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vector: qdrant client: %w", err)
	}
	return &QdrantProvider{client: client, host: cfg.Host, port: cfg.Port}, nil
}

func (p *QdrantProvider) ensureCollection(ctx context.Context, collection string, size uint64) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("vector: qdrant connect to %s:%d: %w", p.host, p.port, err)
	}
	if exists {
		return nil
	}
	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vector: qdrant create collection %s: %w", collection, err)
	}
	return nil
}

func (p *QdrantProvider) Upsert(ctx context.Context, collection, id string, embedding []float32, metadata map[string]string) error {
	if err := p.ensureCollection(ctx, collection, uint64(len(embedding))); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value, len(metadata))
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			continue
		}
		payload[k] = val
	}

	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("vector: qdrant upsert: %w", err)
	}
	return nil
}

func (p *QdrantProvider) Search(ctx context.Context, collection string, embedding []float32, k int) ([]Match, error) {
	pointsClient := p.client.GetPointsClient()
	resp, err := pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vector: qdrant search: %w", err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, point := range resp.Result {
		matches = append(matches, Match{
			ID:       qdrantPointID(point.Id),
			Score:    point.Score,
			Metadata: qdrantPayloadToMetadata(point.Payload),
		})
	}
	return matches, nil
}

func (p *QdrantProvider) Delete(ctx context.Context, collection, id string) error {
	_, err := p.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(id)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vector: qdrant delete %s from %s: %w", id, collection, err)
	}
	return nil
}

func (p *QdrantProvider) Close() error { return p.client.Close() }

func qdrantPointID(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

func qdrantPayloadToMetadata(payload map[string]*qdrant.Value) map[string]string {
	metadata := make(map[string]string, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			metadata[k] = s.StringValue
		}
	}
	return metadata
}

var _ Provider = (*QdrantProvider)(nil)
