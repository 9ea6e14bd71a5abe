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

// Package vector provides the vector-similarity half of spec §4.H's
// hybrid search: a pluggable Provider interface, an embedded default
// (chromem-go) and two remote backends (Qdrant, Pinecone), grounded on
// the teacher's pkg/databases DatabaseProvider/registry pattern.
package vector

import "context"

// Match is one vector-similarity hit.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Provider is the vector-store contract pkg/retrieval/search's hybrid
// engine consumes. Collection is a caller-chosen namespace (one per
// indexed workspace, typically), letting a single Provider instance
// back multiple projects.
type Provider interface {
	Upsert(ctx context.Context, collection, id string, embedding []float32, metadata map[string]string) error
	Search(ctx context.Context, collection string, embedding []float32, k int) ([]Match, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
