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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemUpsertAndSearch(t *testing.T) {
	p, err := NewChromemProvider("")
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "docs", "a", []float32{1, 0, 0}, map[string]string{"path": "a.go"}))
	require.NoError(t, p.Upsert(ctx, "docs", "b", []float32{0, 1, 0}, map[string]string{"path": "b.go"}))

	matches, err := p.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "a.go", matches[0].Metadata["path"])
}

func TestChromemDelete(t *testing.T) {
	p, err := NewChromemProvider("")
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "docs", "a", []float32{1, 0, 0}, nil))
	require.NoError(t, p.Delete(ctx, "docs", "a"))

	matches, err := p.Search(ctx, "docs", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChromemSearchClampsKToCollectionSize(t *testing.T) {
	p, err := NewChromemProvider("")
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "docs", "a", []float32{1, 0, 0}, nil))

	matches, err := p.Search(ctx, "docs", []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRegistryRegisterGetAndDuplicate(t *testing.T) {
	reg := NewRegistry()
	p, err := NewChromemProvider("")
	require.NoError(t, err)

	require.NoError(t, reg.Register("default", p))
	assert.Error(t, reg.Register("default", p))

	got, err := reg.Get("default")
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = reg.Get("missing")
	assert.Error(t, err)
}

func TestRegistryRejectsEmptyNameOrNilProvider(t *testing.T) {
	reg := NewRegistry()
	p, err := NewChromemProvider("")
	require.NoError(t, err)

	assert.Error(t, reg.Register("", p))
	assert.Error(t, reg.Register("x", nil))
}
