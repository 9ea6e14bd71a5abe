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

package ghostsnapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	nextID      int
	snapshotted []SnapshotID
	restored    []SnapshotID
	discarded   []SnapshotID
	snapshotErr error
	restoreErr  error
}

func (f *fakeAdapter) Snapshot(ctx context.Context, root string, opts Options) (SnapshotID, error) {
	if f.snapshotErr != nil {
		return "", f.snapshotErr
	}
	f.nextID++
	id := SnapshotID(string(rune('a' + f.nextID)))
	f.snapshotted = append(f.snapshotted, id)
	return id, nil
}

func (f *fakeAdapter) Restore(ctx context.Context, id SnapshotID) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restored = append(f.restored, id)
	return nil
}

func (f *fakeAdapter) Discard(ctx context.Context, id SnapshotID) error {
	f.discarded = append(f.discarded, id)
	return nil
}

func TestAroundDiscardsOnSuccess(t *testing.T) {
	a := &fakeAdapter{}
	err := Around(context.Background(), a, "/work", Options{}, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, a.snapshotted, 1)
	assert.Len(t, a.discarded, 1)
	assert.Empty(t, a.restored)
}

func TestAroundRestoresOnError(t *testing.T) {
	a := &fakeAdapter{}
	wantErr := errors.New("destructive step failed")
	err := Around(context.Background(), a, "/work", Options{}, func(ctx context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Len(t, a.restored, 1)
	assert.Empty(t, a.discarded)
}

func TestAroundPropagatesSnapshotError(t *testing.T) {
	a := &fakeAdapter{snapshotErr: errors.New("disk full")}
	ran := false
	err := Around(context.Background(), a, "/work", Options{}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
}

func TestAroundRestoreErrorTakesPrecedence(t *testing.T) {
	a := &fakeAdapter{restoreErr: errors.New("restore failed")}
	err := Around(context.Background(), a, "/work", Options{}, func(ctx context.Context) error {
		return errors.New("original failure")
	})
	require.Error(t, err)
	assert.Equal(t, "restore failed", err.Error())
}
