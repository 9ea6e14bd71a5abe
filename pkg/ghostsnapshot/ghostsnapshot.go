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

// Package ghostsnapshot declares the reversible working-tree checkpoint
// contract the Tool Engine calls around destructive tool sequences (spec
// §4.I). Its implementation is explicitly out of scope; this package is
// the interface and the options an implementation must honor, shaped
// after the teacher's pkg/checkpoint.Manager contract (construct once,
// Save/Restore around a unit of work) without that package's git- and
// session-store-specific machinery — the spec calls for a plain
// filesystem checkpoint, not a task-resumption system.
package ghostsnapshot

import "context"

// SnapshotID identifies one checkpoint, opaque to callers.
type SnapshotID string

// Options configures what a Snapshot call ignores, per spec §4.I:
// "snapshots ignore size-limited untracked files and a configurable set
// of large directories by name."
type Options struct {
	// MaxUntrackedFileBytes skips untracked files larger than this from
	// the snapshot. Zero means no limit.
	MaxUntrackedFileBytes int64

	// IgnoreDirs names directories (matched by base name, anywhere in
	// the tree — e.g. "node_modules", ".git") whose contents are never
	// captured and are left untouched by Restore.
	IgnoreDirs []string
}

// Adapter is the reversible checkpoint contract. Implementations MUST
// satisfy the spec's restore promise exactly: files that did not exist
// at snapshot time are removed; files present at snapshot time are
// re-materialized with their snapshotted content; anything under an
// IgnoreDirs entry is left untouched by both Snapshot and Restore.
type Adapter interface {
	// Snapshot captures the current state of root and returns an opaque
	// id Restore can later use to undo changes made after this call.
	Snapshot(ctx context.Context, root string, opts Options) (SnapshotID, error)

	// Restore reverts root to the state captured by id. Restoring the
	// same id twice in a row is a no-op the second time.
	Restore(ctx context.Context, id SnapshotID) error

	// Discard releases any resources held for id without restoring,
	// used once a destructive sequence completes successfully and the
	// checkpoint is no longer needed.
	Discard(ctx context.Context, id SnapshotID) error
}

// Around runs fn with a fresh snapshot taken first; on error it restores
// the snapshot before returning, on success it discards the snapshot.
// This is the shape the Tool Engine calls for an exclusive/writes tool
// sequence it wants to be fully reversible (spec §4.I "checkpoint the
// working directory before a destructive sequence and restore
// afterwards").
func Around(ctx context.Context, a Adapter, root string, opts Options, fn func(ctx context.Context) error) error {
	id, err := a.Snapshot(ctx, root, opts)
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if restoreErr := a.Restore(ctx, id); restoreErr != nil {
			return restoreErr
		}
		return err
	}
	return a.Discard(ctx, id)
}
