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

package grep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/tool"
)

func setupFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package main\n\nfunc Bar() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x00, 0x01, 0x02, 'F', 'o', 'o'}, 0o644))
	return dir
}

func TestGrepFilesWithMatches(t *testing.T) {
	dir := setupFixture(t)
	g := New(Config{WorkingDirectory: dir})

	res, err := g.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"pattern": "func Foo",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "a.go")
	assert.NotContains(t, res.Text, "b.go")
}

func TestGrepSkipsBinaryFiles(t *testing.T) {
	dir := setupFixture(t)
	g := New(Config{WorkingDirectory: dir})

	res, err := g.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"pattern": "Foo",
	})
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "c.bin")
}

func TestGrepContentModeWithContext(t *testing.T) {
	dir := setupFixture(t)
	g := New(Config{WorkingDirectory: dir})

	res, err := g.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"pattern": "func Foo", "output_mode": "content", "-C": float64(2),
	})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "func Foo")
	assert.Contains(t, res.Text, "package main")
}

func TestGrepHeadLimit(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("match\n"), 0o644))
	}
	g := New(Config{WorkingDirectory: dir})

	res, err := g.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"pattern": "match", "head_limit": float64(1),
	})
	require.NoError(t, err)
	lines := 0
	for _, c := range res.Text {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 1, lines)
}

func TestGrepCountMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x\nx\ny\n"), 0o644))
	g := New(Config{WorkingDirectory: dir})

	res, err := g.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"pattern": "x", "output_mode": "count",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "a.go:2")
}
