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

package edittool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/tool"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEditExactMatch(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "package main\n\nfunc foo() {}\n")

	tt := New(Config{WorkingDirectory: dir})
	frs := tool.NewFileReadState()
	path := tool.Canonicalize(dir, "a.go")
	content, _ := os.ReadFile(path)
	frs.Record(path, content)

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "func foo() {}", "new_string": "func bar() {}",
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "exact")

	out, _ := os.ReadFile(path)
	assert.Contains(t, string(out), "func bar() {}")
}

func TestEditRejectsWithoutPriorRead(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "package main\n")

	tt := New(Config{WorkingDirectory: dir})
	frs := tool.NewFileReadState()

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "package main", "new_string": "package other",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "changed since it was last read")
}

func TestEditFlexibleMatchIgnoresIndentation(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "func foo() {\n    return\n}\n")

	tt := New(Config{WorkingDirectory: dir})
	frs := tool.NewFileReadState()
	path := tool.Canonicalize(dir, "a.go")
	content, _ := os.ReadFile(path)
	frs.Record(path, content)

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "func foo() {\n  return\n}", "new_string": "func foo() {\n    return 1\n}",
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, "flexible")
}

func TestEditPlanModeRejectsWrite(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "package main\n")

	tt := New(Config{WorkingDirectory: dir, PlanMode: true})
	frs := tool.NewFileReadState()
	path := tool.Canonicalize(dir, "a.go")
	content, _ := os.ReadFile(path)
	frs.Record(path, content)

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "package main", "new_string": "package other",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEditRejectsOldEqualsNewBeforeAnyIO(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package main\n")
	before, _ := os.Stat(path)

	tt := New(Config{WorkingDirectory: dir})
	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"path": "a.go", "old_string": "package main", "new_string": "package main",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "must differ")

	after, _ := os.Stat(path)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestEditCreatesNewFileWhenOldStringEmpty(t *testing.T) {
	dir := t.TempDir()

	tt := New(Config{WorkingDirectory: dir})
	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: tool.NewFileReadState()}, map[string]any{
		"path": "sub/new.go", "old_string": "", "new_string": "package sub\n",
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	out, err := os.ReadFile(filepath.Join(dir, "sub", "new.go"))
	require.NoError(t, err)
	assert.Equal(t, "package sub\n", string(out))
}

func TestEditCreateRejectsExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "package main\n")

	tt := New(Config{WorkingDirectory: dir})
	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir}, map[string]any{
		"path": "a.go", "old_string": "", "new_string": "package other\n",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "already exists")
}

func TestEditPreservesCRLFLineEndings(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package main\r\n\r\nfunc foo() {}\r\n")

	tt := New(Config{WorkingDirectory: dir})
	frs := tool.NewFileReadState()
	content, _ := os.ReadFile(path)
	frs.Record(path, content)

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "func foo() {}", "new_string": "func bar() {}",
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	out, _ := os.ReadFile(path)
	assert.Contains(t, string(out), "func bar() {}\r\n")
	assert.NotContains(t, string(out), "\n\n")
}

func TestEditWrongOccurrenceCountFails(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.go", "x\nx\nx\n")

	tt := New(Config{WorkingDirectory: dir})
	frs := tool.NewFileReadState()
	path := tool.Canonicalize(dir, "a.go")
	content, _ := os.ReadFile(path)
	frs.Record(path, content)

	res, err := tt.Call(tool.Context{Ctx: context.Background(), WorkingDirectory: dir, FileReadState: frs}, map[string]any{
		"path": "a.go", "old_string": "x", "new_string": "y", "expected_replacements": float64(1),
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
