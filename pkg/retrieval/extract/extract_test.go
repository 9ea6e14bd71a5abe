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

package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTextExtractorReadsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	e := NewTextExtractor()
	assert.True(t, e.CanExtract(path, ""))

	content, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "hello world\n", content.Text)
	assert.Equal(t, "notes.txt", content.Title)
}

func TestTextExtractorMimeTypeDispatch(t *testing.T) {
	e := NewTextExtractor()
	assert.True(t, e.CanExtract("x", "text/plain"))
	assert.True(t, e.CanExtract("x", "application/json"))
	assert.False(t, e.CanExtract("x", "application/pdf"))
}

func TestExtensionDispatch(t *testing.T) {
	pdf := NewPDFExtractor()
	assert.True(t, pdf.CanExtract("report.PDF", ""))
	assert.False(t, pdf.CanExtract("report.docx", ""))

	docxE := NewDocxExtractor()
	assert.True(t, docxE.CanExtract("letter.docx", ""))
	assert.False(t, docxE.CanExtract("letter.pdf", ""))

	xlsxE := NewXlsxExtractor()
	assert.True(t, xlsxE.CanExtract("sheet.xlsx", ""))
	assert.False(t, xlsxE.CanExtract("sheet.csv", ""))
}

func TestXlsxExtractorReadsRealWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))

	e := NewXlsxExtractor()
	content, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Contains(t, content.Text, "Sheet1")
	assert.Contains(t, content.Text, "widget")
	assert.Contains(t, content.Text, "42")
}

func TestRegistryDispatchesByPriority(t *testing.T) {
	reg := NewRegistry()
	assert.True(t, reg.HasExtractorFor("a.txt", ""))
	assert.True(t, reg.HasExtractorFor("a.xlsx", ""))

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain content"), 0o644))

	content, err := reg.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "text", content.ExtractorName)
	assert.Equal(t, "plain content", content.Text)
}

func TestRegistryNoExtractorFound(t *testing.T) {
	reg := &Registry{}
	_, err := reg.Extract(context.Background(), "nope.bin", "application/octet-stream")
	assert.Error(t, err)
}

type stubExtractor struct {
	name     string
	priority int
	content  *Content
}

func (s stubExtractor) Name() string                             { return s.name }
func (s stubExtractor) CanExtract(path, mimeType string) bool    { return true }
func (s stubExtractor) Priority() int                            { return s.priority }
func (s stubExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	return s.content, nil
}

func TestRegistryPrefersHigherPriority(t *testing.T) {
	reg := &Registry{}
	reg.Register(stubExtractor{name: "low", priority: 1, content: &Content{Text: "low"}})
	reg.Register(stubExtractor{name: "high", priority: 10, content: &Content{Text: "high"}})

	content, err := reg.Extract(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.Equal(t, "high", content.Text)
	assert.Equal(t, "high", content.ExtractorName)
}
