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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxExtractor parses .xlsx files with xuri/excelize, rendering each
// sheet as tab-separated rows prefixed with a sheet-name header so the
// chunker's import-block/section detection has stable anchors.
type XlsxExtractor struct{}

func NewXlsxExtractor() *XlsxExtractor { return &XlsxExtractor{} }

func (e *XlsxExtractor) Name() string { return "xlsx" }

func (e *XlsxExtractor) CanExtract(path, mimeType string) bool {
	if mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func (e *XlsxExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var b strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, nil
	}

	return &Content{
		Text:     text,
		Title:    filepath.Base(path),
		Metadata: map[string]string{"sheets": strings.Join(sheets, ",")},
	}, nil
}

func (e *XlsxExtractor) Priority() int { return 5 }

var _ Extractor = (*XlsxExtractor)(nil)
