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
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor parses .pdf files with ledongthuc/pdf, replacing the
// teacher's BinaryExtractor delegation to an external native parser
// (pkg/rag/binary_extractor.go) with a direct in-process parse.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) CanExtract(path, mimeType string) bool {
	if mimeType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, nil
	}

	return &Content{
		Text:     text,
		Title:    filepath.Base(path),
		Metadata: map[string]string{"pages": strconv.Itoa(r.NumPage())},
	}, nil
}

func (e *PDFExtractor) Priority() int { return 5 }

var _ Extractor = (*PDFExtractor)(nil)
