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

// Package extract supplements spec §4.G: before a file reaches the
// chunker, pkg/retrieval/extract inspects its extension and, for
// binary document formats, obtains the file's raw text. Everything
// else is read as UTF-8 directly. Unlike the teacher's BinaryExtractor,
// which delegates PDF/DOCX/XLSX parsing to an out-of-process
// NativeParser, every extractor here parses the format natively in Go.
package extract

import (
	"context"
	"fmt"
	"sort"
)

// Content is one extracted document: its plain-text body plus whatever
// metadata the format exposed.
type Content struct {
	Text          string
	Title         string
	Author        string
	Metadata      map[string]string
	ExtractorName string
}

// Extractor mirrors the teacher's ContentExtractor interface
// (pkg/rag/extractor.go): Name for logging, CanExtract for dispatch,
// Extract for the actual parse, Priority to break CanExtract ties.
type Extractor interface {
	Name() string
	CanExtract(path, mimeType string) bool
	Extract(ctx context.Context, path string) (*Content, error)
	Priority() int
}

// Registry dispatches a file to the highest-priority extractor willing
// to handle it, generalizing the teacher's ExtractorRegistry.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a Registry pre-loaded with the plain-text fallback
// and the PDF/DOCX/XLSX native extractors.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewTextExtractor())
	r.Register(NewPDFExtractor())
	r.Register(NewDocxExtractor())
	r.Register(NewXlsxExtractor())
	return r
}

// Register adds an extractor and re-sorts by descending priority.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// Extract finds the first matching extractor (by priority) for path and
// runs it.
func (r *Registry) Extract(ctx context.Context, path, mimeType string) (*Content, error) {
	for _, e := range r.extractors {
		if !e.CanExtract(path, mimeType) {
			continue
		}
		content, err := e.Extract(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", e.Name(), err)
		}
		if content == nil {
			continue
		}
		content.ExtractorName = e.Name()
		return content, nil
	}
	return nil, fmt.Errorf("no extractor for %s (mime %q)", path, mimeType)
}

// HasExtractorFor reports whether any registered extractor claims path,
// letting a caller skip indexing files with no usable extractor.
func (r *Registry) HasExtractorFor(path, mimeType string) bool {
	for _, e := range r.extractors {
		if e.CanExtract(path, mimeType) {
			return true
		}
	}
	return false
}
