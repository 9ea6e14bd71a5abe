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
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DocxExtractor parses .docx files with nguyenthenguyen/docx, the other
// half of the teacher's BinaryExtractor delegation replaced with a
// native Go parse.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor { return &DocxExtractor{} }

func (e *DocxExtractor) Name() string { return "docx" }

func (e *DocxExtractor) CanExtract(path, mimeType string) bool {
	if mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

func (e *DocxExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text := stripDocxMarkup(r.Editable().GetContent())
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return &Content{
		Text:     text,
		Title:    filepath.Base(path),
		Metadata: map[string]string{},
	}, nil
}

func (e *DocxExtractor) Priority() int { return 5 }

var docxTagRe = regexp.MustCompile(`<[^>]+>`)

// stripDocxMarkup strips the XML tags GetContent leaves embedded in the
// run text, down to plain readable prose.
func stripDocxMarkup(raw string) string {
	return strings.TrimSpace(docxTagRe.ReplaceAllString(raw, ""))
}

var _ Extractor = (*DocxExtractor)(nil)
