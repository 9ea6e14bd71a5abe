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
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// TextExtractor reads a file as plain UTF-8, generalizing the teacher's
// TextExtractor (pkg/rag/extractor.go) unchanged — it is the lowest
// priority extractor so any format-specific extractor can claim a file
// first.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (t *TextExtractor) Name() string { return "text" }

func (t *TextExtractor) CanExtract(path, mimeType string) bool {
	if mimeType != "" {
		return isTextMimeType(mimeType)
	}
	return !looksBinary(path)
}

func (t *TextExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cleaned := cleanUTF8(string(raw))
	if cleaned == "" {
		return nil, nil
	}
	return &Content{
		Text:     cleaned,
		Title:    filepath.Base(path),
		Metadata: map[string]string{},
	}, nil
}

func (t *TextExtractor) Priority() int { return 1 }

func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return false
	}
	return !isTextMimeType(http.DetectContentType(buf[:n]))
}

func isTextMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json" ||
		mimeType == "application/xml" ||
		strings.Contains(mimeType, "javascript")
}

func cleanUTF8(content string) string {
	if utf8.ValidString(content) {
		return content
	}
	cleaned := strings.ToValidUTF8(content, "")
	if float64(len(content)-len(cleaned))/float64(len(content)) > 0.5 {
		return ""
	}
	return cleaned
}

var _ Extractor = (*TextExtractor)(nil)
