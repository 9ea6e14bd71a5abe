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

// Package chunk implements the Retrieval Chunker (spec §4.G): splitting
// file content into ordered, token-bounded chunks for indexing and
// search. Three splitter families generalize the teacher's
// pkg/context/chunking package (OverlappingChunker, SemanticChunker)
// past their byte-length budgets onto the BPE-token budgets spec §4.G
// requires, and onto real tree-sitter ASTs in place of the teacher's
// regex-derived function/type metadata.
package chunk

import (
	"strings"
)

// Chunk is one output unit: content, its 1-indexed inclusive line range,
// and whether it is the file's leading overview chunk (the detected
// import block, when one exists).
type Chunk struct {
	Content    string
	StartLine  int
	EndLine    int
	IsOverview bool
}

// Options parameterizes one Split call.
type Options struct {
	// Language is a short tag ("go", "python", "rust", "java",
	// "javascript", "typescript", "tsx", "markdown", or any other value,
	// which is treated as plain text).
	Language string

	MaxTokens     int
	OverlapTokens int
}

func (o Options) normalized() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 400
	}
	if o.OverlapTokens < 0 {
		o.OverlapTokens = 0
	}
	if o.OverlapTokens >= o.MaxTokens {
		o.OverlapTokens = o.MaxTokens / 4
	}
	return o
}

// Split runs the full spec §4.G pipeline: import-block detection, then
// the splitter appropriate to Language — markdown's header-aware
// splitter, a tree-sitter AST splitter for languages with a grammar, or
// the plain-text token-overlap splitter for everything else.
func Split(content string, opts Options) ([]Chunk, error) {
	opts = opts.normalized()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	if isMarkdown(opts.Language) {
		return splitMarkdown(content, opts), nil
	}

	importChunk, rest, lineOffset := detectImportBlock(content, opts.Language)

	var body []Chunk
	var err error
	if lang, ok := treeSitterLanguage(opts.Language); ok {
		body, err = splitCode(rest, lang, opts)
	} else {
		body = splitText(rest, opts)
	}
	if err != nil {
		return nil, err
	}

	for i := range body {
		body[i].StartLine += lineOffset
		body[i].EndLine += lineOffset
	}

	if importChunk == nil {
		return body, nil
	}
	return append([]Chunk{*importChunk}, body...), nil
}

func isMarkdown(language string) bool {
	switch strings.ToLower(language) {
	case "markdown", "md":
		return true
	default:
		return false
	}
}
