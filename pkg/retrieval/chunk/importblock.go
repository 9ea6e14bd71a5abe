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

package chunk

import (
	"regexp"
	"strings"
)

// importLineFamilies maps a language tag to the regex family spec §4.G
// names for import-block detection: "use/mod/extern/attrs" for Rust,
// "import/from" for Python, "import/export/require" for the
// JavaScript/TypeScript family, "package/import" for Go and Java.
var importLineFamilies = map[string]*regexp.Regexp{
	"rust":       regexp.MustCompile(`^\s*(use\s+|mod\s+|extern\s+crate\s+|#!?\[)`),
	"python":     regexp.MustCompile(`^\s*(import\s+|from\s+\S+\s+import\b)`),
	"javascript": regexp.MustCompile(`^\s*(import\s+|export\s+(\*|\{|default)|.*\brequire\(['"])`),
	"js":         regexp.MustCompile(`^\s*(import\s+|export\s+(\*|\{|default)|.*\brequire\(['"])`),
	"typescript": regexp.MustCompile(`^\s*(import\s+|export\s+(\*|\{|type|default))`),
	"ts":         regexp.MustCompile(`^\s*(import\s+|export\s+(\*|\{|type|default))`),
	"tsx":        regexp.MustCompile(`^\s*(import\s+|export\s+(\*|\{|type|default))`),
	"go":         regexp.MustCompile(`^\s*(package\s+\w+|import\s+.*|[()]|\w*\s*"[^"]*")\s*$`),
	"java":       regexp.MustCompile(`^\s*(package\s+|import\s+)`),
}

// detectImportBlock scans from the start of content for a contiguous run
// of import-family lines (blank lines and single-line comments between
// them are tolerated and included), returning it as a leading overview
// Chunk plus the remaining content and the line count to offset every
// subsequent chunk's StartLine/EndLine by. If content has no matching
// family, or the run is empty, importChunk is nil and rest is content
// unchanged.
func detectImportBlock(content, language string) (importChunk *Chunk, rest string, lineOffset int) {
	family, ok := importLineFamilies[strings.ToLower(language)]
	if !ok {
		return nil, content, 0
	}

	lines := strings.Split(content, "\n")
	matchedUpTo := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isLineComment(trimmed, language) {
			continue
		}
		if family.MatchString(line) {
			matchedUpTo = i
			continue
		}
		break
	}
	if matchedUpTo < 0 {
		return nil, content, 0
	}

	blockLines := lines[:matchedUpTo+1]
	restLines := lines[matchedUpTo+1:]

	block := strings.Join(blockLines, "\n")
	if strings.TrimSpace(block) == "" {
		return nil, content, 0
	}

	chunk := &Chunk{
		Content:    block,
		StartLine:  1,
		EndLine:    len(blockLines),
		IsOverview: true,
	}
	return chunk, strings.Join(restLines, "\n"), len(blockLines)
}

func isLineComment(trimmed, language string) bool {
	switch strings.ToLower(language) {
	case "python":
		return strings.HasPrefix(trimmed, "#")
	default:
		return strings.HasPrefix(trimmed, "//")
	}
}
