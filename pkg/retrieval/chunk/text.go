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

import "strings"

// splitText is the spec §4.G fallback for languages with no tree-sitter
// grammar: a plain line-accumulating splitter with true token-counted
// overlap, generalizing the teacher's OverlappingChunker
// (pkg/context/chunking/overlapping_chunker.go) from a byte-length
// budget to the fixed BPE token budget.
func splitText(content string, opts Options) []Chunk {
	lines := strings.Split(content, "\n")
	if countTokens(content) <= opts.MaxTokens {
		return []Chunk{{Content: content, StartLine: 1, EndLine: len(lines)}}
	}

	var chunks []Chunk
	var cur []string
	curStart := 1
	curTokens := 0

	for i, line := range lines {
		lineNum := i + 1
		lineTokens := countTokens(line)

		if curTokens > 0 && curTokens+lineTokens > opts.MaxTokens {
			chunks = append(chunks, Chunk{
				Content:   strings.Join(cur, "\n"),
				StartLine: curStart,
				EndLine:   lineNum - 1,
			})

			overlapLines, overlapTokens := tailByTokens(cur, opts.OverlapTokens)
			cur = append([]string(nil), overlapLines...)
			curTokens = overlapTokens
			curStart = lineNum - len(overlapLines)
			if curStart < 1 {
				curStart = 1
			}
		}

		cur = append(cur, line)
		curTokens += lineTokens
	}

	if len(cur) > 0 {
		chunks = append(chunks, Chunk{
			Content:   strings.Join(cur, "\n"),
			StartLine: curStart,
			EndLine:   len(lines),
		})
	}
	return chunks
}

// tailByTokens returns the longest suffix of lines whose combined token
// count does not exceed budget, plus that count.
func tailByTokens(lines []string, budget int) ([]string, int) {
	if budget <= 0 {
		return nil, 0
	}
	total := 0
	start := len(lines)
	for start > 0 {
		t := countTokens(lines[start-1])
		if total+t > budget {
			break
		}
		total += t
		start--
	}
	return lines[start:], total
}
