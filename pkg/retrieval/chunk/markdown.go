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

var markdownHeaderRe = regexp.MustCompile(`^(#{1,6})\s+\S`)

type mdSection struct {
	level     int // 0 for the preamble before the first header
	startLine int // 1-indexed
	endLine   int
}

// splitMarkdown implements spec §4.G's "header-hierarchy aware
// splitting; overlap expressed in characters scaled from the token
// budget": sections are delimited by ATX headers of any level, adjacent
// sections are greedily merged up to MaxTokens, and a single section
// that alone exceeds the budget is further divided on paragraph
// boundaries with character-denominated overlap between the pieces —
// generalizing the teacher's SemanticChunker boundary-aware merge
// (pkg/context/chunking/semantic_chunker.go) from function/type units to
// header sections.
func splitMarkdown(content string, opts Options) []Chunk {
	lines := strings.Split(content, "\n")
	sections := markdownSections(lines)

	avgCharsPerToken := charsPerToken(content)
	overlapChars := int(float64(opts.OverlapTokens) * avgCharsPerToken)

	var chunks []Chunk
	i := 0
	for i < len(sections) {
		start := i
		tokens := sectionTokens(lines, sections[i])
		j := i + 1
		for j < len(sections) {
			next := sectionTokens(lines, sections[j])
			if tokens+next > opts.MaxTokens {
				break
			}
			tokens += next
			j++
		}

		if j == start+1 && tokens > opts.MaxTokens {
			// A single section alone exceeds budget; subdivide it.
			chunks = append(chunks, splitOversizedSection(lines, sections[start], opts.MaxTokens, overlapChars)...)
		} else {
			chunks = append(chunks, Chunk{
				Content:   strings.Join(lines[sections[start].startLine-1:sections[j-1].endLine], "\n"),
				StartLine: sections[start].startLine,
				EndLine:   sections[j-1].endLine,
			})
		}
		i = j
	}
	return chunks
}

func markdownSections(lines []string) []mdSection {
	var sections []mdSection
	cur := mdSection{level: 0, startLine: 1}
	for i, line := range lines {
		lineNum := i + 1
		if m := markdownHeaderRe.FindStringSubmatch(line); m != nil {
			cur.endLine = lineNum - 1
			if cur.endLine >= cur.startLine {
				sections = append(sections, cur)
			}
			cur = mdSection{level: len(m[1]), startLine: lineNum}
		}
	}
	cur.endLine = len(lines)
	if cur.endLine >= cur.startLine {
		sections = append(sections, cur)
	}
	if len(sections) == 0 {
		sections = []mdSection{{level: 0, startLine: 1, endLine: len(lines)}}
	}
	return sections
}

func sectionTokens(lines []string, s mdSection) int {
	return countTokens(strings.Join(lines[s.startLine-1:s.endLine], "\n"))
}

// splitOversizedSection divides one too-large section on blank-line
// paragraph boundaries, carrying overlapChars of trailing content
// forward into the next piece.
func splitOversizedSection(lines []string, s mdSection, maxTokens, overlapChars int) []Chunk {
	sectionLines := lines[s.startLine-1 : s.endLine]

	var chunks []Chunk
	var buf strings.Builder
	bufStart := s.startLine
	lastLine := s.startLine

	flush := func(endLine int) {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{Content: buf.String(), StartLine: bufStart, EndLine: endLine})
	}

	for idx, line := range sectionLines {
		lineNum := s.startLine + idx
		buf.WriteString(line)
		buf.WriteString("\n")
		lastLine = lineNum

		isParagraphBreak := strings.TrimSpace(line) == ""
		if isParagraphBreak && countTokens(buf.String()) >= maxTokens {
			full := buf.String()
			flush(lineNum)
			buf.Reset()
			if overlapChars > 0 && overlapChars < len(full) {
				buf.WriteString(full[len(full)-overlapChars:])
			}
			bufStart = lineNum + 1
		}
	}
	flush(lastLine)
	return chunks
}
