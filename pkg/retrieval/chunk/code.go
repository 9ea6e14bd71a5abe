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
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// maxSiblingDescent bounds how many times splitCode walks one level
// deeper into an oversized node's named children before giving up on AST
// boundaries and falling back to line splitting — two levels models the
// spec §4.G fallback chain's Module/Class (depth 0, the file's top-level
// declarations) → Function (depth 1, a too-big declaration's own
// members) → Statement (depth 2, a too-big function's body statements)
// before Line/Character takes over.
const maxSiblingDescent = 2

// treeSitterLanguage resolves a spec §4.G language tag to its
// smacker/go-tree-sitter grammar. Unlisted tags (including real
// languages with no grammar binding here) fall back to splitText.
func treeSitterLanguage(language string) (*sitter.Language, bool) {
	switch strings.ToLower(language) {
	case "go", "golang":
		return golang.GetLanguage(), true
	case "rust", "rs":
		return rust.GetLanguage(), true
	case "python", "py":
		return python.GetLanguage(), true
	case "java":
		return java.GetLanguage(), true
	case "javascript", "js", "jsx":
		return javascript.GetLanguage(), true
	case "typescript", "ts":
		return typescript.GetLanguage(), true
	case "tsx":
		return tsx.GetLanguage(), true
	default:
		return nil, false
	}
}

// splitCode implements spec §4.G's AST-aware splitter: File → Module/Class
// → Function → Statement → Line → Character fallback, with overlap
// disabled throughout — AST boundaries already isolate coherent units,
// and overlap across them would emit syntactically broken fragments.
func splitCode(content string, lang *sitter.Language, opts Options) ([]Chunk, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil {
		return nil, err
	}
	src := []byte(content)
	root := tree.RootNode()

	top := namedChildren(root)
	if len(top) == 0 {
		return splitNodeByLines(src, root, opts.MaxTokens), nil
	}
	return groupNodes(src, top, opts.MaxTokens, 0), nil
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func nodeText(src []byte, n *sitter.Node) string {
	return string(src[n.StartByte():n.EndByte()])
}

func nodeLines(n *sitter.Node) (start, end int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1
}

// groupNodes greedily merges consecutive sibling AST nodes into chunks
// up to MaxTokens. A single node too large to fit alone is recursed into
// (its own named children, one fallback level down) until
// maxSiblingDescent is reached, at which point it is handed to
// splitNodeByLines.
func groupNodes(src []byte, nodes []*sitter.Node, maxTokens, depth int) []Chunk {
	var chunks []Chunk
	i := 0
	for i < len(nodes) {
		tokens := countTokens(nodeText(src, nodes[i]))
		j := i + 1
		for j < len(nodes) {
			t := countTokens(nodeText(src, nodes[j]))
			if tokens+t > maxTokens {
				break
			}
			tokens += t
			j++
		}

		if j == i+1 && tokens > maxTokens {
			sub := namedChildren(nodes[i])
			if len(sub) > 1 && depth < maxSiblingDescent {
				chunks = append(chunks, groupNodes(src, sub, maxTokens, depth+1)...)
			} else {
				chunks = append(chunks, splitNodeByLines(src, nodes[i], maxTokens)...)
			}
		} else {
			start, _ := nodeLines(nodes[i])
			_, end := nodeLines(nodes[j-1])
			chunks = append(chunks, Chunk{
				Content:   string(src[nodes[i].StartByte():nodes[j-1].EndByte()]),
				StartLine: start,
				EndLine:   end,
			})
		}
		i = j
	}
	return chunks
}

// splitNodeByLines is the Line-level fallback: accumulate n's own lines
// up to maxTokens, and for the rare single line that alone exceeds the
// budget (a very long literal or import path), fall through to
// character-level splitting.
func splitNodeByLines(src []byte, n *sitter.Node, maxTokens int) []Chunk {
	startLine, _ := nodeLines(n)
	lines := strings.Split(nodeText(src, n), "\n")

	var chunks []Chunk
	var cur []string
	curStart := startLine
	curTokens := 0

	flush := func(endLine int) {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Content: strings.Join(cur, "\n"), StartLine: curStart, EndLine: endLine})
		cur = nil
		curTokens = 0
	}

	for i, line := range lines {
		lineNum := startLine + i
		lt := countTokens(line)

		if lt > maxTokens {
			flush(lineNum - 1)
			chunks = append(chunks, splitByChars(line, lineNum, maxTokens)...)
			curStart = lineNum + 1
			continue
		}
		if curTokens > 0 && curTokens+lt > maxTokens {
			flush(lineNum - 1)
			curStart = lineNum
		}
		cur = append(cur, line)
		curTokens += lt
	}
	flush(startLine + len(lines) - 1)
	return chunks
}

// splitByChars is the last-resort Character fallback for one
// pathologically long line.
func splitByChars(line string, lineNum, maxTokens int) []Chunk {
	budget := maxTokens * 4
	if budget <= 0 {
		budget = 1600
	}
	var chunks []Chunk
	for start := 0; start < len(line); start += budget {
		end := start + budget
		if end > len(line) {
			end = len(line)
		}
		chunks = append(chunks, Chunk{Content: line[start:end], StartLine: lineNum, EndLine: lineNum})
	}
	return chunks
}
