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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyContent(t *testing.T) {
	chunks, err := Split("   \n\t\n", Options{Language: "go"})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestSplitSmallContentIsOneChunk(t *testing.T) {
	chunks, err := Split("fmt.Println(\"hi\")\n", Options{Language: "go", MaxTokens: 400})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].IsOverview)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestSplitGoDetectsImportBlockAsOverview(t *testing.T) {
	src := strings.Join([]string{
		`package main`,
		``,
		`import (`,
		`	"fmt"`,
		`	"os"`,
		`)`,
		``,
		`func main() {`,
		`	fmt.Println(os.Args)`,
		`}`,
	}, "\n")

	chunks, err := Split(src, Options{Language: "go", MaxTokens: 400})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	overview := chunks[0]
	assert.True(t, overview.IsOverview)
	assert.Equal(t, 1, overview.StartLine)
	assert.Contains(t, overview.Content, "package main")
	assert.Contains(t, overview.Content, `"os"`)
	assert.NotContains(t, overview.Content, "func main")

	for _, c := range chunks[1:] {
		assert.False(t, c.IsOverview)
		assert.GreaterOrEqual(t, c.StartLine, overview.EndLine+1)
	}
}

func TestSplitGoFunctionsGroupUnderTokenBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("func f")
		b.WriteString(string(rune('A' + i)))
		b.WriteString("() int {\n\treturn 1\n}\n\n")
	}

	chunks, err := Split(b.String(), Options{Language: "go", MaxTokens: 400})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "func fA")
	assert.Contains(t, chunks[0].Content, "func fE")
}

func TestSplitGoOversizedFunctionFallsBackToLines(t *testing.T) {
	var body strings.Builder
	body.WriteString("func big() {\n")
	for i := 0; i < 200; i++ {
		body.WriteString("\tx := 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1\n")
	}
	body.WriteString("}\n")

	chunks, err := Split(body.String(), Options{Language: "go", MaxTokens: 100})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "an oversized single function must be subdivided")

	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].StartLine, chunks[i-1].EndLine)
	}
}

func TestSplitMarkdownHeaderSections(t *testing.T) {
	src := strings.Join([]string{
		`# Title`,
		``,
		`intro text`,
		``,
		`## Section A`,
		``,
		`content a`,
		``,
		`## Section B`,
		``,
		`content b`,
	}, "\n")

	chunks, err := Split(src, Options{Language: "markdown", MaxTokens: 400})
	require.NoError(t, err)
	require.Len(t, chunks, 1, "small document merges into a single chunk under budget")
	assert.Contains(t, chunks[0].Content, "Section A")
	assert.Contains(t, chunks[0].Content, "Section B")
}

func TestSplitMarkdownOversizedSectionSplitsWithOverlap(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Big\n\n")
	for i := 0; i < 300; i++ {
		b.WriteString("paragraph sentence number ")
		b.WriteString(strings.Repeat("word ", 5))
		b.WriteString("\n\n")
	}

	chunks, err := Split(b.String(), Options{Language: "markdown", MaxTokens: 80, OverlapTokens: 20})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.NotEmpty(t, chunks[i].Content)
	}
}

func TestSplitPlainTextOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("this is line number with some words in it\n")
	}

	chunks, err := Split(b.String(), Options{Language: "text", MaxTokens: 50, OverlapTokens: 10})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].StartLine, chunks[i-1].EndLine+1)
	}
}

func TestSplitUnknownLanguageUsesPlainText(t *testing.T) {
	chunks, err := Split("some\ncontent\nhere\n", Options{Language: "cobol", MaxTokens: 400})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestNormalizedOptionsDefaults(t *testing.T) {
	o := Options{}.normalized()
	assert.Equal(t, 400, o.MaxTokens)
	assert.Equal(t, 0, o.OverlapTokens)

	o = Options{MaxTokens: 100, OverlapTokens: 100}.normalized()
	assert.Equal(t, 25, o.OverlapTokens)
}

func TestCountTokensAndCharsPerToken(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	tokens := countTokens(text)
	assert.Greater(t, tokens, 0)
	assert.Less(t, tokens, len(text))

	ratio := charsPerToken(text)
	assert.Greater(t, ratio, 0.0)
}

func TestDetectImportBlockPython(t *testing.T) {
	src := strings.Join([]string{
		`import os`,
		`from collections import OrderedDict`,
		``,
		`def main():`,
		`    pass`,
	}, "\n")

	chunk, rest, offset := detectImportBlock(src, "python")
	require.NotNil(t, chunk)
	assert.True(t, chunk.IsOverview)
	assert.Equal(t, 2, offset)
	assert.Contains(t, chunk.Content, "OrderedDict")
	assert.NotContains(t, rest, "import os")
}

func TestDetectImportBlockNoneFound(t *testing.T) {
	chunk, rest, offset := detectImportBlock("def main():\n    pass\n", "python")
	assert.Nil(t, chunk)
	assert.Equal(t, 0, offset)
	assert.Contains(t, rest, "def main")
}

func TestTreeSitterLanguageLookup(t *testing.T) {
	if _, ok := treeSitterLanguage("go"); !ok {
		t.Fatal("expected go to resolve to a grammar")
	}
	if _, ok := treeSitterLanguage("nonexistent-lang"); ok {
		t.Fatal("expected unknown language to have no grammar")
	}
}
