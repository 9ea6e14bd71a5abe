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

// Package edittool implements the edit tool's staged matcher (spec
// §4.C): exact match first, then whitespace-tolerant matching, then an
// optional LLM-assisted correction under a bounded timeout, each stage
// preserving the occurrence-count invariant the exact-match stage
// establishes. Generalizes the teacher's pkg/tool/filetool/search_replace.go
// (exact-match only) and apply_patch.go (context-validated match) into
// one tool with a real fallback ladder.
package edittool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// Args defines the edit tool's call surface.
type Args struct {
	Path                string `json:"path" jsonschema:"required,description=File path to edit, relative to the working directory"`
	OldString           string `json:"old_string" jsonschema:"description=Exact text to find; empty creates a new file from new_string"`
	NewString           string `json:"new_string" jsonschema:"description=Replacement text, or the full content of a newly created file"`
	ExpectedReplacements int   `json:"expected_replacements,omitempty" jsonschema:"description=Number of occurrences that must match (default: 1),default=1,minimum=1"`
}

// Corrector is the optional LLM-assisted correction stage: given the
// file's content and the (old,new) pair that failed exact/flexible
// matching, it proposes a corrected old_string that plausibly matches the
// file's actual content. Callers without an LLM handle wired up pass nil
// and the tool simply skips this stage.
type Corrector interface {
	Correct(ctx context.Context, fileContent, oldString, newString string) (correctedOld string, err error)
}

// Config parameterizes one Tool instance.
type Config struct {
	WorkingDirectory string
	PlanMode         bool // when true, all writes are rejected
	Corrector        Corrector
	CorrectorTimeout time.Duration // default 5s
}

// Tool implements tool.CallableTool.
type Tool struct {
	cfg Config
}

// New constructs the edit tool.
func New(cfg Config) *Tool {
	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "."
	}
	if cfg.CorrectorTimeout <= 0 {
		cfg.CorrectorTimeout = 5 * time.Second
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "edit_file",
		Description:       "Replace exact text in a file. Tries an exact match, then a whitespace-tolerant match, then an LLM-assisted correction before giving up.",
		InputSchema:       toolschema(),
		ConcurrencySafety: protocol.Writes,
		ReadOnly:          false,
	}
}

func (t *Tool) Call(ctx tool.Context, args map[string]any) (tool.Result, error) {
	a, err := parseArgs(args)
	if err != nil {
		return tool.Result{}, err
	}
	if t.cfg.PlanMode {
		return tool.Result{IsError: true, Text: "edit_file is disabled in plan mode"}, nil
	}
	if a.OldString == a.NewString {
		return tool.Result{IsError: true, Text: "old_string and new_string must differ"}, nil
	}

	expected := a.ExpectedReplacements
	if expected <= 0 {
		expected = 1
	}

	path := tool.Canonicalize(t.cfg.WorkingDirectory, a.Path)

	if a.OldString == "" {
		return t.createFile(ctx, path, a)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return tool.Result{}, fmt.Errorf("failed to read %s: %w", a.Path, err)
	}

	if ctx.FileReadState != nil && ctx.FileReadState.Stale(path, raw) {
		return tool.Result{IsError: true, Text: fmt.Sprintf(
			"%s has changed since it was last read in this session; re-read it before editing", a.Path)}, nil
	}

	crlf := strings.Contains(string(raw), "\r\n")
	original := normalizeLF(string(raw))

	newContent, replaced, stage, err := stagedReplace(ctx.Ctx, t.cfg.Corrector, t.cfg.CorrectorTimeout, original, a.OldString, a.NewString, expected)
	if err != nil {
		return tool.Result{IsError: true, Text: err.Error()}, nil
	}

	out := newContent
	if crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return tool.Result{}, fmt.Errorf("failed to write %s: %w", a.Path, err)
	}
	if ctx.FileReadState != nil {
		ctx.FileReadState.Record(path, []byte(out))
	}

	return tool.Result{Text: fmt.Sprintf("replaced %d occurrence(s) in %s (match stage: %s)", replaced, a.Path, stage)}, nil
}

// createFile implements spec §4.C step 2: an empty old_string signals
// "create file". The target must not already exist; parent directories
// are created as needed.
func (t *Tool) createFile(ctx tool.Context, path string, a Args) (tool.Result, error) {
	if _, err := os.Stat(path); err == nil {
		return tool.Result{IsError: true, Text: fmt.Sprintf("%s already exists; old_string must be non-empty to edit an existing file", a.Path)}, nil
	} else if !os.IsNotExist(err) {
		return tool.Result{}, fmt.Errorf("failed to stat %s: %w", a.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tool.Result{}, fmt.Errorf("failed to create parent directories for %s: %w", a.Path, err)
	}
	if err := os.WriteFile(path, []byte(a.NewString), 0o644); err != nil {
		return tool.Result{}, fmt.Errorf("failed to write %s: %w", a.Path, err)
	}
	if ctx.FileReadState != nil {
		ctx.FileReadState.Record(path, []byte(a.NewString))
	}
	return tool.Result{Text: fmt.Sprintf("created %s", a.Path)}, nil
}

// stagedReplace runs the fallback ladder: exact → whitespace-tolerant →
// LLM-assisted. Each stage must find exactly `expected` occurrences or it
// falls through to the next; a stage finding the wrong count is treated
// the same as finding none, per the exact-match stage's own invariant.
func stagedReplace(ctx context.Context, corrector Corrector, timeout time.Duration, content, oldStr, newStr string, expected int) (newContent string, replaced int, stage string, err error) {
	if n := strings.Count(content, oldStr); n == expected {
		return strings.ReplaceAll(content, oldStr, newStr), n, "exact", nil
	}

	if flexOld, n, ok := flexibleMatch(content, oldStr, expected); ok {
		return strings.ReplaceAll(content, flexOld, newStr), n, "flexible", nil
	}

	if corrector != nil {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		corrected, cerr := corrector.Correct(cctx, content, oldStr, newStr)
		if cerr == nil && corrected != "" {
			if n := strings.Count(content, corrected); n == expected {
				return strings.ReplaceAll(content, corrected, newStr), n, "llm_corrected", nil
			}
		}
	}

	n := strings.Count(content, oldStr)
	return "", 0, "", fmt.Errorf("old_string matched %d occurrence(s), expected %d", n, expected)
}

// flexibleMatch looks for a whitespace-collapsed match of oldStr inside
// content: runs of spaces/tabs normalized to one space, and surrounding
// line-leading/trailing whitespace ignored. It returns the *verbatim*
// substring of content that matched, so the caller can still do an exact
// strings.ReplaceAll with it — the occurrence-count invariant from the
// exact stage keeps holding even though the match itself was fuzzy.
func flexibleMatch(content, oldStr string, expected int) (matchedVerbatim string, n int, ok bool) {
	normOld := collapseWhitespace(oldStr)
	if normOld == "" {
		return "", 0, false
	}

	lines := strings.Split(content, "\n")
	oldLineCount := strings.Count(oldStr, "\n") + 1

	var matches []string
	for i := 0; i+oldLineCount <= len(lines); i++ {
		candidate := strings.Join(lines[i:i+oldLineCount], "\n")
		if collapseWhitespace(candidate) == normOld {
			matches = append(matches, candidate)
		}
	}

	// Re-verify the occurrence count against the *verbatim* matched text,
	// not the fuzzy count, to preserve the exact-match stage's invariant.
	if len(matches) == 0 {
		return "", 0, false
	}
	verbatim := matches[0]
	count := strings.Count(content, verbatim)
	if count != expected {
		return "", 0, false
	}
	// all matches must agree on the same verbatim text, else replacing by
	// verbatim substring would touch occurrences the LLM/caller never saw.
	for _, m := range matches {
		if m != verbatim {
			return "", 0, false
		}
	}
	return verbatim, count, true
}

var runsOfSpace = regexp.MustCompile(`[ \t]+`)

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = runsOfSpace.ReplaceAllString(strings.TrimSpace(l), " ")
	}
	return strings.Join(lines, "\n")
}

func normalizeLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func parseArgs(m map[string]any) (Args, error) {
	var a Args
	path, _ := m["path"].(string)
	oldStr, _ := m["old_string"].(string)
	newStr, _ := m["new_string"].(string)
	if path == "" {
		return a, fmt.Errorf("path is required")
	}
	a.Path, a.OldString, a.NewString = path, oldStr, newStr
	a.ExpectedReplacements = 1
	if v, ok := m["expected_replacements"].(float64); ok && v > 0 {
		a.ExpectedReplacements = int(v)
	}
	return a, nil
}

func toolschema() []byte {
	return tool.GenerateSchema[Args]()
}
