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

// Package grep implements the grep tool (spec §4.C): content search with
// files_with_matches / content / count output modes, offset/head_limit
// pagination, context lines, binary-file skipping and a wall-clock
// timeout. Generalizes the teacher's
// pkg/tool/filetool/grep_search.go, which has only one output shape and
// no timeout.
package grep

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// OutputMode selects what Call renders.
type OutputMode string

const (
	ModeFilesWithMatches OutputMode = "files_with_matches"
	ModeContent          OutputMode = "content"
	ModeCount            OutputMode = "count"
)

// Args defines the grep tool's call surface.
type Args struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=Regular expression pattern"`
	Path            string `json:"path,omitempty" jsonschema:"description=File or directory to search,default=."`
	Glob            string `json:"glob,omitempty" jsonschema:"description=Glob filter applied to file names"`
	OutputMode      string `json:"output_mode,omitempty" jsonschema:"description=files_with_matches|content|count,default=files_with_matches"`
	CaseInsensitive bool   `json:"-i,omitempty" jsonschema:"description=Case-insensitive search"`
	ContextLines    int    `json:"-C,omitempty" jsonschema:"description=Lines of context shown before each match; lines after a match are not shown"`
	Offset          int    `json:"offset,omitempty" jsonschema:"description=Number of matches to skip before the first returned result"`
	HeadLimit       int    `json:"head_limit,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// Config parameterizes one Tool instance.
type Config struct {
	WorkingDirectory string
	MaxFileSize      int64         // files larger than this are skipped, default 10MiB
	Timeout          time.Duration // wall-clock budget for one call, default 10s
}

// Tool implements tool.CallableTool.
type Tool struct{ cfg Config }

// New constructs the grep tool.
func New(cfg Config) *Tool {
	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "."
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "grep",
		Description:       "Search file contents with a regular expression. Supports files_with_matches, content and count output modes.",
		InputSchema:       tool.GenerateSchema[Args](),
		ConcurrencySafety: protocol.Safe,
		ReadOnly:          true,
	}
}

type match struct {
	file    string
	line    int
	text    string
	context []string
}

func (t *Tool) Call(tctx tool.Context, args map[string]any) (tool.Result, error) {
	a, err := parseArgs(args)
	if err != nil {
		return tool.Result{}, err
	}

	ctx, cancel := context.WithTimeout(tctx.Ctx, t.cfg.Timeout)
	defer cancel()

	pattern := a.Pattern
	if a.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return tool.Result{}, fmt.Errorf("invalid pattern: %w", err)
	}

	root := tool.Canonicalize(t.cfg.WorkingDirectory, a.Path)
	info, err := os.Stat(root)
	if err != nil {
		return tool.Result{}, fmt.Errorf("failed to stat path: %w", err)
	}

	var files []string
	if info.IsDir() {
		files, err = walk(ctx, root, a.Glob)
		if err != nil {
			return tool.Result{}, err
		}
	} else {
		files = []string{root}
	}

	var matches []match
	var filesMatched []string
	fileHasMatch := map[string]bool{}

	for _, f := range files {
		if ctx.Err() != nil {
			return tool.Result{IsError: true, Text: "grep timed out before finishing"}, nil
		}
		fi, err := os.Stat(f)
		if err != nil || fi.Size() > t.cfg.MaxFileSize {
			continue
		}
		ms, isBinary, err := searchFile(f, re, a.ContextLines)
		if err != nil || isBinary {
			continue
		}
		if len(ms) > 0 {
			rel, _ := filepath.Rel(t.cfg.WorkingDirectory, f)
			if rel == "" {
				rel = f
			}
			if !fileHasMatch[rel] {
				filesMatched = append(filesMatched, rel)
				fileHasMatch[rel] = true
			}
			for _, m := range ms {
				m.file = rel
				matches = append(matches, m)
			}
		}
	}
	sort.Strings(filesMatched)

	return tool.Result{Text: render(OutputMode(defaultMode(a.OutputMode)), matches, filesMatched, a.Offset, a.HeadLimit)}, nil
}

func defaultMode(m string) string {
	if m == "" {
		return string(ModeFilesWithMatches)
	}
	return m
}

func render(mode OutputMode, matches []match, files []string, offset, headLimit int) string {
	switch mode {
	case ModeCount:
		counts := map[string]int{}
		order := []string{}
		for _, m := range matches {
			if counts[m.file] == 0 {
				order = append(order, m.file)
			}
			counts[m.file]++
		}
		sort.Strings(order)
		var b strings.Builder
		for _, f := range paginate(order, offset, headLimit) {
			fmt.Fprintf(&b, "%s:%d\n", f, counts[f])
		}
		return b.String()

	case ModeContent:
		page := paginateMatches(matches, offset, headLimit)
		var b strings.Builder
		for _, m := range page {
			for _, c := range m.context {
				b.WriteString(c)
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s:%d:%s\n", m.file, m.line, m.text)
		}
		return b.String()

	default: // files_with_matches
		var b strings.Builder
		for _, f := range paginate(files, offset, headLimit) {
			b.WriteString(f)
			b.WriteString("\n")
		}
		return b.String()
	}
}

func paginate(items []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func paginateMatches(items []match, offset, limit int) []match {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// searchFile scans one file line by line, detecting binary content by a
// NUL byte in the first 8000 bytes — the same heuristic git and ripgrep
// use, grounded on the spec's "binary detection" requirement rather than
// the teacher (whose grep_search.go has none).
func searchFile(path string, re *regexp.Regexp, contextLines int) ([]match, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	head := make([]byte, 8000)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return nil, true, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, false, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var ms []match
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		var ctxLines []string
		for j := i - contextLines; j < i; j++ {
			if j >= 0 {
				ctxLines = append(ctxLines, lines[j])
			}
		}
		ms = append(ms, match{line: i + 1, text: line, context: ctxLines})
	}
	return ms, false, nil
}

// defaultIgnoreDirs mirrors the set a repo-aware grep always skips; it is
// not user-configurable ignore-file parsing (that belongs to a dedicated
// .gitignore reader this tool doesn't implement), just the fixed set that
// would otherwise make every search slow and noisy.
var defaultIgnoreDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".hg": true, ".svn": true,
}

func walk(ctx context.Context, root, glob string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if defaultIgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, d.Name()); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func parseArgs(m map[string]any) (Args, error) {
	var a Args
	a.Pattern, _ = m["pattern"].(string)
	if a.Pattern == "" {
		return a, fmt.Errorf("pattern is required")
	}
	a.Path, _ = m["path"].(string)
	if a.Path == "" {
		a.Path = "."
	}
	a.Glob, _ = m["glob"].(string)
	a.OutputMode, _ = m["output_mode"].(string)
	a.CaseInsensitive, _ = m["-i"].(bool)
	if v, ok := m["-C"].(float64); ok {
		a.ContextLines = int(v)
	}
	if v, ok := m["offset"].(float64); ok {
		a.Offset = int(v)
	}
	if v, ok := m["head_limit"].(float64); ok {
		a.HeadLimit = int(v)
	}
	return a, nil
}
