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

// Package agent implements the Agent Loop (spec §4.D), compaction and
// fallback (spec §4.E).
package agent

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// TokenCounter gives the compaction threshold estimate an accurate,
// per-model token count. Grounded directly on the teacher's
// pkg/utils.TokenCounter (same tiktoken-go encoding lookup, cl100k_base
// fallback, process-wide encoding cache).
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

var (
	encodingCacheMu sync.RWMutex
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
)

// NewTokenCounter returns a counter for model, falling back to
// cl100k_base when the model has no registered tiktoken encoding.
func NewTokenCounter(model string) (*TokenCounter, error) {
	encodingCacheMu.RLock()
	cached, ok := encodingCache[model]
	encodingCacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get token encoding: %w", err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = enc
	encodingCacheMu.Unlock()
	return &TokenCounter{encoding: enc, model: model}, nil
}

// Count returns the exact token count of text.
func (tc *TokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessage approximates per-message overhead the way OpenAI's
// counting cookbook does: three overhead tokens per message frame, plus
// the encoded role and every text/tool-arg payload in its content.
func (tc *TokenCounter) CountMessage(m protocol.Message) int {
	total := 3 + tc.Count(string(m.Role))
	for _, b := range m.Content {
		switch b.Type {
		case protocol.BlockText, protocol.BlockThinking:
			total += tc.Count(b.Text)
		case protocol.BlockToolUse:
			total += tc.Count(b.ToolName) + tc.Count(string(b.ToolArgsRaw))
		case protocol.BlockToolResult:
			total += tc.Count(b.ResultText) + tc.Count(string(b.ResultJSON))
		}
	}
	return total
}

// CountMessages sums CountMessage over a history plus the fixed
// reply-priming overhead.
func (tc *TokenCounter) CountMessages(messages []protocol.Message) int {
	total := 3
	for _, m := range messages {
		total += tc.CountMessage(m)
	}
	return total
}
