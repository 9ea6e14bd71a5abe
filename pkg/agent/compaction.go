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

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Default compaction constants, carried over verbatim from the teacher's
// pkg/memory/summary_buffer.go (same budget/threshold/target/minimum
// tuning, generalized from a2a.Message/agent.Event onto protocol.Message).
const (
	DefaultCompactionBudget    = 8000
	DefaultCompactionThreshold = 0.85
	DefaultCompactionTarget    = 0.7
	DefaultMinMessagesBefore   = 20
	DefaultMinMessagesToKeep   = 10

	// CompactionSummaryPrefix tags a message produced by compaction so a
	// later compaction pass can find the last checkpoint and resume from
	// there instead of re-summarizing already-summarized history.
	CompactionSummaryPrefix = "[compacted summary] "
)

// Summarizer performs the actual history-to-prose reduction; callers
// supply one backed by an LLM call using the same provider/model as the
// turn it's compacting, or a fast/cheap model dedicated to summarization.
type Summarizer interface {
	Summarize(ctx context.Context, messages []protocol.Message) (string, error)
}

// CompactionConfig parameterizes one Compactor.
type CompactionConfig struct {
	Budget     int
	Threshold  float64
	Target     float64
	Model      string
	Summarizer Summarizer
}

// Compactor applies the token-threshold-triggered history summarization
// spec §4.E requires. It is idempotent: running it twice on an
// already-compacted history is a no-op, because checkpointIndex only ever
// looks forward from the last summary message.
type Compactor struct {
	cfg     CompactionConfig
	counter *TokenCounter
	logger  *slog.Logger
}

// NewCompactor builds a Compactor, defaulting unset config fields to the
// teacher's own summary_buffer.go constants.
func NewCompactor(cfg CompactionConfig, logger *slog.Logger) (*Compactor, error) {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultCompactionBudget
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultCompactionThreshold
	}
	if cfg.Target <= 0 || cfg.Target > 1 {
		cfg.Target = DefaultCompactionTarget
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("compaction: model is required for token counting")
	}
	counter, err := NewTokenCounter(cfg.Model)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{cfg: cfg, counter: counter, logger: logger}, nil
}

// ShouldCompact reports whether messages' token count exceeds
// budget*threshold and there are at least DefaultMinMessagesBefore
// messages since the last checkpoint.
func (c *Compactor) ShouldCompact(messages []protocol.Message) bool {
	tail := c.sinceLastCheckpoint(messages)
	if len(tail) < DefaultMinMessagesBefore {
		return false
	}
	current := c.counter.CountMessages(tail)
	return current > int(float64(c.cfg.Budget)*c.cfg.Threshold)
}

// Compact summarizes the oldest portion of messages (since the last
// checkpoint) down to a single summary message, keeping at least
// DefaultMinMessagesToKeep of the most recent messages untouched. It
// returns the new, shorter history; if nothing needed summarizing it
// returns messages unchanged.
func (c *Compactor) Compact(ctx context.Context, messages []protocol.Message) ([]protocol.Message, error) {
	checkpoint := c.checkpointIndex(messages)
	head := messages[:checkpoint]
	tail := messages[checkpoint:]

	targetTokens := int(float64(c.cfg.Budget) * c.cfg.Target)
	recent := c.selectRecentWithMinimum(tail, targetTokens)
	old := tail[:len(tail)-len(recent)]

	if len(old) == 0 {
		return messages, nil
	}
	if c.cfg.Summarizer == nil {
		return messages, fmt.Errorf("compaction: history exceeds budget but no Summarizer configured")
	}

	// HistoryWellFormed must still hold after compaction: never cut the
	// old/recent boundary in the middle of a tool_use/tool_result pair.
	old, recent = rebalanceOnToolBoundary(old, recent)
	if len(old) == 0 {
		return messages, nil
	}

	summary, err := c.cfg.Summarizer.Summarize(ctx, old)
	if err != nil {
		return nil, fmt.Errorf("compaction: summarize failed: %w", err)
	}

	summaryMsg := protocol.Message{
		Role:    protocol.RoleUser,
		Content: []protocol.ContentBlock{protocol.Text(CompactionSummaryPrefix + summary)},
	}

	result := make([]protocol.Message, 0, len(head)+1+len(recent))
	result = append(result, head...)
	result = append(result, summaryMsg)
	result = append(result, recent...)

	c.logger.Info("compacted conversation history",
		"summarized_messages", len(old), "kept_recent", len(recent))
	return result, nil
}

// checkpointIndex returns the index of the last compaction summary
// message, or 0 if there is none — the point compaction always resumes
// from, which is what makes repeated calls idempotent.
func (c *Compactor) checkpointIndex(messages []protocol.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if isSummaryMessage(messages[i]) {
			return i
		}
	}
	return 0
}

func (c *Compactor) sinceLastCheckpoint(messages []protocol.Message) []protocol.Message {
	return messages[c.checkpointIndex(messages):]
}

func isSummaryMessage(m protocol.Message) bool {
	for _, b := range m.Content {
		if b.Type == protocol.BlockText && len(b.Text) >= len(CompactionSummaryPrefix) && b.Text[:len(CompactionSummaryPrefix)] == CompactionSummaryPrefix {
			return true
		}
	}
	return false
}

// selectRecentWithMinimum walks messages backwards accumulating tokens
// until targetTokens is hit, but never returns fewer than
// DefaultMinMessagesToKeep messages when there are that many available.
func (c *Compactor) selectRecentWithMinimum(messages []protocol.Message, targetTokens int) []protocol.Message {
	if len(messages) <= DefaultMinMessagesToKeep {
		return messages
	}

	selected := 0
	tokens := 0
	for i := len(messages) - 1; i >= 0; i-- {
		t := c.counter.CountMessage(messages[i])
		if tokens+t > targetTokens && selected >= DefaultMinMessagesToKeep {
			break
		}
		tokens += t
		selected++
	}
	return messages[len(messages)-selected:]
}

// rebalanceOnToolBoundary moves the old/recent split later (moving
// messages from the front of recent into old) until it no longer
// separates a tool_use block from its tool_result, preserving
// protocol.HistoryWellFormed across the cut.
func rebalanceOnToolBoundary(old, recent []protocol.Message) ([]protocol.Message, []protocol.Message) {
	pending := map[string]bool{}
	for _, m := range old {
		for _, b := range m.Content {
			if b.Type == protocol.BlockToolUse {
				pending[b.ToolUseID] = true
			}
			if b.Type == protocol.BlockToolResult {
				delete(pending, b.ToolUseRefID)
			}
		}
	}
	for len(pending) > 0 && len(recent) > 0 {
		m := recent[0]
		recent = recent[1:]
		old = append(old, m)
		for _, b := range m.Content {
			if b.Type == protocol.BlockToolResult {
				delete(pending, b.ToolUseRefID)
			}
		}
	}
	return old, recent
}
