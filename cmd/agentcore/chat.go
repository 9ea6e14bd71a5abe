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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cocode-dev/agentcore/pkg/agent"
	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// ChatCmd runs a single agent turn against the prompt piped into stdin
// and prints LoopEvents as they arrive, then the final result — the
// direct, non-served mode the teacher exposes as `hector` run against a
// zero-config one-shot prompt (chat_direct.go), minus that file's
// zero-config flag surface.
type ChatCmd struct {
	Prompt string `arg:"" optional:"" help:"User prompt. If omitted, read from stdin."`
}

func (c *ChatCmd) Run(rt *runtimeArgs) error {
	cfg, err := loadConfig(rt.cli)
	if err != nil {
		return err
	}
	logger := initLogging(cfg)

	prompt := c.Prompt
	if prompt == "" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("chat: failed to read stdin: %w", err)
		}
		prompt = string(data)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return &configError{err}
	}
	transport := buildTransport(cfg)

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	catalogue, err := buildCatalogue(cfg, wd, reg, transport, buildPolicy(cfg.Permissions), logger)
	if err != nil {
		return &configError{err}
	}
	engine := buildEngine(cfg, catalogue, logger)

	loop, err := buildLoop(cfg, reg, transport, engine, catalogue.Specs(), logger)
	if err != nil {
		return err
	}

	messages := []protocol.Message{
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{protocol.Text(prompt)}},
	}

	sink := make(chan agent.LoopEvent, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sink {
			printEvent(ev)
		}
	}()

	result, err := loop.Run(rt.ctx, messages, sink)
	close(sink)
	<-done
	if err != nil {
		return err
	}

	fmt.Println("---")
	fmt.Println(result.FinalText)
	fmt.Fprintf(os.Stderr, "turns=%d finish=%s input_tokens=%d output_tokens=%d\n",
		result.TurnsCompleted, result.FinishReason, result.Usage.InputTokens, result.Usage.OutputTokens)
	return nil
}

func printEvent(ev agent.LoopEvent) {
	switch ev.Kind {
	case agent.EventTextDelta:
		fmt.Print(ev.Delta)
	case agent.EventToolUseQueued:
		fmt.Fprintf(os.Stderr, "\n[tool] %s (%s)\n", ev.ToolName, ev.ToolUseID)
	case agent.EventToolUseCompleted:
		fmt.Fprintf(os.Stderr, "[tool done] %s\n", ev.ToolUseID)
	case agent.EventError:
		fmt.Fprintf(os.Stderr, "\n[error] %v\n", ev.Err)
	case agent.EventCancelled:
		fmt.Fprintln(os.Stderr, "\n[cancelled]")
	}
}
