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

// Package subagenttool adapts pkg/subagent.Scheduler into the Task and
// TaskOutput tools spec §4.F names as the model-facing call surface. It
// lives apart from pkg/subagent itself (which has no pkg/tool
// dependency) purely to avoid the import cycle: pkg/subagent already
// imports pkg/tool for Catalogue.Scoped.
package subagenttool

import (
	"fmt"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/subagent"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// TaskArgs defines the Task tool's call surface (spec §4.F
// "Task(agent_name, input, model?, provider?, run_in_background?)").
type TaskArgs struct {
	AgentName       string `json:"agent_name" jsonschema:"required,description=Name of the registered subagent definition to run"`
	Input           string `json:"input" jsonschema:"required,description=Prompt handed to the subagent as its first user message"`
	Model           string `json:"model,omitempty" jsonschema:"description=Override the subagent definition's model"`
	Provider        string `json:"provider,omitempty" jsonschema:"description=Override the subagent definition's provider"`
	RunInBackground bool   `json:"run_in_background,omitempty" jsonschema:"description=Return immediately with an agent_id instead of waiting for completion"`
}

// TaskOutputArgs defines the TaskOutput tool's call surface (spec §4.F
// "TaskOutput(agent_id, block?, timeout?)").
type TaskOutputArgs struct {
	AgentID    string `json:"agent_id" jsonschema:"required,description=id returned by a prior background Task call"`
	Block      bool   `json:"block,omitempty" jsonschema:"description=Wait for completion instead of polling the current status,default=true"`
	TimeoutSec int    `json:"timeout_sec,omitempty" jsonschema:"description=Maximum seconds to block; 0 waits indefinitely"`
}

// Config parameterizes both tools over one live Scheduler. ParentModel
// and ParentProvider feed the final rung of the spec §4.F model
// resolution chain.
type Config struct {
	Scheduler      *subagent.Scheduler
	ParentModel    string
	ParentProvider string
}

// TaskTool implements tool.CallableTool for the Task operation.
type TaskTool struct{ cfg Config }

// NewTask constructs the Task tool.
func NewTask(cfg Config) (*TaskTool, error) {
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("subagenttool: Scheduler is required")
	}
	return &TaskTool{cfg: cfg}, nil
}

func (t *TaskTool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "Task",
		Description:       "Run a named subagent, synchronously or in the background, scoped to its own tool whitelist.",
		InputSchema:       tool.GenerateSchema[TaskArgs](),
		ConcurrencySafety: protocol.Writes,
		ReadOnly:          false,
	}
}

func (t *TaskTool) Call(tctx tool.Context, args map[string]any) (tool.Result, error) {
	a := parseTaskArgs(args)
	if a.AgentName == "" || a.Input == "" {
		return tool.Result{Text: "agent_name and input are required", IsError: true}, nil
	}

	opts := subagent.RunOptions{
		Model:          a.Model,
		Provider:       a.Provider,
		ParentModel:    t.cfg.ParentModel,
		ParentProvider: t.cfg.ParentProvider,
	}

	if a.RunInBackground {
		taskID, err := t.cfg.Scheduler.StartBackground(tctx.Ctx, a.AgentName, a.Input, opts)
		if err != nil {
			return tool.Result{}, err
		}
		return tool.Result{
			Text:       fmt.Sprintf("started background subagent %q, agent_id=%s", a.AgentName, taskID),
			Structured: map[string]any{"agent_id": taskID, "status": string(subagent.StatePending)},
		}, nil
	}

	result, err := t.cfg.Scheduler.Run(tctx.Ctx, a.AgentName, a.Input, opts)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Result{
		Text:       result.FinalText,
		Structured: map[string]any{"turns_completed": result.TurnsCompleted, "finish_reason": string(result.FinishReason)},
	}, nil
}

func parseTaskArgs(raw map[string]any) TaskArgs {
	var a TaskArgs
	a.AgentName, _ = raw["agent_name"].(string)
	a.Input, _ = raw["input"].(string)
	a.Model, _ = raw["model"].(string)
	a.Provider, _ = raw["provider"].(string)
	if b, ok := raw["run_in_background"].(bool); ok {
		a.RunInBackground = b
	}
	return a
}

// TaskOutputTool implements tool.CallableTool for the TaskOutput
// operation.
type TaskOutputTool struct{ cfg Config }

// NewTaskOutput constructs the TaskOutput tool.
func NewTaskOutput(cfg Config) (*TaskOutputTool, error) {
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("subagenttool: Scheduler is required")
	}
	return &TaskOutputTool{cfg: cfg}, nil
}

func (t *TaskOutputTool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{
		Name:              "TaskOutput",
		Description:       "Poll or await the result of a background Task invocation.",
		InputSchema:       tool.GenerateSchema[TaskOutputArgs](),
		ConcurrencySafety: protocol.Safe,
		ReadOnly:          true,
	}
}

func (t *TaskOutputTool) Call(tctx tool.Context, args map[string]any) (tool.Result, error) {
	var a TaskOutputArgs
	a.AgentID, _ = args["agent_id"].(string)
	a.Block = true
	if b, ok := args["block"].(bool); ok {
		a.Block = b
	}
	if ts, ok := args["timeout_sec"].(float64); ok {
		a.TimeoutSec = int(ts)
	}
	if a.AgentID == "" {
		return tool.Result{Text: "agent_id is required", IsError: true}, nil
	}

	timeout := time.Duration(a.TimeoutSec) * time.Second
	task, err := t.cfg.Scheduler.TaskOutput(tctx.Ctx, a.AgentID, a.Block, timeout)
	if err != nil {
		return tool.Result{Text: err.Error(), IsError: true}, nil
	}

	structured := map[string]any{"agent_id": task.ID, "status": string(task.State)}
	text := fmt.Sprintf("agent_id=%s status=%s", task.ID, task.State)
	if task.Result != nil {
		structured["final_text"] = task.Result.FinalText
		text = task.Result.FinalText
	}
	if task.Err != nil {
		structured["error"] = task.Err.Error()
	}
	return tool.Result{Text: text, Structured: structured}, nil
}
