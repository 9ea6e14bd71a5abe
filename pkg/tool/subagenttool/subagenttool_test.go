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

package subagenttool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/provider"
	"github.com/cocode-dev/agentcore/pkg/streaming"
	"github.com/cocode-dev/agentcore/pkg/subagent"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

type fakeAdapter struct{ name string }

func (a *fakeAdapter) Name() string                    { return a.name }
func (a *fakeAdapter) SupportsPreviousResponseID() bool { return false }
func (a *fakeAdapter) ValidateConfig() error            { return nil }
func (a *fakeAdapter) NewParser() streaming.Parser      { return streaming.NewResponsesAPIParser() }
func (a *fakeAdapter) BuildRequestMetadata(provider.Prompt, provider.Context) provider.RequestMetadata {
	return provider.RequestMetadata{}
}
func (a *fakeAdapter) TransformRequest(p provider.Prompt, _ provider.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (a *fakeAdapter) TransformResponseChunk(streaming.RawChunk, provider.Context) ([]streaming.StreamUpdate, error) {
	return nil, nil
}

type fakeTransport struct{}

func (t *fakeTransport) Send(ctx context.Context, a provider.Adapter, raw []byte, meta provider.RequestMetadata, stream bool) (streaming.Source, *streaming.Response, error) {
	return nil, &streaming.Response{
		Content:      []protocol.ContentBlock{protocol.Text("subagent result")},
		FinishReason: protocol.FinishStop,
	}, nil
}

func buildTools(t *testing.T) (*TaskTool, *TaskOutputTool) {
	t.Helper()
	reg := provider.NewRegistry()
	reg.Register(&fakeAdapter{name: "fake-provider"})

	cat, err := tool.NewCatalogue()
	require.NoError(t, err)

	defs := subagent.NewRegistry()
	require.NoError(t, defs.Register(subagent.Definition{
		Name: "researcher", Provider: "fake-provider", Model: "def-model",
	}))

	sched := subagent.New(subagent.Config{
		Registry:             reg,
		Transport:            &fakeTransport{},
		Catalogue:            cat,
		Policy:               tool.Policy{Passthrough: true},
		ProviderDefaultModel: map[string]string{"fake-provider": "def-model"},
		RetentionWindow:      50 * time.Millisecond,
	}, defs)

	taskTool, err := NewTask(Config{Scheduler: sched})
	require.NoError(t, err)
	outputTool, err := NewTaskOutput(Config{Scheduler: sched})
	require.NoError(t, err)
	return taskTool, outputTool
}

func TestTaskToolForegroundRun(t *testing.T) {
	taskTool, _ := buildTools(t)
	result, err := taskTool.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"agent_name": "researcher", "input": "find X",
	})
	require.NoError(t, err)
	assert.Equal(t, "subagent result", result.Text)
	assert.False(t, result.IsError)
}

func TestTaskToolRequiresAgentNameAndInput(t *testing.T) {
	taskTool, _ := buildTools(t)
	result, err := taskTool.Call(tool.Context{Ctx: context.Background()}, map[string]any{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestTaskToolBackgroundThenTaskOutput(t *testing.T) {
	taskTool, outputTool := buildTools(t)

	started, err := taskTool.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"agent_name": "researcher", "input": "find X", "run_in_background": true,
	})
	require.NoError(t, err)
	agentID, _ := started.Structured["agent_id"].(string)
	require.NotEmpty(t, agentID)

	result, err := outputTool.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"agent_id": agentID, "block": true, "timeout_sec": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "subagent result", result.Text)
}

func TestTaskOutputUnknownAgentID(t *testing.T) {
	_, outputTool := buildTools(t)
	result, err := outputTool.Call(tool.Context{Ctx: context.Background()}, map[string]any{
		"agent_id": "does-not-exist",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
