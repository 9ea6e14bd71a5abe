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

package subagent

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
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// fakeAdapter always answers with a single text block, recording the
// resolved model it was asked to use so tests can assert resolution
// order.
type fakeAdapter struct {
	name       string
	seenModels []string
}

func (a *fakeAdapter) Name() string                    { return a.name }
func (a *fakeAdapter) SupportsPreviousResponseID() bool { return false }
func (a *fakeAdapter) ValidateConfig() error            { return nil }
func (a *fakeAdapter) NewParser() streaming.Parser      { return streaming.NewResponsesAPIParser() }
func (a *fakeAdapter) BuildRequestMetadata(provider.Prompt, provider.Context) provider.RequestMetadata {
	return provider.RequestMetadata{}
}
func (a *fakeAdapter) TransformRequest(p provider.Prompt, _ provider.Context) (json.RawMessage, error) {
	a.seenModels = append(a.seenModels, p.Config.Model)
	return json.RawMessage(`{}`), nil
}
func (a *fakeAdapter) TransformResponseChunk(streaming.RawChunk, provider.Context) ([]streaming.StreamUpdate, error) {
	return nil, nil
}

type fakeTransport struct{ adapter *fakeAdapter }

func (t *fakeTransport) Send(ctx context.Context, a provider.Adapter, raw []byte, meta provider.RequestMetadata, stream bool) (streaming.Source, *streaming.Response, error) {
	return nil, &streaming.Response{
		Content:      []protocol.ContentBlock{protocol.Text("ok")},
		FinishReason: protocol.FinishStop,
	}, nil
}

func buildScheduler(t *testing.T) (*Scheduler, *fakeAdapter) {
	t.Helper()
	adapter := &fakeAdapter{name: "fake-provider"}
	reg := provider.NewRegistry()
	reg.Register(adapter)

	cat, err := tool.NewCatalogue()
	require.NoError(t, err)

	sched := New(Config{
		Registry:             reg,
		Transport:            &fakeTransport{adapter: adapter},
		Catalogue:            cat,
		Policy:               tool.Policy{Passthrough: true},
		ProviderDefaultModel: map[string]string{"fake-provider": "provider-default-model"},
		RetentionWindow:      50 * time.Millisecond,
	}, NewRegistry())

	return sched, adapter
}

func TestForegroundRunUsesDefinitionModel(t *testing.T) {
	sched, adapter := buildScheduler(t)
	require.NoError(t, sched.definitions.Register(Definition{
		Name: "researcher", Provider: "fake-provider", Model: "def-model",
	}))

	result, err := sched.Run(context.Background(), "researcher", "find X", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.FinalText)
	require.NotEmpty(t, adapter.seenModels)
	assert.Equal(t, "def-model", adapter.seenModels[0])
}

func TestModelResolutionPriorityParamOverDefinition(t *testing.T) {
	sched, adapter := buildScheduler(t)
	require.NoError(t, sched.definitions.Register(Definition{
		Name: "researcher", Provider: "fake-provider", Model: "def-model",
	}))

	_, err := sched.Run(context.Background(), "researcher", "find X", RunOptions{Model: "param-model"})
	require.NoError(t, err)
	assert.Equal(t, "param-model", adapter.seenModels[len(adapter.seenModels)-1])
}

func TestModelResolutionFallsBackToProviderDefault(t *testing.T) {
	sched, adapter := buildScheduler(t)
	require.NoError(t, sched.definitions.Register(Definition{
		Name: "researcher", Provider: "fake-provider",
	}))

	_, err := sched.Run(context.Background(), "researcher", "find X", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "provider-default-model", adapter.seenModels[len(adapter.seenModels)-1])
}

func TestBackgroundTaskCompletesAndIsAwaitable(t *testing.T) {
	sched, _ := buildScheduler(t)
	require.NoError(t, sched.definitions.Register(Definition{
		Name: "researcher", Provider: "fake-provider", Model: "def-model",
	}))

	taskID, err := sched.StartBackground(context.Background(), "researcher", "find X", RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task, err := sched.TaskOutput(context.Background(), taskID, true, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, task.State)
	require.NotNil(t, task.Result)
	assert.Equal(t, "ok", task.Result.FinalText)
}

func TestTaskOutputUnknownAgentErrors(t *testing.T) {
	sched, _ := buildScheduler(t)
	_, err := sched.TaskOutput(context.Background(), "nonexistent", false, 0)
	assert.Error(t, err)
}

func TestUnknownDefinitionErrors(t *testing.T) {
	sched, _ := buildScheduler(t)
	_, err := sched.Run(context.Background(), "ghost", "hi", RunOptions{})
	assert.Error(t, err)
}

func TestRetentionGCRemovesOldCompletedTasks(t *testing.T) {
	sched, _ := buildScheduler(t)
	require.NoError(t, sched.definitions.Register(Definition{
		Name: "researcher", Provider: "fake-provider", Model: "def-model",
	}))

	taskID, err := sched.StartBackground(context.Background(), "researcher", "find X", RunOptions{})
	require.NoError(t, err)
	_, err = sched.TaskOutput(context.Background(), taskID, true, time.Second)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond) // exceed the 50ms RetentionWindow

	_, err = sched.TaskOutput(context.Background(), taskID, false, 0)
	assert.Error(t, err, "task should have been garbage-collected by the retention sweep")
}

func TestBackgroundToolWhitelistNarrowsScope(t *testing.T) {
	sched, _ := buildScheduler(t)
	def := Definition{
		Name:                    "researcher",
		Provider:                "fake-provider",
		ToolWhitelist:           []string{"a", "b"},
		BackgroundToolWhitelist: []string{"a"},
	}
	assert.ElementsMatch(t, []string{"a", "b"}, def.toolScope(false))
	assert.ElementsMatch(t, []string{"a"}, def.toolScope(true))
}
