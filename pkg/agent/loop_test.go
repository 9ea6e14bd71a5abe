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
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/provider"
	"github.com/cocode-dev/agentcore/pkg/streaming"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// scriptedAdapter replays a fixed sequence of single-shot Responses, one
// per call, so a test can script a tool-call turn followed by a final
// stop turn without a real provider.
type scriptedAdapter struct {
	name      string
	responses []*streaming.Response
	calls     int
}

func (a *scriptedAdapter) Name() string                     { return a.name }
func (a *scriptedAdapter) SupportsPreviousResponseID() bool  { return false }
func (a *scriptedAdapter) ValidateConfig() error             { return nil }
func (a *scriptedAdapter) NewParser() streaming.Parser       { return streaming.NewResponsesAPIParser() }
func (a *scriptedAdapter) BuildRequestMetadata(provider.Prompt, provider.Context) provider.RequestMetadata {
	return provider.RequestMetadata{}
}
func (a *scriptedAdapter) TransformRequest(provider.Prompt, provider.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (a *scriptedAdapter) TransformResponseChunk(streaming.RawChunk, provider.Context) ([]streaming.StreamUpdate, error) {
	return nil, nil
}

func (a *scriptedAdapter) next() *streaming.Response {
	r := a.responses[a.calls]
	a.calls++
	return r
}

// scriptedTransport hands back the adapter's next scripted non-streaming
// Response regardless of the raw request bytes.
type scriptedTransport struct{ adapter *scriptedAdapter }

func (t *scriptedTransport) Send(ctx context.Context, a provider.Adapter, raw []byte, meta provider.RequestMetadata, stream bool) (streaming.Source, *streaming.Response, error) {
	return nil, t.adapter.next(), nil
}

type echoTool struct{}

func (echoTool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{Name: "echo", ConcurrencySafety: protocol.Safe}
}
func (echoTool) Call(ctx tool.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Text: "echoed"}, nil
}

// blockingTool never returns on its own; it waits for release to be
// closed, simulating a tool that does not honor cancellation.
type blockingTool struct{ release chan struct{} }

func (blockingTool) Spec() protocol.ToolSpec {
	return protocol.ToolSpec{Name: "slow", ConcurrencySafety: protocol.Safe}
}
func (b blockingTool) Call(ctx tool.Context, args map[string]any) (tool.Result, error) {
	<-b.release
	return tool.Result{Text: "finished late"}, nil
}

func buildLoop(t *testing.T, adapter *scriptedAdapter) *Loop {
	t.Helper()
	reg := provider.NewRegistry()
	reg.Register(adapter)

	cat, err := tool.NewCatalogue(echoTool{})
	require.NoError(t, err)
	engine := tool.NewEngine(cat, tool.Policy{Passthrough: true}, 4, nil)

	l, err := New(LoopConfig{
		Registry:  reg,
		Transport: &scriptedTransport{adapter: adapter},
		Engine:    engine,
		Fallback:  FallbackConfig{Providers: []string{adapter.name}},
		Stream:    false,
	}, nil)
	require.NoError(t, err)
	return l
}

func TestLoopStopsOnTextOnlyResponse(t *testing.T) {
	adapter := &scriptedAdapter{name: "fake", responses: []*streaming.Response{
		{Content: []protocol.ContentBlock{protocol.Text("hello there")}, FinishReason: protocol.FinishStop},
	}}
	l := buildLoop(t, adapter)

	result, err := l.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.FinalText)
	assert.Equal(t, 1, result.TurnsCompleted)
	assert.Equal(t, protocol.FinishStop, result.FinishReason)
	require.NoError(t, protocol.HistoryWellFormed(result.Messages))
}

func TestLoopDispatchesToolThenFinishes(t *testing.T) {
	adapter := &scriptedAdapter{name: "fake", responses: []*streaming.Response{
		{
			Content:      []protocol.ContentBlock{protocol.ToolUse("call_1", "echo", json.RawMessage(`{}`))},
			FinishReason: protocol.FinishToolCalls,
		},
		{
			Content:      []protocol.ContentBlock{protocol.Text("done")},
			FinishReason: protocol.FinishStop,
		},
	}}
	l := buildLoop(t, adapter)

	sink := make(chan LoopEvent, 32)
	result, err := l.Run(context.Background(), nil, sink)
	require.NoError(t, err)
	close(sink)

	assert.Equal(t, "done", result.FinalText)
	assert.Equal(t, 2, result.TurnsCompleted)
	require.NoError(t, protocol.HistoryWellFormed(result.Messages))

	var sawQueued, sawCompleted bool
	for ev := range sink {
		switch ev.Kind {
		case EventToolUseQueued:
			sawQueued = true
			assert.Equal(t, "echo", ev.ToolName)
		case EventToolUseCompleted:
			sawCompleted = true
			assert.False(t, ev.Result.IsError)
		}
	}
	assert.True(t, sawQueued)
	assert.True(t, sawCompleted)
}

func TestLoopRespectsCancellation(t *testing.T) {
	adapter := &scriptedAdapter{name: "fake", responses: []*streaming.Response{
		{Content: []protocol.ContentBlock{protocol.Text("should not reach")}, FinishReason: protocol.FinishStop},
	}}
	l := buildLoop(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := l.Run(ctx, nil, nil)
	require.Error(t, err)
	assert.Equal(t, protocol.FinishCancelled, result.FinishReason)
}

func TestLoopStopsAtMaxTurnsWithoutError(t *testing.T) {
	responses := make([]*streaming.Response, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, &streaming.Response{
			Content:      []protocol.ContentBlock{protocol.ToolUse("call", "echo", json.RawMessage(`{}`))},
			FinishReason: protocol.FinishToolCalls,
		})
	}
	adapter := &scriptedAdapter{name: "fake", responses: responses}
	l := buildLoop(t, adapter)
	l.cfg.MaxIterations = 3

	result, err := l.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.FinishMaxTurns, result.FinishReason)
	assert.Equal(t, 3, result.TurnsCompleted)
}

func TestDispatchToolsAbandonsAfterGracePeriod(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cat, err := tool.NewCatalogue(echoTool{}, blockingTool{release: release})
	require.NoError(t, err)
	engine := tool.NewEngine(cat, tool.Policy{Passthrough: true}, 4, nil)
	l := &Loop{cfg: LoopConfig{Engine: engine, MaxToolConcurrency: 4}, logger: slog.Default()}

	toolUses := []protocol.ContentBlock{
		protocol.ToolUse("call_slow", "slow", json.RawMessage(`{}`)),
		protocol.ToolUse("call_echo", "echo", json.RawMessage(`{}`)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := l.dispatchTools(ctx, toolUses, nil, 0)
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, elapsed, toolCancelGrace)

	var slowResult, echoResult protocol.ContentBlock
	for _, r := range results {
		switch r.ToolUseRefID {
		case "call_slow":
			slowResult = r
		case "call_echo":
			echoResult = r
		}
	}

	assert.True(t, slowResult.IsError)
	assert.Contains(t, slowResult.ResultText, "tool abandoned")
	assert.False(t, echoResult.IsError)
	assert.Equal(t, "echoed", echoResult.ResultText)
}
