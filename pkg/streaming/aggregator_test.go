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

package streaming

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

type sliceSource struct {
	chunks []RawChunk
	i      int
}

func (s *sliceSource) Recv(ctx context.Context) (RawChunk, bool, error) {
	if s.i >= len(s.chunks) {
		return RawChunk{}, false, nil
	}
	c := s.chunks[s.i]
	s.i++
	return c, true, nil
}

func TestChatCompletionsAggregator_TextConcatenationMatchesFinalBlock(t *testing.T) {
	src := &sliceSource{chunks: []RawChunk{
		{Data: []byte(`{"choices":[{"delta":{"content":"Hel"}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{"content":"lo, "}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{"content":"world"},"finish_reason":null}]}`)},
		{Data: []byte(`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`)},
	}}
	agg := New(NewChatCompletionsParser(), src)
	resp, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	require.Equal(t, protocol.BlockText, resp.Content[0].Type)
	require.Equal(t, "Hello, world", resp.Content[0].Text)
	require.Equal(t, protocol.FinishStop, resp.FinishReason)
	require.Equal(t, int32(5), resp.Usage.InputTokens)
}

func TestChatCompletionsAggregator_ToolCallDisambiguatedByID(t *testing.T) {
	// Two interleaved tool calls; later argument deltas carry only an index, resolved to the id first seen at it.
	src := &sliceSource{chunks: []RawChunk{
		{Data: []byte(`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"grep","arguments":""}}]}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"edit","arguments":""}}]}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":1}"}}]}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"arguments":"{\"b\":2}"}}]}}]}`)},
		{Data: []byte(`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`)},
	}}
	agg := New(NewChatCompletionsParser(), src)
	resp, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Content, 2)
	require.Equal(t, "call_a", resp.Content[0].ToolUseID)
	require.JSONEq(t, `{"a":1}`, string(resp.Content[0].ToolArgsRaw))
	require.Equal(t, "call_b", resp.Content[1].ToolUseID)
	require.JSONEq(t, `{"b":2}`, string(resp.Content[1].ToolArgsRaw))
	require.Equal(t, protocol.FinishToolCalls, resp.FinishReason)
}

func TestResponsesAPIAggregator_MessageAndFunctionCall(t *testing.T) {
	src := &sliceSource{chunks: []RawChunk{
		{Event: "response.created", Data: []byte(`{"response":{"id":"resp_1"}}`)},
		{Event: "response.output_text.delta", Data: []byte(`{"item_id":"item_1","delta":"Hi"}`)},
		{Event: "response.output_item.done", Data: []byte(`{"output_index":0,"item_id":"item_1","item":{"type":"message","content":[{"text":"Hi"}]}}`)},
		{Event: "response.function_call_arguments.delta", Data: []byte(`{"item_id":"item_2","delta":"{\"q\":"}`)},
		{Event: "response.function_call_arguments.delta", Data: []byte(`{"item_id":"item_2","delta":"1}"}`)},
		{Event: "response.output_item.done", Data: []byte(`{"output_index":1,"item_id":"item_2","item":{"type":"function_call","id":"item_2","name":"search"}}`)},
		{Event: "response.completed", Data: []byte(`{"response":{"id":"resp_1","status":"completed","usage":{"input_tokens":10,"output_tokens":4}}}`)},
	}}
	agg := New(NewResponsesAPIParser(), src)
	resp, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Content, 2)
	require.Equal(t, protocol.BlockText, resp.Content[0].Type)
	require.Equal(t, "Hi", resp.Content[0].Text)
	require.Equal(t, protocol.BlockToolUse, resp.Content[1].Type)
	require.Equal(t, "search", resp.Content[1].ToolName)
	require.JSONEq(t, `{"q":1}`, string(resp.Content[1].ToolArgsRaw))
	require.Equal(t, int32(10), resp.Usage.InputTokens)
}

func TestAggregator_CancellationReturnsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &sliceSource{chunks: []RawChunk{{Data: []byte(`{"choices":[{"delta":{"content":"x"}}]}`)}}}
	agg := New(NewChatCompletionsParser(), src)
	qr, ok := agg.Next(ctx)
	require.True(t, ok)
	require.Equal(t, ResultError, qr.Kind)
	require.ErrorIs(t, qr.Err, context.Canceled)
}

func TestSingleShotAggregator(t *testing.T) {
	resp := &Response{
		Content:      []protocol.ContentBlock{protocol.Text("4")},
		Usage:        protocol.TokenUsage{InputTokens: 1, OutputTokens: 1},
		FinishReason: protocol.FinishStop,
	}
	agg := NewSingleShot(resp)
	out, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Content, 1)
	require.Equal(t, "4", out.Content[0].Text)
}
