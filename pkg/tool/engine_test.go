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

package tool

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

type fakeTool struct {
	spec  protocol.ToolSpec
	delay time.Duration
	onRun func()
}

func (f *fakeTool) Spec() protocol.ToolSpec { return f.spec }
func (f *fakeTool) Call(ctx Context, args map[string]any) (Result, error) {
	if f.onRun != nil {
		f.onRun()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return Result{Text: "ok"}, nil
}

func newCall(id, name string) protocol.ContentBlock {
	return protocol.ToolUse(id, name, json.RawMessage(`{}`))
}

func TestEngineDeniesByPolicy(t *testing.T) {
	cat, err := NewCatalogue(&fakeTool{spec: protocol.ToolSpec{Name: "danger", ConcurrencySafety: protocol.Safe}})
	require.NoError(t, err)

	policy := Policy{ConfigDeny: []Rule{{ToolName: "danger"}}}
	e := NewEngine(cat, policy, 4, nil)

	result := e.Call(context.Background(), newCall("1", "danger"), "", Context{Ctx: context.Background()})
	assert.True(t, result.IsError)
	assert.Contains(t, result.ResultText, "permission denied")
}

func TestEngineUnknownToolIsError(t *testing.T) {
	cat, err := NewCatalogue()
	require.NoError(t, err)
	e := NewEngine(cat, Policy{Passthrough: true}, 4, nil)

	result := e.Call(context.Background(), newCall("1", "missing"), "", Context{Ctx: context.Background()})
	assert.True(t, result.IsError)
	assert.Contains(t, result.ResultText, "unknown tool")
}

func TestEngineWritesSerializePerPath(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	track := func() {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			cur := atomic.LoadInt32(&maxConcurrent)
			if n <= cur || atomic.CompareAndSwapInt32(&maxConcurrent, cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
	}

	cat, err := NewCatalogue(&fakeTool{
		spec:  protocol.ToolSpec{Name: "write", ConcurrencySafety: protocol.Writes},
		onRun: track,
	})
	require.NoError(t, err)
	e := NewEngine(cat, Policy{Passthrough: true}, 8, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.Call(context.Background(), newCall("id", "write"), "same/path.go", Context{Ctx: context.Background()})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestEngineSafeToolsRunConcurrently(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	track := func() {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			cur := atomic.LoadInt32(&maxConcurrent)
			if n <= cur || atomic.CompareAndSwapInt32(&maxConcurrent, cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
	}

	cat, err := NewCatalogue(&fakeTool{
		spec:  protocol.ToolSpec{Name: "read", ConcurrencySafety: protocol.Safe},
		onRun: track,
	})
	require.NoError(t, err)
	e := NewEngine(cat, Policy{Passthrough: true}, 8, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Call(context.Background(), newCall("id", "read"), "", Context{Ctx: context.Background()})
		}()
	}
	wg.Wait()

	assert.Greater(t, int(atomic.LoadInt32(&maxConcurrent)), 1)
}
