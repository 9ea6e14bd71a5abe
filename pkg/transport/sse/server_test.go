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

package sse

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocode-dev/agentcore/pkg/agent"
	"github.com/cocode-dev/agentcore/pkg/protocol"
)

func TestHandleHealth(t *testing.T) {
	s := New(Config{Run: func(ctx context.Context, messages []protocol.Message, sink chan<- agent.LoopEvent) (agent.LoopResult, error) {
		return agent.LoopResult{}, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleTurnStreamsEventsThenResult(t *testing.T) {
	s := New(Config{Run: func(ctx context.Context, messages []protocol.Message, sink chan<- agent.LoopEvent) (agent.LoopResult, error) {
		sink <- agent.LoopEvent{Kind: agent.EventTurnStarted, Iteration: 1}
		sink <- agent.LoopEvent{Kind: agent.EventTextDelta, Delta: "hi"}
		return agent.LoopResult{FinalText: "hi", TurnsCompleted: 1}, nil
	}})

	body := bytes.NewBufferString(`{"messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/turns", body)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.True(t, strings.Contains(out, "event: loop_event"))
	assert.True(t, strings.Contains(out, "event: result"))
	assert.True(t, strings.Contains(out, `"final_text"`) || strings.Contains(out, "FinalText") || strings.Contains(out, "hi"))
}

func TestHandleTurnSurfacesRunError(t *testing.T) {
	s := New(Config{Run: func(ctx context.Context, messages []protocol.Message, sink chan<- agent.LoopEvent) (agent.LoopResult, error) {
		return agent.LoopResult{}, assertErr
	}})

	body := bytes.NewBufferString(`{"messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/turns", body)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "event: error")
}

func TestHandleTurnRejectsInvalidJSON(t *testing.T) {
	s := New(Config{Run: func(ctx context.Context, messages []protocol.Message, sink chan<- agent.LoopEvent) (agent.LoopResult, error) {
		return agent.LoopResult{}, nil
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

var assertErr = &runError{"simulated provider failure"}

type runError struct{ msg string }

func (e *runError) Error() string { return e.msg }
