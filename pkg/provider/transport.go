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

package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/streaming"
)

// HTTPTransport sends adapter-shaped requests over plain net/http,
// grounded directly on the teacher's pkg/model/anthropic.go SSE read
// loop (bufio line scanning of "data: " frames, [DONE] sentinel) and
// pkg/model/openai.go's equivalent. Per-HTTP-call retry/backoff is
// deliberately NOT duplicated here — agent.Run (spec §4.E Fallback)
// already retries a whole Attempt at the provider-call granularity, so
// adding httpclient.Client's status-code retry ladder underneath it
// would retry the same transient error twice with two independent
// backoff schedules.
type HTTPTransport struct {
	Client  *http.Client
	BaseURL map[string]string // provider name -> base URL override
}

// NewHTTPTransport builds an HTTPTransport with a sane default timeout,
// matching the teacher's own httpclient.New() default (120s).
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: 120 * time.Second}, BaseURL: map[string]string{}}
}

// Send implements agent.Transport.
func (t *HTTPTransport) Send(ctx context.Context, a Adapter, raw []byte, meta RequestMetadata, stream bool) (streaming.Source, *streaming.Response, error) {
	url := t.BaseURL[a.Name()]
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, protocol.New(protocol.KindProviderErrorFatal, "provider.transport", "build_request", "failed to build HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range meta.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(meta.QueryParams) > 0 {
		q := httpReq.URL.Query()
		for k, v := range meta.QueryParams {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, nil, protocol.New(protocol.KindProviderErrorRetry, "provider.transport", "do", "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		kind := protocol.KindProviderErrorFatal
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			kind = protocol.KindProviderErrorRetry
		}
		return nil, nil, protocol.New(kind, "provider.transport", "do", fmt.Sprintf("provider returned HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	if !stream {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, protocol.New(protocol.KindProviderErrorRetry, "provider.transport", "read_body", "failed reading response body", err)
		}
		// Non-streaming single-shot decoding is adapter-specific (each
		// adapter owns its own Response JSON shape); route the raw body
		// through the same TransformResponseChunk path a streaming
		// request would use, as a single synthetic chunk, then collect.
		parser := &syntheticSingleShotParser{adapter: a}
		updates, err := parser.feed(body)
		if err != nil {
			return nil, nil, protocol.New(protocol.KindProviderErrorFatal, "provider.transport", "decode_response", "failed to decode non-streaming response", err)
		}
		return nil, updatesToResponse(updates), nil
	}

	return &sseSource{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil, nil
}

// syntheticSingleShotParser feeds a whole non-streaming response body
// through an Adapter's TransformResponseChunk as if it were one "chunk",
// the way a Responses-API adapter's item-done/response-done events
// already collapse onto a single terminal block set.
type syntheticSingleShotParser struct {
	adapter Adapter
}

func (p *syntheticSingleShotParser) feed(body []byte) ([]streaming.StreamUpdate, error) {
	return p.adapter.TransformResponseChunk(streaming.RawChunk{Event: "message", Data: body}, Context{Ctx: context.Background(), Scratchpad: Scratchpad{}})
}

// updatesToResponse merges completed-block updates into one Response,
// mirroring Aggregator.Collect's block-order-preserving merge.
func updatesToResponse(updates []streaming.StreamUpdate) *streaming.Response {
	resp := &streaming.Response{}
	for _, u := range updates {
		switch u.Kind {
		case streaming.UpdateTextDone:
			resp.Content = append(resp.Content, protocol.Text(u.TextDelta))
		case streaming.UpdateThinkingDone:
			resp.Content = append(resp.Content, protocol.Thinking(u.ThinkingDelta, u.Signature))
		case streaming.UpdateToolCallComplete:
			resp.Content = append(resp.Content, protocol.ToolUse(u.ToolCallID, u.ToolCallName, []byte(u.ToolArgsJSON)))
		case streaming.UpdateDone:
			resp.Usage = u.Usage
			resp.FinishReason = u.FinishReason
		}
	}
	return resp
}

// sseSource scans "event: " and "data: " lines off an HTTP response body
// the way the teacher's anthropic.go/openai.go streaming loops do, yielding
// each data frame as a streaming.RawChunk whose Event is the preceding
// "event: " name ("message" when there is none), and stopping cleanly on a
// "[DONE]" sentinel or EOF.
type sseSource struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

func (s *sseSource) Recv(ctx context.Context) (streaming.RawChunk, bool, error) {
	event := "message"
	for {
		if ctx.Err() != nil {
			return streaming.RawChunk{}, false, ctx.Err()
		}
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.body.Close()
			if err == io.EOF {
				return streaming.RawChunk{}, false, nil
			}
			return streaming.RawChunk{}, false, err
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
			continue
		}
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.body.Close()
			return streaming.RawChunk{}, false, nil
		}
		return streaming.RawChunk{Event: event, Data: []byte(data)}, true, nil
	}
}
