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

// Package sse re-emits one agent.Loop's LoopEvent stream over HTTP
// Server-Sent Events for an external client to consume. The TUI itself
// is explicitly out of scope (spec §1); this is the thin plain-JSON/SSE
// surface the teacher exposes through pkg/server/http.go, minus that
// package's A2A protocol framing — there is no wire protocol to conform
// to here, just LoopEvent serialized as-is.
package sse

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cocode-dev/agentcore/pkg/agent"
	"github.com/cocode-dev/agentcore/pkg/observability"
	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// RunFunc starts one agent turn and streams events into sink until the
// turn finishes or ctx is cancelled. *agent.Loop.Run satisfies this
// signature directly.
type RunFunc func(ctx context.Context, messages []protocol.Message, sink chan<- agent.LoopEvent) (agent.LoopResult, error)

// Config parameterizes the Server.
type Config struct {
	Addr          string
	Run           RunFunc
	Observability *observability.Manager
	Logger        *slog.Logger
}

// Server hosts the SSE turn endpoint plus health and (optional) metrics
// routes, built on chi the way the teacher's pkg/server/http.go wires
// its own HTTP surface.
type Server struct {
	cfg    Config
	logger *slog.Logger
	http   *http.Server
}

// New builds a Server. It does not start listening until Start is
// called.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/turns", s.handleTurn)
	if cfg.Observability != nil && cfg.Observability.Metrics() != nil {
		r.Handle("/metrics", cfg.Observability.Metrics().Handler())
	}

	s.http = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// turnRequest is the POST /v1/turns body: the full message history for
// one turn, already ending with the new user input.
type turnRequest struct {
	Messages []protocol.Message `json:"messages"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := make(chan agent.LoopEvent, 64)
	ctx := r.Context()

	done := make(chan struct{})
	var result agent.LoopResult
	var runErr error
	go func() {
		defer close(done)
		result, runErr = s.cfg.Run(ctx, req.Messages, sink)
		close(sink)
	}()

	for ev := range sink {
		writeEvent(w, "loop_event", ev)
		flusher.Flush()
	}
	<-done

	if runErr != nil {
		writeEvent(w, "error", map[string]string{"message": runErr.Error()})
	} else {
		writeEvent(w, "result", result)
	}
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{"error":"failed to marshal event"}`)
	}
	_, _ = w.Write([]byte("event: " + event + "\n"))
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n\n"))
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sse: listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
