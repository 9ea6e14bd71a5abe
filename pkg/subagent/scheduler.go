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
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cocode-dev/agentcore/pkg/agent"
	"github.com/cocode-dev/agentcore/pkg/protocol"
	"github.com/cocode-dev/agentcore/pkg/provider"
	"github.com/cocode-dev/agentcore/pkg/tool"
)

// State is a background task's lifecycle position (spec §4.F store
// lifecycle). Deliberately a plain string type rather than an enum
// borrowed from a wire protocol package — DESIGN.md records the decision
// not to carry an A2A dependency for this.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Task is one background subagent invocation's bookkeeping entry: status,
// join handle, and final result, mirroring the teacher's pb.Task /
// task_service.go shape without its A2A transport fields.
type Task struct {
	mu sync.Mutex

	ID        string
	AgentName string
	State     State

	Result *agent.LoopResult
	Err    error

	createdAt   time.Time
	completedAt time.Time
	finished    bool

	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Task) snapshot() Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Task{
		ID: t.ID, AgentName: t.AgentName, State: t.State,
		Result: t.Result, Err: t.Err,
		createdAt: t.createdAt, completedAt: t.completedAt,
	}
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.State = s
	t.mu.Unlock()
}

// finish transitions the task to a terminal state exactly once; a second
// call (e.g. CancelAll's grace sweep racing the task's own natural
// completion) is a no-op rather than a double-close panic.
func (t *Task) finish(state State, result *agent.LoopResult, err error) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.State = state
	t.Result = result
	t.Err = err
	t.completedAt = time.Now()
	t.mu.Unlock()
	close(t.done)
}

// Config parameterizes the Scheduler with everything it needs to build a
// scoped inner agent.Loop per invocation: the parent's full tool
// catalogue (narrowed per-Definition via tool.Catalogue.Scoped), the
// shared provider registry and transport, and the permission policy a
// child inherits unchanged from the parent session.
type Config struct {
	Registry  *provider.Registry
	Transport agent.Transport
	Catalogue *tool.Catalogue
	Policy    tool.Policy

	// ProviderDefaultModel, keyed by provider name, is priority (iv) in
	// the spec §4.F model resolution chain.
	ProviderDefaultModel map[string]string

	MaxToolConcurrency int
	RetentionWindow    time.Duration // default 1h

	Logger *slog.Logger
}

// RunOptions is the per-call Task(...) tool parameterization: priority
// (ii) in the model/provider resolution chain, plus the parent's current
// model/provider for the final fallback rung.
type RunOptions struct {
	Model    string
	Provider string

	ParentModel    string
	ParentProvider string

	RunInBackground bool
	Sink            chan<- agent.LoopEvent
}

// Scheduler runs subagent definitions, synchronously or in the
// background, sharing the caller's cancellation tree. Generalizes the
// teacher's InMemoryTaskService + TaskAwaiter pair into a single type
// since no separate subscribe/stream transport exists here.
type Scheduler struct {
	cfg         Config
	definitions *Registry
	logger      *slog.Logger

	mu    sync.Mutex
	tasks map[string]*Task
}

// New builds a Scheduler. definitions must outlive the Scheduler; the
// Scheduler never mutates it.
func New(cfg Config, definitions *Registry) *Scheduler {
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = time.Hour
	}
	if cfg.MaxToolConcurrency <= 0 {
		cfg.MaxToolConcurrency = 8
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, definitions: definitions, logger: logger, tasks: make(map[string]*Task)}
}

// buildLoop resolves model/provider for one invocation and constructs a
// freshly scoped agent.Loop — the inner loop of spec §4.F, "its own model
// selection, tool whitelist, and cancellation propagated from the
// parent".
func (s *Scheduler) buildLoop(def Definition, opts RunOptions) (*agent.Loop, error) {
	providerName := resolveProvider(def.Name, opts.Provider, def.Provider, "", opts.ParentProvider)
	if providerName == "" {
		return nil, fmt.Errorf("subagent %q: no provider could be resolved", def.Name)
	}
	providerDefault := s.cfg.ProviderDefaultModel[providerName]
	model := resolveModel(def.Name, opts.Model, def.Model, providerDefault, opts.ParentModel)

	scope := def.toolScope(opts.RunInBackground)
	scoped := s.cfg.Catalogue.Scoped(scope)
	engine := tool.NewEngine(scoped, s.cfg.Policy, s.cfg.MaxToolConcurrency, s.logger)

	maxIter := def.MaxIterations
	if maxIter <= 0 {
		maxIter = agent.DefaultMaxIterations
	}

	return agent.New(agent.LoopConfig{
		Registry:           s.cfg.Registry,
		Transport:          s.cfg.Transport,
		Engine:             engine,
		Fallback:           agent.FallbackConfig{Providers: []string{providerName}},
		Tools:              scoped.Specs(),
		SystemInstruction:  def.SystemInstruction,
		GenerateConfig:     provider.GenerateConfig{Model: model},
		Stream:             opts.Sink != nil,
		MaxIterations:      maxIter,
		MaxToolConcurrency: s.cfg.MaxToolConcurrency,
	}, s.logger)
}

// Run executes a subagent synchronously and returns its result — spec
// §4.F's foreground mode, caller awaits directly.
func (s *Scheduler) Run(ctx context.Context, agentName, input string, opts RunOptions) (agent.LoopResult, error) {
	def, err := s.definitions.Get(agentName)
	if err != nil {
		return agent.LoopResult{}, err
	}
	opts.RunInBackground = false
	l, err := s.buildLoop(def, opts)
	if err != nil {
		return agent.LoopResult{}, err
	}
	messages := []protocol.Message{{Role: protocol.RoleUser, Content: []protocol.ContentBlock{protocol.Text(input)}}}
	return l.Run(ctx, messages, opts.Sink)
}

// StartBackground registers a task with status=pending, spawns it, then
// transitions to running — spec §4.F "Task(run_in_background=true)
// registers the agent_id synchronously with status=pending, spawns the
// task, then transitions to running." It returns the new task's id
// immediately, before the child has produced any output.
func (s *Scheduler) StartBackground(parentCtx context.Context, agentName, input string, opts RunOptions) (string, error) {
	def, err := s.definitions.Get(agentName)
	if err != nil {
		return "", err
	}
	opts.RunInBackground = true
	l, err := s.buildLoop(def, opts)
	if err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	childCtx, cancel := context.WithCancel(parentCtx)
	task := &Task{
		ID: taskID, AgentName: agentName, State: StatePending,
		createdAt: time.Now(), cancel: cancel, done: make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks[taskID] = task
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(childCtx)
	task.setState(StateRunning)
	g.Go(func() error {
		messages := []protocol.Message{{Role: protocol.RoleUser, Content: []protocol.ContentBlock{protocol.Text(input)}}}
		result, err := l.Run(gctx, messages, opts.Sink)
		switch {
		case err != nil && gctx.Err() != nil:
			task.finish(StateCancelled, &result, err)
		case err != nil:
			task.finish(StateFailed, &result, err)
		default:
			task.finish(StateCompleted, &result, nil)
		}
		return err
	})
	go func() {
		// errgroup.Wait only to surface panics-as-errors through the
		// group's recover-free goroutine; the Task itself already carries
		// the terminal state set inside g.Go above.
		_ = g.Wait()
	}()

	return taskID, nil
}

// TaskOutput awaits (block=true) or polls (block=false) a background
// task's completion — spec §4.F's TaskOutput(agent_id, block, timeout).
// Every call first runs the lazy retention sweep named in the same
// paragraph.
func (s *Scheduler) TaskOutput(ctx context.Context, agentID string, block bool, timeout time.Duration) (Task, error) {
	s.gc()

	s.mu.Lock()
	task, ok := s.tasks[agentID]
	s.mu.Unlock()
	if !ok {
		return Task{}, fmt.Errorf("subagent: unknown task %q", agentID)
	}

	if !block {
		return task.snapshot(), nil
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case <-task.done:
		return task.snapshot(), nil
	case <-timeoutCh:
		return task.snapshot(), fmt.Errorf("subagent: timed out waiting for task %q", agentID)
	case <-ctx.Done():
		return task.snapshot(), ctx.Err()
	}
}

// Cancel cancels one background task's context. If the task does not
// observe cancellation and terminate, CancelAll's grace-period sweep
// marks it cancelled and detaches its join handle regardless (spec §4.F
// "A subagent that fails to terminate within grace is marked cancelled
// and its join handle detached").
func (s *Scheduler) Cancel(agentID string) error {
	s.mu.Lock()
	task, ok := s.tasks[agentID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("subagent: unknown task %q", agentID)
	}
	task.cancel()
	return nil
}

// CancelAll cancels the context of every running task — called when the
// parent agent loop itself is cancelled, since child contexts are derived
// from the parent's (spec §4.F "Cancelling the parent cancels all child
// tokens"). Tasks that do not reach a terminal state within grace are
// force-marked cancelled and their join handle detached rather than
// leaking the goroutine's result forever.
func (s *Scheduler) CancelAll(grace time.Duration) {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	if grace <= 0 {
		return
	}
	deadline := time.After(grace)
	for _, t := range tasks {
		select {
		case <-t.done:
		case <-deadline:
			t.finish(StateCancelled, nil, context.DeadlineExceeded)
		}
	}
}

// gc lazily garbage-collects completed/failed/cancelled tasks older than
// RetentionWindow, run on every TaskOutput call per spec §4.F ("Results
// older than a configurable retention window are garbage-collected
// lazily whenever TaskOutput is called").
func (s *Scheduler) gc() {
	cutoff := time.Now().Add(-s.cfg.RetentionWindow)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		snap := t.snapshot()
		if snap.State == StatePending || snap.State == StateRunning {
			continue
		}
		if snap.completedAt.Before(cutoff) {
			delete(s.tasks, id)
		}
	}
}

// ListTasks returns a snapshot of every known task, newest first.
func (s *Scheduler) ListTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.After(out[j].createdAt) })
	return out
}
