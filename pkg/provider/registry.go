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
	"fmt"
	"sync"
)

// Registry resolves a provider name to its Adapter. Spec §9 allows exactly
// two process-wide singletons: this resolver cache and the tokenizer. The
// registry is populated once at session start and is read-only afterward;
// concurrent Get calls never race with Register.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	sealed   bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds an adapter. It panics if called after Seal, matching the
// "initialized at session start, read-only afterwards" contract: a bug
// that tries to mutate the registry mid-session is a programming error,
// not a recoverable runtime condition.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic("provider: cannot register after registry is sealed")
	}
	r.adapters[a.Name()] = a
}

// Seal freezes the registry; subsequent Register calls panic.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown adapter %q", name)
	}
	return a, nil
}

var (
	processRegistry     *Registry
	processRegistryOnce sync.Once
)

// Process returns the single process-wide registry instance, creating it
// on first use. Callers populate it during session bootstrap and Seal it
// before the first turn runs.
func Process() *Registry {
	processRegistryOnce.Do(func() {
		processRegistry = NewRegistry()
	})
	return processRegistry
}
