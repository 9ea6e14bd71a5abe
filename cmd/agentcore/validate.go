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

package main

import "fmt"

// ValidateCmd loads and validates the configured file without running
// anything, matching the teacher's `hector validate` command shape.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(rt *runtimeArgs) error {
	cfg, err := loadConfig(rt.cli)
	if err != nil {
		return err
	}
	if _, err := buildRegistry(cfg); err != nil {
		return &configError{err}
	}
	fmt.Println("config OK:", rt.cli.Config)
	return nil
}
