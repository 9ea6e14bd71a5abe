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
	"path/filepath"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Rule is one pattern entry in a permission list. Pattern is matched
// against "toolName" or "toolName(argPattern)" the same way the teacher's
// tool_approval.go keys off toolConfig.Name — a bare tool name rule
// applies to every call of that tool; an argPattern rule only to calls
// whose rendered argument summary filepath.Match()es it.
type Rule struct {
	ToolName    string
	ArgPattern  string // optional, glob against Decider's argSummary
}

func (r Rule) matches(toolName, argSummary string) bool {
	if r.ToolName != toolName {
		return false
	}
	if r.ArgPattern == "" {
		return true
	}
	ok, _ := filepath.Match(r.ArgPattern, argSummary)
	return ok
}

// Policy holds the four rule lists spec §4.C resolves in strict
// precedence order: session allow > config deny > config allow > config
// ask > Passthrough > default prompt.
type Policy struct {
	SessionAllow []Rule
	ConfigDeny   []Rule
	ConfigAllow  []Rule
	ConfigAsk    []Rule

	// Passthrough, when true, is the second-to-last fallback: tools
	// marked ReadOnly in their ToolSpec are allowed without a prompt.
	Passthrough bool
}

// Resolve applies the precedence chain for one call. argSummary is a
// short, stable rendering of the call's arguments (e.g. a file path) used
// to match ArgPattern rules.
func Resolve(policy Policy, spec protocol.ToolSpec, argSummary string) protocol.PermissionDecision {
	for _, r := range policy.SessionAllow {
		if r.matches(spec.Name, argSummary) {
			return protocol.PermissionDecision{Kind: protocol.PermissionAllowed}
		}
	}
	for _, r := range policy.ConfigDeny {
		if r.matches(spec.Name, argSummary) {
			return protocol.PermissionDecision{Kind: protocol.PermissionDenied, Reason: "denied by configuration rule for " + spec.Name}
		}
	}
	for _, r := range policy.ConfigAllow {
		if r.matches(spec.Name, argSummary) {
			return protocol.PermissionDecision{Kind: protocol.PermissionAllowed}
		}
	}
	for _, r := range policy.ConfigAsk {
		if r.matches(spec.Name, argSummary) {
			return protocol.PermissionDecision{
				Kind:    protocol.PermissionNeedsApproval,
				Request: &protocol.ApprovalRequest{ToolName: spec.Name, Summary: argSummary},
			}
		}
	}
	if policy.Passthrough && spec.ReadOnly {
		return protocol.PermissionDecision{Kind: protocol.PermissionPassthrough}
	}
	return protocol.PermissionDecision{
		Kind:    protocol.PermissionNeedsApproval,
		Request: &protocol.ApprovalRequest{ToolName: spec.Name, Summary: argSummary},
	}
}

// Grant records a one-time session-level allow for (toolName, argPattern),
// mirroring the "always allow for this session" choice a human approver
// can make interactively (the teacher's DecisionApprove path in
// tool_approval.go, generalized past its one-shot approval into a
// durable session rule).
func Grant(policy *Policy, toolName, argPattern string) {
	policy.SessionAllow = append(policy.SessionAllow, Rule{ToolName: toolName, ArgPattern: argPattern})
}
