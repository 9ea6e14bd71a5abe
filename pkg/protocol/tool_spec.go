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

package protocol

import "encoding/json"

// ConcurrencySafety classifies how a tool may be scheduled relative to
// other in-flight tool calls (spec §4.C).
type ConcurrencySafety string

const (
	// Safe tools may run in parallel with anything.
	Safe ConcurrencySafety = "safe"
	// Writes tools run in parallel with Safe tools, but are serialized
	// among themselves per canonicalized target path.
	Writes ConcurrencySafety = "writes"
	// Exclusive tools drain all in-flight work, run alone, then release.
	Exclusive ConcurrencySafety = "exclusive"
)

// ToolSpec is the normative description of a tool's call surface.
type ToolSpec struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	InputSchema       json.RawMessage   `json:"input_schema"`
	ConcurrencySafety ConcurrencySafety `json:"concurrency_safety"`
	ReadOnly          bool              `json:"read_only"`
	FeatureGate       string            `json:"feature_gate,omitempty"`
}

// PermissionDecisionKind is the outcome of a permission check.
type PermissionDecisionKind string

const (
	PermissionAllowed       PermissionDecisionKind = "allowed"
	PermissionNeedsApproval PermissionDecisionKind = "needs_approval"
	PermissionDenied        PermissionDecisionKind = "denied"
	PermissionPassthrough   PermissionDecisionKind = "passthrough"
)

// ApprovalRequest describes the pending action a NeedsApproval decision is
// suspended on.
type ApprovalRequest struct {
	ToolName string `json:"tool_name"`
	Summary  string `json:"summary"`
	Pattern  string `json:"pattern"`
}

// PermissionDecision is returned by a permission check.
type PermissionDecision struct {
	Kind    PermissionDecisionKind
	Request *ApprovalRequest // set when Kind == PermissionNeedsApproval
	Reason  string           // set when Kind == PermissionDenied
}
