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
	"fmt"
	"os"
	"strings"
)

// envOverridePrefix namespaces the per-agent environment override spec
// §4.F ranks above every other source, e.g. AGENTCORE_SUBAGENT_RESEARCHER_MODEL
// for an agent named "researcher" — following the teacher's pkg/config/env.go
// convention of reading deployment overrides straight out of the process
// environment rather than a config-reload mechanism.
const envOverridePrefix = "AGENTCORE_SUBAGENT_"

func envOverride(agentName, field string) string {
	key := fmt.Sprintf("%s%s_%s", envOverridePrefix, strings.ToUpper(agentName), strings.ToUpper(field))
	return os.Getenv(key)
}

// resolveModel implements the spec §4.F model resolution priority,
// highest wins: (i) environment override, (ii) the Task tool's model
// parameter for this call, (iii) the agent definition's preference,
// (iv) the provider's declared default model, (v) the parent loop's
// current model. The first non-empty value wins.
func resolveModel(agentName, paramModel, defModel, providerDefaultModel, parentModel string) string {
	if v := envOverride(agentName, "model"); v != "" {
		return v
	}
	for _, candidate := range []string{paramModel, defModel, providerDefaultModel, parentModel} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// resolveProvider applies the same priority chain to provider selection.
// Per spec §4.F "Provider resolution is analogous; when the resolver
// returns None, the parent provider is inherited" — parentProvider is
// therefore the unconditional last resort, never itself subject to being
// empty in a well-formed call.
func resolveProvider(agentName, paramProvider, defProvider, providerDefaultProvider, parentProvider string) string {
	if v := envOverride(agentName, "provider"); v != "" {
		return v
	}
	for _, candidate := range []string{paramProvider, defProvider, providerDefaultProvider} {
		if candidate != "" {
			return candidate
		}
	}
	return parentProvider
}
