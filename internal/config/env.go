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

package config

import (
	"os"
	"regexp"
	"strings"
)

// Three substitution forms, same precedence order as the teacher's own
// pkg/config/env.go: ${VAR:-default}, ${VAR}, then bare $VAR.
var envPatterns = struct {
	withDefault *regexp.Regexp
	braced      *regexp.Regexp
	simple      *regexp.Regexp
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// expandEnvVars substitutes environment variable references in s. Used
// on every string leaf of the raw config map before it is decoded into
// Config, so `api_key: ${ANTHROPIC_API_KEY}` resolves at load time.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	s = envPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPatterns.withDefault.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPatterns.braced.FindStringSubmatch(match)
		if len(parts) != 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
	s = envPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPatterns.simple.FindStringSubmatch(match)
		if len(parts) != 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
	return s
}

// expandEnvVarsDeep walks a decoded YAML value tree (map[string]any /
// []any / scalars, the shape yaml.v3 produces), expanding every string
// leaf in place.
func expandEnvVarsDeep(v any) any {
	switch t := v.(type) {
	case string:
		return expandEnvVars(t)
	case map[string]any:
		for k, vv := range t {
			t[k] = expandEnvVarsDeep(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = expandEnvVarsDeep(vv)
		}
		return t
	default:
		return v
	}
}
