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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  anthropic:
    default_model: claude-sonnet-4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxTurns)
	assert.Equal(t, 80.0, cfg.Compaction.ThresholdPercent)
	assert.Equal(t, 10, cfg.Compaction.KeepLastN)
	assert.Equal(t, 3, cfg.Fallback.MaxRetries)
	assert.Equal(t, "chat", cfg.Providers["anthropic"].WireAPI)
	assert.Equal(t, 60, cfg.Providers["anthropic"].TimeoutSecs)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("AGENTCORE_TEST_KEY", "sk-from-env")
	path := writeTempConfig(t, `
providers:
  anthropic:
    default_model: claude-sonnet-4
    api_key: ${AGENTCORE_TEST_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers["anthropic"].APIKey)
}

func TestLoadExpandsEnvVarDefault(t *testing.T) {
	os.Unsetenv("AGENTCORE_MISSING_KEY")
	path := writeTempConfig(t, `
providers:
  anthropic:
    default_model: claude-sonnet-4
    base_url: ${AGENTCORE_MISSING_KEY:-https://api.anthropic.com}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com", cfg.Providers["anthropic"].BaseURL)
}

func TestLoadRejectsNoProviders(t *testing.T) {
	path := writeTempConfig(t, "version: \"1\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one provider")
}

func TestLoadRejectsMissingDefaultModel(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  anthropic: {}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_model is required")
}

func TestLoadRejectsBadWireAPI(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  anthropic:
    default_model: claude-sonnet-4
    wire_api: carrier-pigeon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wire_api must be")
}

func TestLoadWithDotenvTolerateMissingFile(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  anthropic:
    default_model: claude-sonnet-4
`)
	_, err := LoadWithDotenv(path, filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
}

func TestValidateFallbackRequiresModelOrSecondProvider(t *testing.T) {
	cfg := &Config{
		Providers: map[string]*ProviderConfig{
			"anthropic": {DefaultModel: "claude-sonnet-4", WireAPI: "chat"},
		},
		Fallback: FallbackConfig{Enabled: true},
		Compaction: CompactionConfig{ThresholdPercent: 80},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback.enabled requires")
}

func TestExpandEnvVarsPrecedence(t *testing.T) {
	t.Setenv("AGENTCORE_PRECEDENCE", "value-from-env")
	assert.Equal(t, "value-from-env", expandEnvVars("${AGENTCORE_PRECEDENCE:-fallback}"))
	assert.Equal(t, "fallback-only", expandEnvVars("${AGENTCORE_DOES_NOT_EXIST:-fallback-only}"))
	assert.Equal(t, "value-from-env", expandEnvVars("${AGENTCORE_PRECEDENCE}"))
	assert.Equal(t, "value-from-env", expandEnvVars("$AGENTCORE_PRECEDENCE"))
	assert.Equal(t, "no vars here", expandEnvVars("no vars here"))
}
