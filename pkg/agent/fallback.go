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

package agent

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cocode-dev/agentcore/pkg/protocol"
)

// Attempter performs one generation attempt against a named provider,
// returning the error that the retry/fallback loop inspects for
// retryability.
type Attempter interface {
	Attempt(ctx context.Context, providerName string) error
}

// FallbackConfig parameterizes retry-then-failover behavior. Providers
// lists the failover order: index 0 is tried first, retried MaxRetries
// times with exponential backoff, then the loop moves to index 1, and so
// on — generalizing the teacher's single-provider
// pkg/llms.LLMRegistry.GetLLM lookup into an ordered chain, the way
// pkg/llms/registry.go's BaseRegistry already supports multiple
// registered names.
type FallbackConfig struct {
	Providers  []string
	MaxRetries int           // per-provider retry count, default 2
	BaseDelay  time.Duration // default 250ms
	MaxDelay   time.Duration // default 5s
}

// Run executes attempt against each provider in order, retrying each one
// up to MaxRetries times for retryable errors before moving to the next
// provider. It returns a Fatal error wrapping the last error seen if
// every provider is exhausted.
func Run(ctx context.Context, cfg FallbackConfig, attempt Attempter, logger *slog.Logger) (usedProvider string, err error) {
	if len(cfg.Providers) == 0 {
		return "", protocol.New(protocol.KindFatal, "agent.fallback", "run", "no providers configured", nil)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for _, provider := range cfg.Providers {
		for attemptN := 0; attemptN <= cfg.MaxRetries; attemptN++ {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			attemptErr := attempt.Attempt(ctx, provider)
			if attemptErr == nil {
				return provider, nil
			}
			lastErr = attemptErr

			if !isRetryable(attemptErr) {
				logger.Warn("provider attempt failed with non-retryable error, failing over",
					"provider", provider, "error", attemptErr)
				break
			}
			if attemptN == cfg.MaxRetries {
				logger.Warn("provider exhausted retries, failing over",
					"provider", provider, "attempts", attemptN+1, "error", attemptErr)
				break
			}

			delay := backoff(cfg.BaseDelay, cfg.MaxDelay, attemptN)
			logger.Info("retrying provider after backoff",
				"provider", provider, "attempt", attemptN+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", protocol.New(protocol.KindFatal, "agent.fallback", "run", "all providers exhausted", lastErr)
}

func isRetryable(err error) bool {
	var pe *protocol.Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	// Unknown error shapes are treated as retryable by default: a
	// transient network blip from a provider adapter that hasn't been
	// translated into a *protocol.Error yet shouldn't skip retry.
	return true
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > max {
		return max
	}
	return d
}
