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

import (
	"os"

	"github.com/cocode-dev/agentcore/pkg/transport/sse"
)

// ServeCmd starts the SSE transport server (pkg/transport/sse), serving
// POST /v1/turns, GET /healthz, and, when observability.metrics is
// enabled, GET /metrics.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides config server.addr." placeholder:"HOST:PORT"`
}

func (c *ServeCmd) Run(rt *runtimeArgs) error {
	cfg, err := loadConfig(rt.cli)
	if err != nil {
		return err
	}
	logger := initLogging(cfg)

	obs, err := buildObservability(rt.ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = obs.Shutdown(rt.ctx) }()

	reg, err := buildRegistry(cfg)
	if err != nil {
		return &configError{err}
	}
	transport := buildTransport(cfg)

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	catalogue, err := buildCatalogue(cfg, wd, reg, transport, buildPolicy(cfg.Permissions), logger)
	if err != nil {
		return &configError{err}
	}
	engine := buildEngine(cfg, catalogue, logger)

	loop, err := buildLoop(cfg, reg, transport, engine, catalogue.Specs(), logger)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := sse.New(sse.Config{
		Addr:          addr,
		Run:           loop.Run,
		Observability: obs,
		Logger:        logger,
	})
	return srv.Start(rt.ctx)
}
