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

// Command agentcore is the CLI entry point: it loads configuration,
// assembles the provider registry / tool catalogue / agent loop, and
// either runs one turn against stdin ("chat") or serves the SSE
// transport ("serve"). Grounded on the teacher's cmd/hector/main.go
// (kong CLI, signal-driven shutdown context) minus its zero-config
// flag surface and A2A server mode, which has no home without that
// wire protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
)

// Exit codes surfaced by the core (spec §6).
const (
	exitOK            = 0
	exitCancelled     = 2
	exitConfigError   = 64
	exitInternalError = 70
)

// CLI is the root kong command set.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Chat     ChatCmd     `cmd:"" help:"Run a single turn against stdin and print the result."`
	Serve    ServeCmd    `cmd:"" help:"Start the SSE transport server."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"agentcore.yaml"`
	Dotenv    string `help:"Path to a .env file to load before reading Config." type:"path"`
	LogLevel  string `help:"Log level override (debug, info, warn, error)."`
	LogFormat string `help:"Log format override (simple, verbose)."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	fmt.Println("agentcore", version)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("agentcore"),
		kong.Description("Interactive coding-assistant agent loop, tool engine, and retrieval core."),
		kong.UsageOnError(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	err := kctx.Run(&runtimeArgs{ctx: ctx, cli: &cli})
	if err == nil {
		os.Exit(exitOK)
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "cancelled")
		os.Exit(exitCancelled)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(classifyExit(err))
}

// runtimeArgs is the kong.Run binding every *Cmd.Run receives, carrying
// the shutdown context and the root CLI's shared flags (config path,
// logging overrides).
type runtimeArgs struct {
	ctx context.Context
	cli *CLI
}

func classifyExit(err error) int {
	if _, ok := err.(*configError); ok {
		return exitConfigError
	}
	return exitInternalError
}

// configError wraps a configuration load/validation failure so main can
// map it to exit code 64 (spec §6) instead of the generic 70.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
