// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package services

import "context"

// ContextRunner blocks until ctx ends or the component fails.
//
// Satisfied by *websocket.Hub and *anticheat.Sweeper.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerFunc adapts a function to ContextRunner. The telemetry router's Run
// method is supervised this way.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) RunWithContext(ctx context.Context) error { return f(ctx) }

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner. name appears in supervisor events.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve delegates to the runner.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

func (s *RunnerService) String() string {
	return s.name
}
