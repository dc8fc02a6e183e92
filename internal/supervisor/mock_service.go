// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// MockService is a suture.Service for tests. It fails its first failures
// runs, then blocks until canceled.
type MockService struct {
	name     string
	starts   atomic.Int32
	failures atomic.Int32
}

// NewMockService creates a service that fails the given number of times.
func NewMockService(name string, failures int) *MockService {
	m := &MockService{name: name}
	m.failures.Store(int32(failures))
	return m
}

func (m *MockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	if m.failures.Add(-1) >= 0 {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

// StartCount returns how many times Serve was called.
func (m *MockService) StartCount() int32 {
	return m.starts.Load()
}

func (m *MockService) String() string {
	return m.name
}
