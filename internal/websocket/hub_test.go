// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// createTestClient creates a client without a connection; tests read its
// send channel directly.
func createTestClient(hub *Hub, accountID, name string) *Client {
	return NewClient(hub, nil, accountID, name)
}

// drain returns every message queued for the client until the channel is
// closed or empty.
func drain(c *Client) (msgs []Message, closed bool) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return msgs, true
			}
			msgs = append(msgs, msg)
		default:
			return msgs, false
		}
	}
}

func TestHub_RegisterAndIsOnline(t *testing.T) {
	hub := NewHub()
	c := createTestClient(hub, "acc-1", "PlayerOne")
	hub.Register(c)

	tests := []struct {
		name      string
		accountID string
		display   string
		want      bool
	}{
		{"matching account and name", "acc-1", "PlayerOne", true},
		{"name is case sensitive", "acc-1", "playerone", false},
		{"other name", "acc-1", "PlayerTwo", false},
		{"other account same name", "acc-2", "PlayerOne", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hub.IsOnline(tt.accountID, tt.display); got != tt.want {
				t.Errorf("IsOnline(%q, %q) = %v, want %v", tt.accountID, tt.display, got, tt.want)
			}
		})
	}

	msgs, _ := drain(c)
	if len(msgs) != 1 || msgs[0].Type != MessageTypeWelcome {
		t.Errorf("expected one welcome message, got %+v", msgs)
	}
}

func TestHub_CloseAccount(t *testing.T) {
	hub := NewHub()
	a1 := createTestClient(hub, "acc-1", "PlayerOne")
	a2 := createTestClient(hub, "acc-1", "PlayerOne")
	b := createTestClient(hub, "acc-2", "PlayerTwo")
	for _, c := range []*Client{a1, a2, b} {
		hub.Register(c)
		drain(c)
	}

	if n := hub.CloseAccount("acc-1"); n != 2 {
		t.Fatalf("CloseAccount = %d, want 2", n)
	}
	for _, c := range []*Client{a1, a2} {
		msgs, closed := drain(c)
		if !closed {
			t.Error("send channel should be closed")
		}
		if len(msgs) != 1 || msgs[0].Type != MessageTypeKicked {
			t.Errorf("expected kicked message, got %+v", msgs)
		}
	}
	if hub.IsOnline("acc-1", "PlayerOne") {
		t.Error("closed account still online")
	}
	if !hub.IsOnline("acc-2", "PlayerTwo") {
		t.Error("other account should stay online")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}

	if n := hub.CloseAccount("acc-1"); n != 0 {
		t.Errorf("second CloseAccount = %d, want 0", n)
	}
	// The read pump unregisters after the hub already dropped the client.
	hub.Unregister(a1)
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	c := createTestClient(hub, "acc-1", "PlayerOne")
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
	if _, closed := drain(c); !closed {
		t.Error("send channel should be closed")
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	waitFor(t, hub.Running)

	c := createTestClient(hub, "acc-1", "PlayerOne")
	hub.Register(c)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.Running() {
		t.Error("hub should report stopped")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown", hub.ClientCount())
	}
	if _, closed := drain(c); !closed {
		t.Error("client should be closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()

	if got := getShutdownReason(cancelled); got != ShutdownReasonContextCanceled {
		t.Errorf("cancelled reason = %s", got)
	}
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline reason = %s", got)
	}
}

func TestHub_ConcurrentRegisterAndClose(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Register(createTestClient(hub, "acc-1", "PlayerOne"))
		}()
		go func() {
			defer wg.Done()
			hub.CloseAccount("acc-1")
			hub.IsOnline("acc-1", "PlayerOne")
		}()
	}
	wg.Wait()

	hub.CloseAccount("acc-1")
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
