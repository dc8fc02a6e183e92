// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for game client communication
const (
	MessageTypeWelcome = "welcome"
	MessageTypeKicked  = "kicked"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// Message represents a websocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WelcomeData is sent once after a client is registered.
type WelcomeData struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
}

// KickedData tells the client why its connection is being closed.
type KickedData struct {
	Reason string `json:"reason"`
}

// Hub is the registry of live game client connections, indexed by account.
type Hub struct {
	clients  map[*Client]bool
	accounts map[string]map[*Client]struct{}
	mu       sync.RWMutex
	running  atomic.Bool
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		accounts: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client and queues its welcome message.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	set, ok := h.accounts[client.accountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.accounts[client.accountID] = set
	}
	set[client] = struct{}{}
	metrics.WSConnections.Inc()
	client.trySend(Message{
		Type: MessageTypeWelcome,
		Data: WelcomeData{AccountID: client.accountID, DisplayName: client.displayName},
	})
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().
		Str("account_id", client.accountID).
		Str("display_name", client.displayName).
		Int("total_clients", total).
		Msg("game client connected")
}

// Unregister removes a client. Unregistering a client the hub already
// dropped is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		logging.Info().
			Str("account_id", client.accountID).
			Int("total_clients", total).
			Msg("game client disconnected")
	}
}

// removeLocked must be called with mu held.
func (h *Hub) removeLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	if set, ok := h.accounts[client.accountID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.accounts, client.accountID)
		}
	}
	close(client.send)
	metrics.WSConnections.Dec()
	return true
}

// IsOnline reports whether the account has a live connection under
// displayName. Names are compared exactly.
func (h *Hub) IsOnline(accountID, displayName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.accounts[accountID] {
		if client.displayName == displayName {
			return true
		}
	}
	return false
}

// CloseAccount sends a kicked message to every connection of the account,
// closes them and returns how many were closed.
func (h *Hub) CloseAccount(accountID string) int {
	h.mu.Lock()
	clients := sortClients(h.accounts[accountID])
	for _, client := range clients {
		client.trySend(Message{Type: MessageTypeKicked, Data: KickedData{Reason: "session terminated"}})
		h.removeLocked(client)
	}
	h.mu.Unlock()

	if len(clients) > 0 {
		logging.Info().Str("account_id", accountID).Int("connections", len(clients)).Msg("game client connections closed")
	}
	return len(clients)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Running reports whether RunWithContext is active.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// RunWithContext marks the hub as accepting connections until ctx is done,
// then closes every client and returns ctx.Err(). It is designed for suture
// supervision and may be restarted.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.running.Store(true)
	defer h.running.Store(false)

	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// logGracefulShutdown closes all clients and logs without an error field;
// cancellation is the expected shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes clients in id order and returns how many were open.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.removeLocked(client)
	}
	return len(clients)
}

func sortClients(set map[*Client]struct{}) []*Client {
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
