// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// clientIDCounter gives clients a stable ordering for close operations.
var clientIDCounter atomic.Uint64

// Client is one game client connection.
type Client struct {
	id          uint64
	accountID   string
	displayName string
	hub         *Hub
	conn        *websocket.Conn
	send        chan Message
}

// NewClient creates a client for an authenticated account.
func NewClient(hub *Hub, conn *websocket.Conn, accountID, displayName string) *Client {
	return &Client{
		id:          clientIDCounter.Add(1),
		accountID:   accountID,
		displayName: displayName,
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, sendBuffer),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 { return c.id }

// AccountID returns the authenticated account id.
func (c *Client) AccountID() string { return c.accountID }

// DisplayName returns the in-game name the client connected with.
func (c *Client) DisplayName() string { return c.displayName }

// trySend queues a message without blocking. Callers must hold the hub lock
// or otherwise know the client is still registered.
func (c *Client) trySend(msg Message) {
	select {
	case c.send <- msg:
	default:
		logging.Warn().Str("account_id", c.accountID).Str("message_type", msg.Type).Msg("client send buffer full, dropping message")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("account_id", c.accountID).Msg("unexpected websocket close error")
			}
			return
		}

		if msg.Type == MessageTypePing {
			c.hub.mu.RLock()
			if c.hub.clients[c] {
				c.trySend(Message{Type: MessageTypePong})
			}
			c.hub.mu.RUnlock()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session terminated")
				_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Str("account_id", c.accountID).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
