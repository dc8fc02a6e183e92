// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package websocket holds the live game client connections.

Every authenticated game client keeps one websocket open for the duration of
its session. The Hub is the connection registry the anti-cheat engine consults:

  - IsOnline answers presence checks by account id and display name
  - CloseAccount terminates every connection of an account when it is kicked

Clients authenticate during the upgrade with an access token issued by the
credentials package, passed either as a Bearer Authorization header or as the
token query parameter. The display name is taken from the name parameter.

	GET /ws?name=PlayerOne
	Authorization: Bearer <access token>

Message flow:

	┌──────────┐  welcome / kicked / pong   ┌──────────┐
	│   Hub    │ ─────────────────────────► │  Client  │
	└──────────┘ ◄───────── ping ────────── └──────────┘

A kicked client receives a kicked message followed by a close frame. Each
Client runs a read pump and a write pump; the hub owns the send channel and
is the only party that closes it.
*/
package websocket
