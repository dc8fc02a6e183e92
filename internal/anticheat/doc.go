// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package anticheat implements cheat detection and enforcement for game sessions.

Telemetry (movement samples and kill events) is appended to per-account
rolling windows held by a Tracker. Pure detector functions classify each new
sample against the window and return every verdict that fired. Verdicts and
explicit reports from game servers become Violations, and an EscalationPolicy
maps each violation, together with the account's trailing count of unresolved
violations, to an Action:

	severity >= 9 or count >= 10   permanent_ban (scope permanent, no expiry)
	severity >= 7 or count >= 5    temp_ban      (scope matchmaking, 24h)
	count >= 3                     warning
	otherwise                      none

Bans are idempotent per scope. A ban request returns any active, unexpired
ban whose scope covers the requested one, and the store enforces at most one
active ban per (account, scope) so concurrent writers converge on a single
record. After a ban is committed the player is kicked: live connections are
closed and cached credentials revoked. Kick failures are logged and never
fail the ban.

The PresenceGate backs the game server presence check. A failed check
increments a per-account counter that expires after an idle TTL; the third
consecutive failure issues a permanent ban. The Sweeper periodically
deactivates bans whose expiry has passed.

Per-account state lives in sharded maps so events for different accounts do
not contend. All enforcement log lines go through the anticheat logging
category.
*/
package anticheat
