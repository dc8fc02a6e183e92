// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package api exposes the anti-cheat engine over HTTP using the chi router.

Route groups:

	GET  /anticheat/{username}/{apikey}              presence check (plain text)
	GET  /api/v1/health/live, /api/v1/health/ready   probes
	GET  /metrics                                    Prometheus
	GET  /ws                                         game client websocket

	POST /api/v1/telemetry/movement                  gameserver: queue movement
	POST /api/v1/telemetry/kill                      gameserver: queue kill
	POST /api/v1/telemetry/violation                 gameserver: queue a report
	POST /api/v1/telemetry/session-end               gameserver: match finished
	GET  /api/v1/matchmaking/ticket/{accountID}      gameserver: ban-gated ticket

	GET    /api/v1/anticheat/violations/{accountID}  moderator
	GET    /api/v1/anticheat/bans/{accountID}        moderator
	POST   /api/v1/anticheat/bans                    moderator
	POST   /api/v1/anticheat/kick/{accountID}        moderator
	POST   /api/v1/anticheat/sweep                   admin
	DELETE /api/v1/anticheat/tracking/{accountID}    admin
	POST   /api/v1/sessions/{accountID}              admin: issue a token pair
	POST   /api/v1/sessions/refresh                  rotate a refresh token
	PUT    /api/v1/users/{accountID}                 admin: identity record

JSON routes answer with the models.APIResponse envelope. The presence route
answers in plain text and never reveals why a check failed.

Telemetry routes only validate and publish; detection and enforcement run in
the telemetry router. Each account is additionally throttled by a token
bucket so one compromised game server cannot flood the pipeline.
*/
package api
