// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package main is the entry point for the Sentinel anti-cheat server.

Sentinel ingests movement and combat telemetry from game servers, runs the
cheat detectors over per-player rolling windows, records violations and bans
in DuckDB and enforces escalation (warnings, kicks, temporary and permanent
bans). It also answers the presence check used by the game client launcher
and gates matchmaking on active bans.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("sentinel")
	├── DataSupervisor ("data-layer")
	│   ├── Ban sweeper (expired ban deactivation)
	│   ├── Credential GC (badger value log)
	│   └── Ingest limiter pruning
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Telemetry router (watermill)
	│   └── WebSocket hub (game client connections)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Component initialization order:

 1. Configuration: Koanf v2 with config file and environment variables
 2. Database: DuckDB violation and ban ledger behind a circuit breaker
 3. Credentials: JWT issuer with a BadgerDB token registry
 4. Anti-cheat engine: tracker, detectors, escalation and presence gate
 5. Telemetry: in-process channel or NATS JetStream transport
 6. Authentication: game-server API key and casbin-authorized operators
 7. HTTP server: ingest, moderation, matchmaking and presence routes

# Build Tags

	go build ./cmd/server               # in-process telemetry transport
	go build -tags nats ./cmd/server    # NATS JetStream, optionally embedded

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor shuts the HTTP
server down within a timeout, the telemetry router drains its
handlers, and the database and credential store are closed last.

# Example Usage

	export PRESENCE_API_KEY=$(openssl rand -hex 32)
	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_USERNAME=admin
	export ADMIN_PASSWORD=a-long-admin-password
	./sentinel
*/
package main
