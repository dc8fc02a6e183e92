// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package testinfra starts containers for integration tests with
// testcontainers-go.
//
// Everything here is behind the integration build tag and skips itself when
// Docker is unavailable:
//
//	go test -tags "integration nats" ./internal/testinfra/...
//
// NATSContainer runs a JetStream server so the telemetry NATS transport can
// be exercised against a real broker:
//
//	container, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, container.Container)
//	transport, err := telemetry.NewNATSTransport(cfg, container.URL, logger)
package testinfra
