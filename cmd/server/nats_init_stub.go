// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

//go:build !nats

package main

import (
	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

// transportComponents holds the in-process transport for non-NATS builds.
type transportComponents struct {
	transport *telemetry.Transport
}

// initTransport always uses the in-process channel in non-NATS builds.
func initTransport(cfg *config.Config) (*transportComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS enabled but NATS support not compiled (build with -tags nats)")
	}
	return &transportComponents{transport: telemetry.NewGoChannelTransport(logging.NewWatermillAdapter())}, nil
}

// addChecks is a no-op for non-NATS builds.
func (c *transportComponents) addChecks(map[string]api.ReadinessCheck) {}

// Close closes the transport.
func (c *transportComponents) Close() {
	if err := c.transport.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing telemetry transport")
	}
}
