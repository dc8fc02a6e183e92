// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

//go:build nats

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

const defaultNATSPort = 4222

// transportComponents owns the telemetry transport and, when configured,
// the embedded NATS server behind it.
type transportComponents struct {
	transport *telemetry.Transport
	server    *telemetry.EmbeddedServer
}

// initTransport selects the telemetry transport. With NATS disabled the
// in-process channel is used.
func initTransport(cfg *config.Config) (*transportComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled, telemetry uses the in-process channel")
		return &transportComponents{transport: telemetry.NewGoChannelTransport(logging.NewWatermillAdapter())}, nil
	}

	c := &transportComponents{}
	natsURL := cfg.NATS.URL

	if cfg.NATS.EmbeddedServer {
		host, port, err := embeddedListenAddr(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		server, err := telemetry.NewEmbeddedServer(telemetry.EmbeddedServerConfig{
			Host:      host,
			Port:      port,
			StoreDir:  cfg.NATS.StoreDir,
			MaxMemory: cfg.NATS.MaxMemory,
			MaxStore:  cfg.NATS.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		c.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	transport, err := telemetry.NewNATSTransport(&cfg.NATS, natsURL, logging.NewWatermillAdapter())
	if err != nil {
		if c.server != nil {
			c.server.Shutdown()
		}
		return nil, err
	}
	c.transport = transport
	return c, nil
}

// embeddedListenAddr derives the embedded server's listen address from the
// configured client URL.
func embeddedListenAddr(raw string) (string, int, error) {
	if raw == "" {
		return "127.0.0.1", defaultNATSPort, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parse NATS url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := defaultNATSPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parse NATS port %q: %w", p, err)
		}
	}
	if ip := net.ParseIP(host); ip == nil && host != "localhost" {
		return "", 0, fmt.Errorf("embedded NATS needs a local address, got %q", host)
	}
	return host, port, nil
}

// addChecks registers readiness probes for the transport.
func (c *transportComponents) addChecks(checks map[string]api.ReadinessCheck) {
	if c.server == nil {
		return
	}
	checks["nats"] = func(context.Context) error {
		if !c.server.IsRunning() {
			return errors.New("embedded NATS server is not running")
		}
		return nil
	}
}

// Close closes the transport, then the embedded server.
func (c *transportComponents) Close() {
	if err := c.transport.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing telemetry transport")
	}
	if c.server != nil {
		c.server.Shutdown()
		logging.Info().Msg("Embedded NATS server stopped")
	}
}
