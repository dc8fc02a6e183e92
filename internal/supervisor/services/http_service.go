// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService supervises an HTTP server. Each Serve call is one
// listen attempt; the supervisor calls Serve again after a failure.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
	attempts        atomic.Int64
}

// NewHTTPServerService wraps server. shutdownTimeout bounds how long
// in-flight requests may drain; it defaults to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Attempts returns how many times Serve has been called.
func (h *HTTPServerService) Attempts() int64 {
	return h.attempts.Load()
}

func (h *HTTPServerService) addr() string {
	if s, ok := h.server.(*http.Server); ok {
		return s.Addr
	}
	return ""
}

// Serve listens until ctx ends or the listener fails. A listener failure
// is returned so the supervisor restarts the service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	attempt := h.attempts.Add(1)
	log := logging.With().Str("service", h.name).Str("addr", h.addr()).Logger()
	if attempt > 1 {
		log.Warn().Int64("attempt", attempt).Msg("Restarting HTTP listener")
	} else {
		log.Info().Msg("HTTP listener starting")
	}

	done := make(chan error, 1)
	go func() {
		err := h.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
	}

	started := time.Now()
	drainCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("HTTP listener did not drain in time")
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	<-done
	log.Info().Dur("elapsed", time.Since(started)).Msg("HTTP listener drained")
	return ctx.Err()
}

func (h *HTTPServerService) String() string {
	return h.name
}
