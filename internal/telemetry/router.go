// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
)

// Handler names
const (
	handlerMovement   = "anticheat-movement"
	handlerKill       = "anticheat-kill"
	handlerViolation  = "anticheat-violation"
	handlerSessionEnd = "anticheat-session-end"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second. 0 disables it.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that failed every retry. Empty
	// disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     DefaultPoisonTopic,
	}
}

// RouterConfigFrom maps the NATS section's router settings, which apply to
// every transport.
func RouterConfigFrom(cfg *config.NATSConfig) RouterConfig {
	rc := DefaultRouterConfig()
	if cfg.RouterCloseTimeout > 0 {
		rc.CloseTimeout = cfg.RouterCloseTimeout
	}
	if cfg.RouterRetryCount > 0 {
		rc.RetryMaxRetries = cfg.RouterRetryCount
	}
	if cfg.RouterRetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	rc.ThrottlePerSecond = cfg.RouterThrottlePerSecond
	rc.PoisonQueueTopic = ""
	if cfg.RouterPoisonQueueEnabled {
		rc.PoisonQueueTopic = cfg.RouterPoisonQueueTopic
		if rc.PoisonQueueTopic == "" {
			rc.PoisonQueueTopic = DefaultPoisonTopic
		}
	}
	return rc
}

// Router consumes the telemetry topics. A Watermill router cannot be run
// twice, so each Run builds a fresh one; this lets a supervisor restart it.
type Router struct {
	cfg        RouterConfig
	subscriber message.Subscriber
	publisher  message.Publisher
	handlers   *Handlers
	logger     watermill.LoggerAdapter

	mu      sync.Mutex
	current *message.Router
}

// NewRouter creates a router for the given transport. The publisher carries
// emitted violation reports and poisoned messages.
func NewRouter(cfg RouterConfig, sub message.Subscriber, pub message.Publisher, handlers *Handlers, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}
	r := &Router{
		cfg:        cfg,
		subscriber: nopCloseSubscriber{sub},
		publisher:  nopClosePublisher{pub},
		handlers:   handlers,
		logger:     logger,
	}
	wm, err := r.build()
	if err != nil {
		return nil, err
	}
	r.current = wm
	return r, nil
}

// build creates a Watermill router with middleware and handlers.
//
// Middleware added first runs outermost: the poison queue only sees errors
// that survived every retry, and panics are converted to errors before the
// retry middleware sees them.
func (r *Router) build() (*message.Router, error) {
	wm, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if r.cfg.ThrottlePerSecond > 0 {
		wm.AddMiddleware(middleware.NewThrottle(r.cfg.ThrottlePerSecond, time.Second).Middleware)
	}
	wm.AddMiddleware(middleware.CorrelationID)

	if r.cfg.PoisonQueueTopic != "" {
		poison, err := middleware.PoisonQueue(r.publisher, r.cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wm.AddMiddleware(poison)
	}

	retry := middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		MaxInterval:     r.cfg.RetryMaxInterval,
		Multiplier:      r.cfg.RetryMultiplier,
		Logger:          r.logger,
	}
	wm.AddMiddleware(retry.Middleware, middleware.Recoverer)

	wm.AddHandler(handlerMovement, TopicMovement, r.subscriber, TopicViolation, r.publisher, r.handlers.Movement)
	wm.AddHandler(handlerKill, TopicKill, r.subscriber, TopicViolation, r.publisher, r.handlers.Kill)
	wm.AddConsumerHandler(handlerViolation, TopicViolation, r.subscriber, r.handlers.Violation)
	wm.AddConsumerHandler(handlerSessionEnd, TopicSessionEnd, r.subscriber, r.handlers.SessionEnd)

	return wm, nil
}

// Running returns a channel closed once the current router's handlers are
// subscribed.
func (r *Router) Running() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Running()
}

// IsRunning reports whether the current router is processing messages.
func (r *Router) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.IsRunning() && !r.current.IsClosed()
}

// Run processes messages until ctx is done. It returns ctx.Err() on
// shutdown and an error if the router stopped on its own.
func (r *Router) Run(ctx context.Context) error {
	r.mu.Lock()
	wm := r.current
	if wm.IsClosed() || wm.IsRunning() {
		fresh, err := r.build()
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.current = fresh
		wm = fresh
	}
	r.mu.Unlock()

	logging.Info().Str("component", "telemetry-router").Msg("Telemetry router starting")
	err := wm.Run(ctx)
	if ctx.Err() != nil {
		logging.Info().Str("component", "telemetry-router").Msg("Telemetry router stopped")
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("telemetry router: %w", err)
	}
	return fmt.Errorf("telemetry router stopped unexpectedly")
}

// Close stops the current router.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Close()
}

// The router closes its publisher and subscriber when it stops. Both are
// shared with the HTTP ingest path and with later runs, so the transport
// owns the close.
type nopClosePublisher struct {
	message.Publisher
}

func (nopClosePublisher) Close() error { return nil }

type nopCloseSubscriber struct {
	message.Subscriber
}

func (nopCloseSubscriber) Close() error { return nil }
