// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

//go:build integration && nats

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

func TestNATSTransport_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("NewNATSContainer: %v", err)
	}
	defer CleanupContainer(t, ctx, container.Container)

	transport, err := telemetry.NewNATSTransport(&config.NATSConfig{
		QueueGroup:         "sentinel-test",
		DurableName:        "sentinel-test",
		SubscribersCount:   1,
		RouterCloseTimeout: 5 * time.Second,
	}, container.URL, logging.NewWatermillAdapter())
	if err != nil {
		t.Fatalf("NewNATSTransport: %v", err)
	}
	defer transport.Close()

	messages, err := transport.Subscriber.Subscribe(ctx, telemetry.TopicSessionEnd)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pubCtx := logging.ContextWithCorrelationID(ctx, "corr-nats")
	if err := telemetry.NewPublisher(transport.Publisher).PublishSessionEnd(pubCtx, &telemetry.SessionEnded{AccountID: "acc-1"}); err != nil {
		t.Fatalf("PublishSessionEnd: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := middleware.MessageCorrelationID(msg); got != "corr-nats" {
			t.Errorf("correlation id = %q", got)
		}
	case <-ctx.Done():
		t.Fatal("message not delivered through JetStream")
	}
}
