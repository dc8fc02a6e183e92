// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package telemetry

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
)

// Publisher puts ingested events onto the telemetry topics. Callers validate
// events before publishing.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher wraps a transport publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) PublishMovement(ctx context.Context, ev *MovementEvent) error {
	return p.publish(ctx, TopicMovement, ev)
}

func (p *Publisher) PublishKill(ctx context.Context, ev *KillEvent) error {
	return p.publish(ctx, TopicKill, ev)
}

func (p *Publisher) PublishViolation(ctx context.Context, r *anticheat.ViolationReport) error {
	return p.publish(ctx, TopicViolation, r)
}

func (p *Publisher) PublishSessionEnd(ctx context.Context, ev *SessionEnded) error {
	return p.publish(ctx, TopicSessionEnd, ev)
}

// publish carries the request's correlation id, or a new one, in the
// message metadata.
func (p *Publisher) publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	id := logging.CorrelationIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateCorrelationID()
	}
	middleware.SetCorrelationID(id, msg)

	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
