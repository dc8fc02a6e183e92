// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package telemetry

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Transport is a publisher and subscriber pair over one broker.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Kind       string

	closers []func() error
}

// NewGoChannelTransport creates the in-process transport. Messages are lost
// on restart.
func NewGoChannelTransport(logger watermill.LoggerAdapter) *Transport {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return &Transport{
		Publisher:  ch,
		Subscriber: ch,
		Kind:       "gochannel",
		closers:    []func() error{ch.Close},
	}
}

// Close closes the transport.
func (t *Transport) Close() error {
	var errs []error
	for _, c := range t.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
