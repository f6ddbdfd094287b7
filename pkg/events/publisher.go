/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package events publishes trust lifecycle CloudEvents to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

const (
	eventSource     = "trustproxy"
	eventTypePrefix = "com.carverauto.trustproxy.device."
)

// Publisher emits trust lifecycle events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, data models.TrustEventData) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.TrustEventData) error {
	return nil
}

// JetStreamPublisher is the subset of jetstream.JetStream used for publishing.
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to subjects <prefix>.<kind>.
type NATSPublisher struct {
	js            JetStreamPublisher
	subjectPrefix string
	conn          *nats.Conn
	logger        logger.Logger
	now           func() time.Time
}

// NewNATSPublisher wraps an existing JetStream publisher.
func NewNATSPublisher(js JetStreamPublisher, subjectPrefix string, log logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		js:            js,
		subjectPrefix: subjectPrefix,
		logger:        log,
		now:           time.Now,
	}
}

// Subject returns the subject an event kind is published on.
func (p *NATSPublisher) Subject(kind models.TrustEventKind) string {
	return p.subjectPrefix + "." + string(kind)
}

func (p *NATSPublisher) Publish(ctx context.Context, data models.TrustEventData) error {
	if data.Timestamp.IsZero() {
		data.Timestamp = p.now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + string(data.Kind),
		DataContentType: "application/json",
		Subject:         p.Subject(data.Kind),
		Time:            &data.Timestamp,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", data.Kind, err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", data.Kind, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published trust event")

	return nil
}

// Close drains the underlying connection when the publisher owns one.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}

	return p.conn.Drain()
}
