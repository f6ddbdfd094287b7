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

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

var errEventsDisabled = errors.New("events: nats_url is not configured")

// Connect dials NATS, ensures the event stream covers the configured subject
// prefix and returns a publisher that owns the connection.
func Connect(ctx context.Context, cfg *models.EventsConfig, log logger.Logger) (*NATSPublisher, error) {
	if !cfg.Enabled() {
		return nil, errEventsDisabled
	}

	nc, err := connectWithSecurity(cfg.NATSURL, cfg.Security, log)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix+".>"); err != nil {
		nc.Close()
		return nil, err
	}

	p := NewNATSPublisher(js, cfg.SubjectPrefix, log)
	p.conn = nc

	return p, nil
}

func connectWithSecurity(natsURL string, security *models.SecurityConfig, log logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("trust-proxy"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if security != nil && security.Mode == models.SecurityModeMTLS {
		tlsConf, err := TLSConfig(security)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return nc, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	subjects := []string(nil)

	stream, err := js.Stream(ctx, name)
	if err == nil {
		info, infoErr := stream.Info(ctx)
		if infoErr == nil {
			subjects = info.Config.Subjects
		}
	}

	updated := ensureSubjectList(append([]string(nil), subjects...), subject)
	if err == nil && len(updated) == len(subjects) {
		return nil
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{Name: name, Subjects: updated}); err != nil {
		return fmt.Errorf("failed to create or update stream %s: %w", name, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing entry already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if subjectMatches(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// subjectMatches reports whether pattern, which may use the * and > NATS
// wildcards, covers subject.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
