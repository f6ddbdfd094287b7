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

// Package trust reconciles declared trusted devices against the proxy's
// device groups, places new devices into capacity-bounded group containers
// and tears trust down with certificate cleanup.
package trust

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/trustproxy/pkg/events"
	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/health"
	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

const (
	defaultGroupCapacity  = 10
	defaultCleanupTimeout = time.Minute
	defaultMinCertVersion = 13
)

// Service implements device listing, reconciliation and teardown.
type Service struct {
	gw         gateway.Gateway
	health     *health.Table
	events     events.Publisher
	opts       Options
	inProgress map[string]struct{}
	logger     logger.Logger

	cleanup sync.WaitGroup
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewService wires a Service. A nil table or publisher is replaced by an
// empty table or a NopPublisher.
func NewService(gw gateway.Gateway, table *health.Table, publisher events.Publisher, opts Options, log logger.Logger) *Service {
	if table == nil {
		table = health.NewTable()
	}

	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	if opts.GroupCapacity <= 0 {
		opts.GroupCapacity = defaultGroupCapacity
	}

	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = defaultCleanupTimeout
	}

	if opts.MinCertDeleteVersion <= 0 {
		opts.MinCertDeleteVersion = defaultMinCertVersion
	}

	states := opts.InProgressStates
	if len(states) == 0 {
		states = models.DefaultInProgressStates()
	}

	inProgress := make(map[string]struct{}, len(states))
	for _, s := range states {
		inProgress[s] = struct{}{}
	}

	initTrustMetrics()

	return &Service{
		gw:         gw,
		health:     table,
		events:     publisher,
		opts:       opts,
		inProgress: inProgress,
		logger:     log,
		sleep:      sleepContext,
	}
}

// IsInProgress reports whether state is a discovery, installation or
// deletion state.
func (s *Service) IsInProgress(state string) bool {
	_, ok := s.inProgress[state]

	return ok
}

// Wait blocks until background cleanup started by listings has finished.
func (s *Service) Wait() {
	s.cleanup.Wait()
}

func (s *Service) publish(ctx context.Context, kind models.TrustEventKind, d *models.ProjectedDevice, reason string) {
	data := models.TrustEventData{
		Kind:       kind,
		TargetHost: d.TargetHost,
		TargetPort: d.TargetPort,
		TargetUUID: d.TargetUUID,
		GroupName:  d.GroupName,
		Reason:     reason,
		Timestamp:  time.Now(),
	}

	if err := s.events.Publish(ctx, data); err != nil {
		s.logger.Warn().Err(err).Str("device", d.Key()).Str("kind", string(kind)).Msg("Failed to publish trust event")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
