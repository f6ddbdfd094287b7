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

// Package monitor pings trusted managed devices on a fixed interval and
// un-trusts devices that stay unreachable beyond a grace period.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/trustproxy/pkg/events"
	"github.com/carverauto/trustproxy/pkg/health"
	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

const (
	defaultInterval    = 30 * time.Second
	defaultConcurrency = 16
)

var (
	errNilDeviceService = errors.New("monitor requires a device service")
	errNilPinger        = errors.New("monitor requires a pinger")
	errNilHealthTable   = errors.New("monitor requires a health table")
)

// Config controls the monitor schedule and removal policy.
type Config struct {
	Interval time.Duration
	// Grace is how long a device may stay unreachable before its trust is
	// torn down. Zero disables automatic removal.
	Grace       time.Duration
	Concurrency int
}

// ConfigFromModel extracts a Config from the service configuration.
func ConfigFromModel(cfg *models.MonitorConfig) Config {
	return Config{
		Interval:    time.Duration(cfg.Interval),
		Grace:       time.Duration(cfg.FailedDeviceRemoval),
		Concurrency: cfg.Concurrency,
	}
}

// Monitor is the reachability monitor. It is the only writer of the
// health table.
type Monitor struct {
	config  Config
	devices DeviceService
	pinger  Pinger
	health  *health.Table
	events  events.Publisher
	clock   Clock
	logger  logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a monitor. A nil clock uses wall time and a nil publisher
// drops events.
func New(cfg Config, devices DeviceService, pinger Pinger, table *health.Table,
	publisher events.Publisher, clock Clock, log logger.Logger) (*Monitor, error) {
	switch {
	case devices == nil:
		return nil, errNilDeviceService
	case pinger == nil:
		return nil, errNilPinger
	case table == nil:
		return nil, errNilHealthTable
	}

	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	if clock == nil {
		clock = realClock{}
	}

	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	initMonitorMetrics()

	return &Monitor{
		config:  cfg,
		devices: devices,
		pinger:  pinger,
		health:  table,
		events:  publisher,
		clock:   clock,
		logger:  log,
		done:    make(chan struct{}),
	}, nil
}

// Start runs one check immediately and then one per interval until the
// context is cancelled or Stop is called. Ticks never overlap.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := m.clock.Ticker(m.config.Interval)
	defer ticker.Stop()

	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info().
		Dur("interval", m.config.Interval).
		Dur("grace", m.config.Grace).
		Bool("auto_removal", m.config.Grace > 0).
		Msg("Starting reachability monitor")

	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case <-ticker.Chan():
			m.Tick(ctx)
		}
	}
}

// Stop implements the lifecycle.Service interface.
func (m *Monitor) Stop(ctx context.Context) error {
	m.closeOnce.Do(func() {
		close(m.done)
	})

	stopped := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		m.logger.Info().Msg("Reachability monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick checks every active managed device once. A failure for one device
// never stops the others from being checked.
func (m *Monitor) Tick(ctx context.Context) {
	now := m.clock.Now()

	devices, err := m.devices.ListDevices(ctx, true, "")
	if err != nil {
		m.logger.Error().Err(err).Msg("Could not list devices for reachability check")
		return
	}

	g := errgroup.Group{}
	g.SetLimit(m.config.Concurrency)

	checked := 0

	for i := range devices {
		d := devices[i]
		if d.State != models.StateActive || !d.IsBigIP {
			continue
		}

		checked++

		g.Go(func() error {
			m.check(ctx, &d, now)
			return nil
		})
	}

	_ = g.Wait()

	reachable, unreachable := m.health.Counts()
	recordTick(now, reachable, unreachable)

	m.logger.Debug().
		Int("checked", checked).
		Int("reachable", reachable).
		Int("unreachable", unreachable).
		Msg("Reachability check complete")
}

func (m *Monitor) check(ctx context.Context, d *models.ProjectedDevice, now time.Time) {
	key := d.Key()
	log := m.logger.With().Str("device", key).Str("phase", "ping").Logger()

	pingErr := m.pinger.PingRemote(ctx, d.TargetHost, d.TargetPort)
	if pingErr == nil {
		prev, _ := m.health.Lookup(key)
		m.health.MarkReachable(key, now)

		if prev.FailedSince != nil {
			log.Info().Time("failed_since", *prev.FailedSince).Msg("Device is reachable again")
			m.publish(ctx, models.TrustEventRecovered, d, "", prev.FailedSince, now)
		}

		return
	}

	reason := pingErr.Error()

	failedSince, existed := m.health.MarkUnreachable(key, now, reason)
	if !existed {
		log.Warn().Err(pingErr).Msg("Device is unreachable")
		m.publish(ctx, models.TrustEventUnreachable, d, reason, &failedSince, now)

		return
	}

	if m.config.Grace <= 0 {
		return
	}

	elapsed := now.Sub(failedSince)
	if elapsed <= m.config.Grace {
		log.Debug().Dur("elapsed", elapsed).Dur("grace", m.config.Grace).Msg("Device still unreachable")
		return
	}

	log.Warn().Dur("elapsed", elapsed).Str("reason", reason).Msg("Removing trust for device unreachable past grace period")

	if err := m.devices.Teardown(ctx, []models.ProjectedDevice{*d}); err != nil {
		log.Error().Err(err).Msg("Could not remove unreachable device")
		return
	}

	m.health.Forget(key)
	autoRemovals.Add(ctx, 1)
	m.publish(ctx, models.TrustEventAutoRemoved, d, reason, &failedSince, now)
}

func (m *Monitor) publish(ctx context.Context, kind models.TrustEventKind, d *models.ProjectedDevice,
	reason string, failedSince *time.Time, now time.Time) {
	data := models.TrustEventData{
		Kind:        kind,
		TargetHost:  d.TargetHost,
		TargetPort:  d.TargetPort,
		TargetUUID:  d.TargetUUID,
		GroupName:   d.GroupName,
		Reason:      reason,
		FailedSince: failedSince,
		Timestamp:   now,
	}

	if err := m.events.Publish(ctx, data); err != nil {
		m.logger.Warn().Err(err).Str("device", d.Key()).Str("kind", string(kind)).Msg("Failed to publish trust event")
	}
}
