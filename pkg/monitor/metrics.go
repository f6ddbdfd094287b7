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

package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const monitorMeterName = "github.com/carverauto/trustproxy/pkg/monitor"

// monitorObservatory stores the latest tick measurements.
type monitorObservatory struct {
	reachable      atomic.Int64
	unreachable    atomic.Int64
	lastTickUnixMs atomic.Int64
}

//nolint:gochecknoglobals // metric observers are shared singletons
var (
	monitorMetricsOnce sync.Once
	monitorMetricsData = &monitorObservatory{}

	autoRemovals metric.Int64Counter = noop.Int64Counter{}

	monitorRegistration metric.Registration //nolint:unused // kept to retain callback
)

func initMonitorMetrics() {
	monitorMetricsOnce.Do(func() {
		meter := otel.Meter(monitorMeterName)

		counter, err := meter.Int64Counter("trust_devices_auto_removed_total",
			metric.WithDescription("Devices un-trusted after staying unreachable past the grace period"))
		if err != nil {
			otel.Handle(err)
		} else {
			autoRemovals = counter
		}

		reachable, err := meter.Int64ObservableGauge("trust_devices_reachable",
			metric.WithDescription("Trusted managed devices that answered the latest ping"))
		if err != nil {
			otel.Handle(err)
			return
		}

		unreachable, err := meter.Int64ObservableGauge("trust_devices_unreachable",
			metric.WithDescription("Trusted managed devices currently failing their ping"))
		if err != nil {
			otel.Handle(err)
			return
		}

		lastTick, err := meter.Int64ObservableGauge("trust_monitor_last_tick_timestamp_ms",
			metric.WithDescription("Unix epoch milliseconds of the latest reachability check"))
		if err != nil {
			otel.Handle(err)
			return
		}

		registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(reachable, monitorMetricsData.reachable.Load())
			observer.ObserveInt64(unreachable, monitorMetricsData.unreachable.Load())
			observer.ObserveInt64(lastTick, monitorMetricsData.lastTickUnixMs.Load())

			return nil
		}, reachable, unreachable, lastTick)
		if err != nil {
			otel.Handle(err)
			return
		}

		monitorRegistration = registration
	})
}

func recordTick(at time.Time, reachable, unreachable int) {
	monitorMetricsData.reachable.Store(int64(reachable))
	monitorMetricsData.unreachable.Store(int64(unreachable))
	monitorMetricsData.lastTickUnixMs.Store(at.UnixMilli())
}
