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

package trust

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const trustMeterName = "github.com/carverauto/trustproxy/pkg/trust"

//nolint:gochecknoglobals // metric instruments are shared singletons
var (
	trustMetricsOnce sync.Once

	reconcilesTotal    metric.Int64Counter = noop.Int64Counter{}
	validationFailures metric.Int64Counter = noop.Int64Counter{}
	devicesAdded       metric.Int64Counter = noop.Int64Counter{}
	devicesRemoved     metric.Int64Counter = noop.Int64Counter{}
	teardownFailures   metric.Int64Counter = noop.Int64Counter{}
	groupsCreated      metric.Int64Counter = noop.Int64Counter{}
)

func initTrustMetrics() {
	trustMetricsOnce.Do(func() {
		meter := otel.Meter(trustMeterName)

		counters := []struct {
			dst  *metric.Int64Counter
			name string
			desc string
		}{
			{&reconcilesTotal, "trust_reconciles_total", "Number of reconcile calls"},
			{&validationFailures, "trust_validation_failures_total", "Reconcile calls rejected before any mutation"},
			{&devicesAdded, "trust_devices_added_total", "Devices added to a proxy device group"},
			{&devicesRemoved, "trust_devices_removed_total", "Devices whose trust was torn down"},
			{&teardownFailures, "trust_teardown_failures_total", "Devices whose container entry could not be removed"},
			{&groupsCreated, "trust_groups_created_total", "Group containers created by the capacity resolver"},
		}

		for _, c := range counters {
			counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
			if err != nil {
				otel.Handle(err)
				continue
			}

			*c.dst = counter
		}
	})
}
