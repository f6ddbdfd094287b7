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

//go:generate mockgen -destination=mock_monitor.go -package=monitor github.com/carverauto/trustproxy/pkg/monitor Clock,Ticker,DeviceService,Pinger

import (
	"context"
	"time"

	"github.com/carverauto/trustproxy/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// DeviceService lists trusted devices and tears their trust down.
type DeviceService interface {
	ListDevices(ctx context.Context, includeHidden bool, target string) ([]models.ProjectedDevice, error)
	Teardown(ctx context.Context, devices []models.ProjectedDevice) error
}

// Pinger checks that a remote device answers through the proxy.
type Pinger interface {
	PingRemote(ctx context.Context, host string, port int) error
}
