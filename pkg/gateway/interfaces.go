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

// Package gateway talks to the local proxy's management API and to the
// management endpoints of remote trusted devices. It carries no policy.
package gateway

//go:generate mockgen -destination=mock_gateway.go -package=gateway github.com/carverauto/trustproxy/pkg/gateway Gateway

import (
	"context"

	"github.com/carverauto/trustproxy/pkg/models"
)

// FailurePolicy selects how remote-device certificate operations report
// transport or status failures.
type FailurePolicy int

const (
	// SoftFail logs the failure and degrades to an empty result or a no-op.
	SoftFail FailurePolicy = iota
	// HardFail returns a *RemoteDeviceError.
	HardFail
)

func (p FailurePolicy) String() string {
	if p == HardFail {
		return "hard"
	}

	return "soft"
}

// Credentials authenticate the proxy to a device while it is being trusted.
type Credentials struct {
	Username   string
	Passphrase string
}

// Gateway is the I/O boundary of the trust proxy.
type Gateway interface {
	// GetProxyMachineID returns the proxy's own identity, falling back to the
	// local machine-id file when the device-info document omits it.
	GetProxyMachineID(ctx context.Context) (string, error)
	// QueryGroupContainers returns the names of prefixed group containers in API order.
	QueryGroupContainers(ctx context.Context) ([]string, error)
	CreateGroupContainer(ctx context.Context, name string) error
	QueryDevices(ctx context.Context, group string) ([]models.DeviceRecord, error)
	AddDevice(ctx context.Context, group string, creds Credentials, host string, port int) (*models.DeviceRecord, error)
	// RemoveDeviceEntry deletes one device record by its container-scoped entry path.
	// A missing entry is treated as removed.
	RemoveDeviceEntry(ctx context.Context, entryPath string) error
	QueryProxyCertificates(ctx context.Context) ([]models.Certificate, error)
	DeleteProxyCertificate(ctx context.Context, certificateID string) error
	QueryRemoteCertificates(ctx context.Context, host string, port int, policy FailurePolicy) ([]models.Certificate, error)
	DeleteRemoteCertificate(ctx context.Context, host string, port int, certificateID string, policy FailurePolicy) error
	// PingRemote calls the remote echo endpoint. A nil error means reachable.
	PingRemote(ctx context.Context, host string, port int) error
}
