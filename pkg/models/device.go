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

// Package models holds the trust proxy's data model: raw device records from
// the proxy's device-group API, caller declarations, and projected views.
package models

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTargetPort = 443

	StateActive       = "ACTIVE"
	StateUndiscovered = "UNDISCOVERED"

	DeviceGroupsPath = "/mgmt/shared/resolver/device-groups"
)

// DefaultInProgressStates are the discovery, certificate installation and
// deletion states a device passes through before it becomes ACTIVE.
func DefaultInProgressStates() []string {
	return []string{
		"PENDING",
		"FRAMEWORK_DEPLOYMENT_PENDING",
		"CERTIFICATE_INSTALL",
		"PENDING_DELETE",
		StateUndiscovered,
	}
}

// IsTerminalFailure reports whether a device state carries a failure or error marker.
func IsTerminalFailure(state string) bool {
	return strings.Contains(state, "FAIL") || strings.Contains(state, "ERROR")
}

// DeviceKey is the natural key of a trusted device.
func DeviceKey(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// DeviceEntryPath is the container-scoped entry reference of one device record.
func DeviceEntryPath(groupName, uuid string) string {
	return DeviceGroupsPath + "/" + groupName + "/devices/" + uuid
}

// DeviceRecord is one entry inside a group container on the proxy.
type DeviceRecord struct {
	UUID                 string `json:"uuid"`
	MachineID            string `json:"machineId,omitempty"`
	Address              string `json:"address"`
	HTTPSPort            int    `json:"httpsPort"`
	State                string `json:"state"`
	GroupName            string `json:"groupName"`
	MCPDeviceName        string `json:"mcpDeviceName,omitempty"`
	Hostname             string `json:"hostname,omitempty"`
	Version              string `json:"version,omitempty"`
	RESTFrameworkVersion string `json:"restFrameworkVersion,omitempty"`
}

// IsManagedDevice reports whether the record is a full control-plane node.
// Only those carry an mcpDeviceName.
func (r *DeviceRecord) IsManagedDevice() bool {
	return r.MCPDeviceName != ""
}

func (r *DeviceRecord) Key() string {
	return DeviceKey(r.Address, r.HTTPSPort)
}

// DeclaredDevice is a caller-supplied trust target. Pointer fields are
// optional; presence, not value, is what the reconciler checks.
type DeclaredDevice struct {
	TargetHost       string  `json:"targetHost"`
	TargetPort       *int    `json:"targetPort,omitempty"`
	TargetUsername   *string `json:"targetUsername,omitempty"`
	TargetPassphrase *string `json:"targetPassphrase,omitempty"`
	TargetUUID       string  `json:"targetUUID,omitempty"`
}

// Port returns the declared port or DefaultTargetPort.
func (d *DeclaredDevice) Port() int {
	if d.TargetPort == nil || *d.TargetPort == 0 {
		return DefaultTargetPort
	}

	return *d.TargetPort
}

func (d *DeclaredDevice) Key() string {
	return DeviceKey(d.TargetHost, d.Port())
}

// HasCredentials reports whether a non-empty username and passphrase were
// both supplied.
func (d *DeclaredDevice) HasCredentials() bool {
	return d.TargetUsername != nil && *d.TargetUsername != "" &&
		d.TargetPassphrase != nil && *d.TargetPassphrase != ""
}

// ProjectedDevice is the normalized view of a device record merged with
// health facts. MachineID, URL and IsBigIP are internal and never serialized.
type ProjectedDevice struct {
	TargetHost        string     `json:"targetHost"`
	TargetPort        int        `json:"targetPort"`
	TargetUUID        string     `json:"targetUUID,omitempty"`
	State             string     `json:"state"`
	TargetHostname    string     `json:"targetHostname,omitempty"`
	TargetVersion     string     `json:"targetVersion,omitempty"`
	TargetRESTVersion string     `json:"targetRESTVersion,omitempty"`
	Available         *bool      `json:"available,omitempty"`
	LastValidated     *time.Time `json:"lastValidated,omitempty"`
	FailedSince       *time.Time `json:"failedSince,omitempty"`
	FailedReason      string     `json:"failedReason,omitempty"`

	MachineID string `json:"-"`
	URL       string `json:"-"`
	IsBigIP   bool   `json:"-"`

	// GroupName and EntryUUID locate the record for post-add checks.
	GroupName string `json:"-"`
	EntryUUID string `json:"-"`
}

func (p *ProjectedDevice) Key() string {
	return DeviceKey(p.TargetHost, p.TargetPort)
}

// Public returns a copy with every internal field cleared.
func (p ProjectedDevice) Public() ProjectedDevice {
	p.MachineID = ""
	p.URL = ""
	p.IsBigIP = false
	p.GroupName = ""
	p.EntryUUID = ""

	return p
}

// Matches reports whether target names the device by host or identity.
func (p *ProjectedDevice) Matches(target string) bool {
	return target == "" || p.TargetHost == target || p.TargetUUID == target
}
