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

package models

// Certificate is a trust certificate entry from a device-certificates inventory.
type Certificate struct {
	CertificateID string `json:"certificateId"`
	MachineID     string `json:"machineId"`
	Name          string `json:"name,omitempty"`
}

// DeviceGroup is a group container on the proxy.
type DeviceGroup struct {
	GroupName   string `json:"groupName"`
	Display     string `json:"display,omitempty"`
	Description string `json:"description,omitempty"`
}

// DeviceInfo is the proxy's device-info identity document.
type DeviceInfo struct {
	MachineID string `json:"machineId,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	Version   string `json:"version,omitempty"`
}

// AddDeviceRequest is the body posted to a container's devices collection.
type AddDeviceRequest struct {
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	Address   string `json:"address"`
	HTTPSPort int    `json:"httpsPort"`
}

// ItemsResponse is the collection envelope of the management API.
type ItemsResponse[T any] struct {
	Items []T `json:"items,omitempty"`
}
