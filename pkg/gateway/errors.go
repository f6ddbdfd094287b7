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

package gateway

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var (
	ErrUnexpectedStatus    = errors.New("unexpected status code")
	ErrMachineIDUnresolved = errors.New("can not resolve proxy machineId")
	errCredentialsRequired = errors.New("username and passphrase are required")
)

// GatewayError is a failed exchange with the local management API.
type GatewayError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// RemoteDeviceError is a failed exchange with a remote device's own endpoint.
type RemoteDeviceError struct {
	Op   string
	Host string
	Port int
	Err  error
}

func (e *RemoteDeviceError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Err)
}

func (e *RemoteDeviceError) Unwrap() error {
	return e.Err
}
