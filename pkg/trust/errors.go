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
	"errors"
	"fmt"
	"strings"
)

const (
	msgDeclarationMissing = "declaration missing"
	msgMissingCredentials = "declared device missing targetUsername or targetPassphrase"
	msgMissingHost        = "declared device missing targetHost"
)

var errMissingEntryPath = errors.New("device record has no entry path")

// ValidationError rejects caller input before any mutation is issued.
type ValidationError struct {
	Device  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Device == "" {
		return e.Message
	}

	return e.Message + ": " + e.Device
}

// ErrDeclarationMissing reports a declaration without a devices field.
func ErrDeclarationMissing() error {
	return &ValidationError{Message: msgDeclarationMissing}
}

// NotFoundError reports that a requested target is not trusted.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %s not found", e.Target)
}

// TeardownError names the devices whose container entry could not be removed.
type TeardownError struct {
	Devices []string
	Err     error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("could not remove trusted device from the proxy [%s]: %v", strings.Join(e.Devices, ", "), e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

// AddError names the device whose placement or addition failed.
type AddError struct {
	Devices []string
	Err     error
}

func (e *AddError) Error() string {
	return fmt.Sprintf("could not add trusted device to proxy [%s]: %v", strings.Join(e.Devices, ", "), e.Err)
}

func (e *AddError) Unwrap() error {
	return e.Err
}
