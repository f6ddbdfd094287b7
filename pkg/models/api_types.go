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

// ErrorResponse represents an API error response
type ErrorResponse struct {
	// Error message
	Message string `json:"message" example:"declaration missing"`
	// HTTP status code
	Status int `json:"status" example:"400"`
}

// DeclarationRequest is the body of a trusted-devices POST. A nil Devices
// means the field was absent.
type DeclarationRequest struct {
	Devices *[]DeclaredDevice `json:"devices"`
}

// DevicesResponse wraps a device listing.
type DevicesResponse struct {
	Devices []ProjectedDevice `json:"devices"`
}
