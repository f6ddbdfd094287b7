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

import "time"

// CloudEvent represents a CloudEvents v1.0 envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time"`
	Data            interface{} `json:"data"`
}

// TrustEventKind names a trust lifecycle transition.
type TrustEventKind string

const (
	TrustEventAdded       TrustEventKind = "added"
	TrustEventRemoved     TrustEventKind = "removed"
	TrustEventUnreachable TrustEventKind = "unreachable"
	TrustEventRecovered   TrustEventKind = "recovered"
	TrustEventAutoRemoved TrustEventKind = "auto_removed"
)

// TrustEventData is the payload of a trust lifecycle event.
type TrustEventData struct {
	Kind        TrustEventKind `json:"kind"`
	TargetHost  string         `json:"targetHost"`
	TargetPort  int            `json:"targetPort"`
	TargetUUID  string         `json:"targetUUID,omitempty"`
	GroupName   string         `json:"groupName,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	FailedSince *time.Time     `json:"failedSince,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
