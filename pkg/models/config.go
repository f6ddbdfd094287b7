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

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/trustproxy/pkg/logger"
)

// Duration accepts Go duration strings or integer nanoseconds in JSON.
type Duration = logger.Duration

const (
	defaultListenAddr             = ":8105"
	defaultManagementURL          = "http://localhost:8100"
	defaultManagementUser         = "admin"
	defaultMachineIDFile          = "/machineId"
	defaultLocalTimeout           = 5 * time.Second
	defaultRemoteTimeout          = 10 * time.Second
	defaultPingTimeout            = 20 * time.Second
	defaultGroupPrefix            = "TrustProxy_"
	defaultGroupCapacity          = 10
	defaultGroupDisplay           = "Trusted Proxy Device Group"
	defaultGroupDescription       = "Group to establish trust for control plane request proxying"
	defaultMonitorInterval        = 30 * time.Second
	defaultMonitorConcurrency     = 16
	defaultMinCertDeleteVersion   = 13
	defaultSettleDelay            = time.Second
	defaultCleanupTimeout         = 60 * time.Second
	defaultEventStream            = "trust-events"
	defaultEventSubjectPrefix     = "trust.devices"
	failedDeviceRemovalEnvironKey = "FAILED_DEVICE_REMOVAL_MILLISECONDS"
)

var (
	errManagementURLInvalid = errors.New("management.base_url must be an absolute http(s) URL")
	errGroupPrefixRequired  = errors.New("groups.prefix is required")
	errGroupCapacityInvalid = errors.New("groups.capacity must be positive")
	errMonitorInterval      = errors.New("monitor.interval must be positive")
	errGraceNegative        = errors.New("monitor.failed_device_removal must not be negative")
	errInvalidRemovalEnv    = errors.New("invalid " + failedDeviceRemovalEnvironKey)
)

// Config is the trust proxy service configuration.
type Config struct {
	ListenAddr string                `json:"listen_addr"`
	APIKey     string                `json:"api_key,omitempty" sensitive:"true"`
	Logging    *logger.Config        `json:"logging"`
	Metrics    *logger.MetricsConfig `json:"metrics,omitempty"`
	Management ManagementConfig      `json:"management"`
	Remote     RemoteConfig          `json:"remote"`
	Groups     GroupConfig           `json:"groups"`
	Monitor    MonitorConfig         `json:"monitor"`
	Trust      TrustConfig           `json:"trust"`
	Events     EventsConfig          `json:"events"`
}

// ManagementConfig addresses the local proxy's management API.
type ManagementConfig struct {
	BaseURL       string   `json:"base_url"`
	Username      string   `json:"username"`
	Password      string   `json:"password" sensitive:"true"`
	MachineIDFile string   `json:"machine_id_file"`
	Timeout       Duration `json:"timeout"`
}

// RemoteConfig governs calls made to remote devices.
type RemoteConfig struct {
	Timeout     Duration        `json:"timeout"`
	PingTimeout Duration        `json:"ping_timeout"`
	Security    *SecurityConfig `json:"security,omitempty"`
}

// GroupConfig describes the managed group containers.
type GroupConfig struct {
	Prefix      string `json:"prefix"`
	Capacity    int    `json:"capacity"`
	Display     string `json:"display"`
	Description string `json:"description"`
}

// MonitorConfig drives the reachability monitor.
type MonitorConfig struct {
	Interval Duration `json:"interval"`
	// FailedDeviceRemoval is the grace period before an unreachable device is
	// un-trusted. Zero disables automatic removal.
	FailedDeviceRemoval Duration `json:"failed_device_removal"`
	Concurrency         int      `json:"concurrency"`
}

// TrustConfig holds reconciliation policy.
type TrustConfig struct {
	InProgressStates []string `json:"in_progress_states"`
	// RetrustInProgress resets in-progress devices when fresh credentials are
	// declared. When false only ACTIVE devices are reset.
	RetrustInProgress    *bool    `json:"retrust_in_progress,omitempty"`
	MinCertDeleteVersion int      `json:"min_cert_delete_version"`
	SettleDelay          Duration `json:"settle_delay"`
	CleanupTimeout       Duration `json:"cleanup_timeout"`
}

// RetrustsInProgress resolves RetrustInProgress with its default of true.
func (c *TrustConfig) RetrustsInProgress() bool {
	return c.RetrustInProgress == nil || *c.RetrustInProgress
}

// EventsConfig enables trust lifecycle events on NATS JetStream.
type EventsConfig struct {
	NATSURL       string          `json:"nats_url,omitempty"`
	Stream        string          `json:"stream"`
	SubjectPrefix string          `json:"subject_prefix"`
	Security      *SecurityConfig `json:"security,omitempty"`
}

// Enabled reports whether an event broker is configured.
func (c *EventsConfig) Enabled() bool {
	return c.NATSURL != ""
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	m := &c.Management
	if m.BaseURL == "" {
		m.BaseURL = defaultManagementURL
	}

	if m.Username == "" {
		m.Username = defaultManagementUser
	}

	if m.MachineIDFile == "" {
		m.MachineIDFile = defaultMachineIDFile
	}

	setDuration(&m.Timeout, defaultLocalTimeout)
	setDuration(&c.Remote.Timeout, defaultRemoteTimeout)
	setDuration(&c.Remote.PingTimeout, defaultPingTimeout)

	g := &c.Groups
	if g.Prefix == "" {
		g.Prefix = defaultGroupPrefix
	}

	if g.Capacity == 0 {
		g.Capacity = defaultGroupCapacity
	}

	if g.Display == "" {
		g.Display = defaultGroupDisplay
	}

	if g.Description == "" {
		g.Description = defaultGroupDescription
	}

	setDuration(&c.Monitor.Interval, defaultMonitorInterval)

	if c.Monitor.Concurrency <= 0 {
		c.Monitor.Concurrency = defaultMonitorConcurrency
	}

	t := &c.Trust
	if len(t.InProgressStates) == 0 {
		t.InProgressStates = DefaultInProgressStates()
	}

	if t.MinCertDeleteVersion == 0 {
		t.MinCertDeleteVersion = defaultMinCertDeleteVersion
	}

	setDuration(&t.SettleDelay, defaultSettleDelay)
	setDuration(&t.CleanupTimeout, defaultCleanupTimeout)

	if c.Events.Stream == "" {
		c.Events.Stream = defaultEventStream
	}

	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = defaultEventSubjectPrefix
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

// ApplyEnvOverrides applies FAILED_DEVICE_REMOVAL_MILLISECONDS when set.
func (c *Config) ApplyEnvOverrides() error {
	raw := strings.TrimSpace(os.Getenv(failedDeviceRemovalEnvironKey))
	if raw == "" {
		return nil
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return fmt.Errorf("%w: %q", errInvalidRemovalEnv, raw)
	}

	c.Monitor.FailedDeviceRemoval = Duration(time.Duration(ms) * time.Millisecond)

	return nil
}

// Validate applies defaults and checks the configuration.
func (c *Config) Validate() error {
	c.ApplyDefaults()

	u, err := url.Parse(c.Management.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errManagementURLInvalid, c.Management.BaseURL)
	}

	if strings.TrimSpace(c.Groups.Prefix) == "" {
		return errGroupPrefixRequired
	}

	if c.Groups.Capacity < 0 {
		return errGroupCapacityInvalid
	}

	if c.Monitor.Interval < 0 {
		return errMonitorInterval
	}

	if c.Monitor.FailedDeviceRemoval < 0 {
		return errGraceNegative
	}

	return nil
}
