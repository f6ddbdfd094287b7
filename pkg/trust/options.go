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
	"time"

	"github.com/carverauto/trustproxy/pkg/models"
)

// Options carry the reconciliation policy.
type Options struct {
	GroupPrefix   string
	GroupCapacity int

	InProgressStates []string
	// RetrustInProgress resets in-progress devices when credentials are declared.
	RetrustInProgress bool
	// MinCertDeleteVersion is the lowest REST framework major version that
	// supports deleting its own trust certificates.
	MinCertDeleteVersion int

	// SettleDelay is waited after additions before verifying them.
	SettleDelay time.Duration
	// CleanupTimeout bounds background removal of failed devices.
	CleanupTimeout time.Duration
}

// OptionsFromConfig extracts Options from a validated service configuration.
func OptionsFromConfig(cfg *models.Config) Options {
	return Options{
		GroupPrefix:          cfg.Groups.Prefix,
		GroupCapacity:        cfg.Groups.Capacity,
		InProgressStates:     cfg.Trust.InProgressStates,
		RetrustInProgress:    cfg.Trust.RetrustsInProgress(),
		MinCertDeleteVersion: cfg.Trust.MinCertDeleteVersion,
		SettleDelay:          time.Duration(cfg.Trust.SettleDelay),
		CleanupTimeout:       time.Duration(cfg.Trust.CleanupTimeout),
	}
}
