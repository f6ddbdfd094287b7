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
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/trustproxy/pkg/models"
)

// deviceView is one pass over every managed container.
type deviceView struct {
	devices []models.ProjectedDevice
	// failed holds terminal-failed records, which are never listed.
	failed []models.ProjectedDevice
}

// ListDevices returns the trusted devices. Without includeHidden only
// managed-device-class and in-progress entries are returned and internal
// fields are cleared. A non-empty target restricts the result to devices
// whose host or identity equals it and yields a *NotFoundError when none do.
// Terminal-failed records are removed in the background.
func (s *Service) ListDevices(ctx context.Context, includeHidden bool, target string) ([]models.ProjectedDevice, error) {
	view, err := s.collect(ctx, includeHidden)
	if err != nil {
		return nil, err
	}

	s.cleanupFailed(ctx, view.failed)

	out := make([]models.ProjectedDevice, 0, len(view.devices))

	for i := range view.devices {
		d := &view.devices[i]
		if !d.Matches(target) {
			continue
		}

		if includeHidden {
			out = append(out, *d)
		} else {
			out = append(out, d.Public())
		}
	}

	if target != "" && len(out) == 0 {
		return nil, &NotFoundError{Target: target}
	}

	return out, nil
}

func (s *Service) collect(ctx context.Context, includeHidden bool) (deviceView, error) {
	proxyID, err := s.gw.GetProxyMachineID(ctx)
	if err != nil {
		return deviceView{}, err
	}

	groups, err := s.gw.QueryGroupContainers(ctx)
	if err != nil {
		return deviceView{}, err
	}

	records, err := s.queryGroups(ctx, groups)
	if err != nil {
		return deviceView{}, err
	}

	var view deviceView

	for _, group := range records {
		for i := range group {
			r := &group[i]

			if r.MachineID != "" && r.MachineID == proxyID {
				continue
			}

			managed := r.IsManagedDevice()
			p := s.project(r)

			if models.IsTerminalFailure(r.State) {
				p.IsBigIP = managed
				view.failed = append(view.failed, p)

				continue
			}

			inProgress := s.IsInProgress(r.State)
			if !managed && !inProgress && !includeHidden {
				continue
			}

			p.IsBigIP = managed || inProgress
			view.devices = append(view.devices, p)
		}
	}

	return view, nil
}

// queryGroups fetches every container's records concurrently, keeping the
// container order.
func (s *Service) queryGroups(ctx context.Context, groups []string) ([][]models.DeviceRecord, error) {
	results := make([][]models.DeviceRecord, len(groups))

	var (
		g       errgroup.Group
		mu      sync.Mutex
		joinErr error
	)

	for i, name := range groups {
		g.Go(func() error {
			records, err := s.gw.QueryDevices(ctx, name)
			if err != nil {
				mu.Lock()
				joinErr = errors.Join(joinErr, err)
				mu.Unlock()

				return nil
			}

			results[i] = records

			return nil
		})
	}

	_ = g.Wait()

	if joinErr != nil {
		return nil, joinErr
	}

	return results, nil
}

// project merges a record with its health facts.
func (s *Service) project(r *models.DeviceRecord) models.ProjectedDevice {
	port := r.HTTPSPort
	if port == 0 {
		port = models.DefaultTargetPort
	}

	p := models.ProjectedDevice{
		TargetHost: r.Address,
		TargetPort: port,
		TargetUUID: r.MachineID,
		State:      r.State,
		MachineID:  r.MachineID,
		URL:        models.DeviceEntryPath(r.GroupName, r.UUID),
		GroupName:  r.GroupName,
		EntryUUID:  r.UUID,
	}

	if r.IsManagedDevice() {
		p.TargetHostname = r.Hostname
		p.TargetVersion = r.Version
		p.TargetRESTVersion = r.RESTFrameworkVersion
		p.Available = boolPtr(false)
	}

	if st, ok := s.health.Lookup(p.Key()); ok {
		switch {
		case st.ReachableSince != nil:
			validated := *st.ReachableSince
			p.LastValidated = &validated
			p.Available = boolPtr(true)
		case st.FailedSince != nil:
			since := *st.FailedSince
			p.FailedSince = &since
			p.FailedReason = st.FailedReason
			p.Available = boolPtr(false)
		}
	}

	return p
}

// cleanupFailed removes terminal-failed records without blocking the listing.
func (s *Service) cleanupFailed(ctx context.Context, failed []models.ProjectedDevice) {
	if len(failed) == 0 {
		return
	}

	for i := range failed {
		s.logger.Warn().
			Str("device", failed[i].Key()).
			Str("machine_id", failed[i].MachineID).
			Str("state", failed[i].State).
			Msg("Removing device in failed state")
	}

	s.cleanup.Add(1)

	go func() {
		defer s.cleanup.Done()

		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CleanupTimeout)
		defer cancel()

		if err := s.Teardown(cleanupCtx, failed); err != nil {
			s.logger.Error().Err(err).Msg("Failed to remove devices in failed state")
		}
	}()
}

func boolPtr(v bool) *bool {
	return &v
}
