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
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/models"
)

// plan is the outcome of diffing declared against current devices.
type plan struct {
	remove []models.ProjectedDevice
	add    []models.DeclaredDevice
}

// placement locates a freshly added entry for verification.
type placement struct {
	group string
	uuid  string
	key   string
}

// Reconcile makes the trusted set equal the declared set. Removals finish
// before any addition starts. Validation failures abort before mutation.
func (s *Service) Reconcile(ctx context.Context, desired []models.DeclaredDevice) ([]models.ProjectedDevice, error) {
	reconcilesTotal.Add(ctx, 1)

	order, byKey, err := normalize(desired)
	if err != nil {
		validationFailures.Add(ctx, 1)
		return nil, err
	}

	view, err := s.collect(ctx, true)
	if err != nil {
		return nil, err
	}

	// Failed records are part of the current set so they can be reset.
	current := append(view.devices, view.failed...)

	p, err := s.classify(order, byKey, current)
	if err != nil {
		validationFailures.Add(ctx, 1)
		return nil, err
	}

	s.logger.Info().
		Int("declared", len(order)).
		Int("current", len(current)).
		Int("remove", len(p.remove)).
		Int("add", len(p.add)).
		Msg("Reconciling trusted devices")

	if err := s.Teardown(ctx, p.remove); err != nil {
		return nil, err
	}

	if err := s.addDevices(ctx, p.add); err != nil {
		return nil, err
	}

	return s.ListDevices(ctx, false, "")
}

// normalize defaults ports and keys declarations by host:port. A repeated
// key keeps its first position and its last declaration.
func normalize(desired []models.DeclaredDevice) ([]string, map[string]models.DeclaredDevice, error) {
	order := make([]string, 0, len(desired))
	byKey := make(map[string]models.DeclaredDevice, len(desired))

	for _, d := range desired {
		d.TargetHost = strings.TrimSpace(d.TargetHost)
		if d.TargetHost == "" {
			return nil, nil, &ValidationError{Message: msgMissingHost}
		}

		port := d.Port()
		d.TargetPort = &port

		key := d.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}

		byKey[key] = d
	}

	return order, byKey, nil
}

// classify splits the declared and current sets into removals and additions.
// Every current device not kept as-is is removed; every declared device not
// kept as-is must carry credentials and is added.
func (s *Service) classify(order []string, desired map[string]models.DeclaredDevice, current []models.ProjectedDevice) (plan, error) {
	currentByKey := make(map[string]*models.ProjectedDevice, len(current))
	for i := range current {
		currentByKey[current[i].Key()] = &current[i]
	}

	keep := make(map[string]struct{})

	var p plan

	for _, key := range order {
		d := desired[key]
		existing, found := currentByKey[key]

		if found {
			active := existing.State == models.StateActive
			inProgress := s.IsInProgress(existing.State)

			if active || inProgress {
				retrust := d.HasCredentials() && (active || s.opts.RetrustInProgress)
				if !retrust {
					keep[key] = struct{}{}
					continue
				}

				s.logger.Info().Str("device", key).Str("state", existing.State).
					Msg("Resetting device because credentials were supplied")
			} else {
				s.logger.Info().Str("device", key).Str("state", existing.State).
					Msg("Resetting device because of its state")
			}
		}

		if !d.HasCredentials() {
			return plan{}, &ValidationError{Device: key, Message: msgMissingCredentials}
		}

		p.add = append(p.add, d)
	}

	for i := range current {
		if _, kept := keep[current[i].Key()]; !kept {
			p.remove = append(p.remove, current[i])
		}
	}

	return p, nil
}

// addDevices places and adds devices one at a time so each placement sees
// the previous one. The first failure aborts the batch.
func (s *Service) addDevices(ctx context.Context, devices []models.DeclaredDevice) error {
	if len(devices) == 0 {
		return nil
	}

	placed := make([]placement, 0, len(devices))

	for i := range devices {
		d := &devices[i]
		key := d.Key()

		group, err := s.ResolveTargetContainer(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("device", key).Str("phase", "resolve_group").Msg("Could not place device")
			return &AddError{Devices: []string{key}, Err: err}
		}

		creds := gateway.Credentials{Username: *d.TargetUsername, Passphrase: *d.TargetPassphrase}

		record, err := s.gw.AddDevice(ctx, group, creds, d.TargetHost, d.Port())
		if err != nil {
			s.logger.Error().Err(err).Str("device", key).Str("group", group).Str("phase", "add").Msg("Could not add device")
			return &AddError{Devices: []string{key}, Err: err}
		}

		devicesAdded.Add(ctx, 1)

		placed = append(placed, placement{group: group, uuid: record.UUID, key: key})

		s.publish(ctx, models.TrustEventAdded, &models.ProjectedDevice{
			TargetHost: d.TargetHost,
			TargetPort: d.Port(),
			GroupName:  group,
			State:      record.State,
		}, "")
	}

	s.verifyPlacements(ctx, placed)

	return nil
}

// verifyPlacements waits for the proxy to settle and logs additions that
// cannot be found in their container. It never fails the call.
func (s *Service) verifyPlacements(ctx context.Context, placed []placement) {
	if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
		return
	}

	byGroup := make(map[string][]placement)
	for _, p := range placed {
		byGroup[p.group] = append(byGroup[p.group], p)
	}

	var g errgroup.Group

	for group, items := range byGroup {
		g.Go(func() error {
			records, err := s.gw.QueryDevices(ctx, group)
			if err != nil {
				s.logger.Warn().Err(err).Str("group", group).Msg("Could not verify added devices")
				return nil
			}

			present := make(map[string]struct{}, len(records))
			for i := range records {
				present[records[i].UUID] = struct{}{}
			}

			for _, p := range items {
				if _, ok := present[p.uuid]; !ok {
					s.logger.Error().Str("device", p.key).Str("uuid", p.uuid).Str("group", group).
						Msg("Could not find added device in group")
				}
			}

			return nil
		})
	}

	_ = g.Wait()
}
