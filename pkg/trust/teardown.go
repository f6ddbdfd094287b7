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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/models"
)

// Teardown removes trust for every device concurrently. For each device the
// certificate cleanup runs before the container entry is removed; cleanup
// failures are logged and never prevent the entry removal. Entry removal
// failures are returned as a *TeardownError naming the devices.
func (s *Service) Teardown(ctx context.Context, devices []models.ProjectedDevice) error {
	if len(devices) == 0 {
		return nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		failed  []string
		joinErr error
	)

	for i := range devices {
		d := devices[i]

		g.Go(func() error {
			if err := s.teardownOne(ctx, &d); err != nil {
				teardownFailures.Add(ctx, 1)

				s.logger.Error().Err(err).Str("device", d.Key()).Str("phase", "remove_entry").
					Msg("Could not remove device from device group")

				mu.Lock()
				failed = append(failed, d.Key())
				joinErr = errors.Join(joinErr, err)
				mu.Unlock()

				return nil
			}

			devicesRemoved.Add(ctx, 1)
			s.publish(ctx, models.TrustEventRemoved, &d, "")

			return nil
		})
	}

	_ = g.Wait()

	if joinErr != nil {
		sort.Strings(failed)
		return &TeardownError{Devices: failed, Err: joinErr}
	}

	return nil
}

func (s *Service) teardownOne(ctx context.Context, d *models.ProjectedDevice) error {
	if d.IsBigIP {
		s.removeRemoteCertificates(ctx, d)
	}

	if d.MachineID != "" {
		s.removeProxyCertificates(ctx, d)
	}

	if d.URL == "" {
		return errMissingEntryPath
	}

	s.logger.Info().Str("device", d.Key()).Str("entry", d.URL).Msg("Removing device from device group on proxy")

	return s.gw.RemoveDeviceEntry(ctx, d.URL)
}

// removeRemoteCertificates deletes the proxy's certificate from the remote
// device. Devices whose REST framework predates self-service deletion keep it.
func (s *Service) removeRemoteCertificates(ctx context.Context, d *models.ProjectedDevice) {
	log := s.logger.With().Str("device", d.Key()).Str("phase", "remote_cert").Logger()

	major, err := majorVersion(d.TargetRESTVersion)
	if err != nil {
		log.Debug().Str("rest_version", d.TargetRESTVersion).Msg("Skipping remote certificate removal, unknown version")
		return
	}

	if major < s.opts.MinCertDeleteVersion {
		log.Debug().Int("major", major).Msg("Skipping remote certificate removal, unsupported version")
		return
	}

	proxyID, err := s.gw.GetProxyMachineID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not resolve proxy machineId")
		return
	}

	certs, err := s.gw.QueryRemoteCertificates(ctx, d.TargetHost, d.TargetPort, gateway.SoftFail)
	if err != nil {
		log.Warn().Err(err).Msg("Could not query remote certificates")
		return
	}

	for _, c := range certs {
		if c.MachineID != proxyID {
			continue
		}

		log.Info().Str("certificate_id", c.CertificateID).Msg("Removing proxy certificate from device")

		if err := s.gw.DeleteRemoteCertificate(ctx, d.TargetHost, d.TargetPort, c.CertificateID, gateway.SoftFail); err != nil {
			log.Warn().Err(err).Str("certificate_id", c.CertificateID).Msg("Could not delete remote certificate")
		}
	}
}

// removeProxyCertificates deletes the device's certificates from the proxy.
func (s *Service) removeProxyCertificates(ctx context.Context, d *models.ProjectedDevice) {
	log := s.logger.With().Str("device", d.Key()).Str("phase", "proxy_cert").Logger()

	certs, err := s.gw.QueryProxyCertificates(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not query proxy certificates")
		return
	}

	for _, c := range certs {
		if c.MachineID != d.MachineID {
			continue
		}

		log.Info().Str("certificate_id", c.CertificateID).Str("machine_id", c.MachineID).Msg("Removing device certificate from proxy")

		if err := s.gw.DeleteProxyCertificate(ctx, c.CertificateID); err != nil {
			log.Warn().Err(err).Str("certificate_id", c.CertificateID).Msg("Could not delete proxy certificate")
		}
	}
}

// majorVersion parses the leading component of a dotted version string.
func majorVersion(v string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(v), ".")
	if head == "" {
		return 0, fmt.Errorf("empty version %q", v)
	}

	return strconv.Atoi(head)
}
