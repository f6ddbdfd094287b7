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
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

const defaultWorkloadSocket = "unix:/run/spire/sockets/agent.sock"

var (
	errUnknownSecurityMode      = errors.New("unknown security mode")
	errCAParsingFailed          = errors.New("failed to parse CA certificate")
	errFailedWorkloadAPIClient  = errors.New("failed to create workload API client")
	errFailedToCreateX509Source = errors.New("failed to create X.509 source")
	errInvalidTrustDomain       = errors.New("invalid trust domain")
)

// RemoteTLS is the TLS identity the proxy presents to remote devices.
type RemoteTLS struct {
	config *tls.Config

	client    *workloadapi.Client
	source    *workloadapi.X509Source
	closeOnce sync.Once
	logger    logger.Logger
}

// NewRemoteTLS builds the remote-device TLS identity for the configured mode.
// A nil config or mode "none" verifies servers with the system roots only.
func NewRemoteTLS(ctx context.Context, sec *models.SecurityConfig, log logger.Logger) (*RemoteTLS, error) {
	if sec == nil {
		return &RemoteTLS{config: &tls.Config{MinVersion: tls.VersionTLS12}, logger: log}, nil
	}

	switch sec.Mode {
	case models.SecurityModeNone, "":
		//nolint:gosec // remote devices commonly present self-signed management certificates
		cfg := &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         sec.ServerName,
			InsecureSkipVerify: sec.InsecureSkipVerify,
		}

		return &RemoteTLS{config: cfg, logger: log}, nil
	case models.SecurityModeMTLS:
		cfg, err := mtlsConfig(sec)
		if err != nil {
			return nil, err
		}

		return &RemoteTLS{config: cfg, logger: log}, nil
	case models.SecurityModeSpiffe:
		return newSpiffeTLS(ctx, sec, log)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, sec.Mode)
	}
}

// Config returns the client TLS configuration.
func (r *RemoteTLS) Config() *tls.Config {
	return r.config
}

// Close releases the workload API source in SPIFFE mode.
func (r *RemoteTLS) Close() error {
	var err error

	r.closeOnce.Do(func() {
		if r.source != nil {
			if e := r.source.Close(); e != nil {
				r.logger.Error().Err(e).Msg("Failed to close X.509 source")

				err = e
			}
		}

		if r.client != nil {
			if e := r.client.Close(); e != nil {
				r.logger.Error().Err(e).Msg("Failed to close workload client")

				err = e
			}
		}
	})

	return err
}

func mtlsConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(sec.TLS.CertFile, sec.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(sec.TLS.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errCAParsingFailed
	}

	//nolint:gosec // InsecureSkipVerify is opt-in per deployment
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		RootCAs:            caPool,
		ServerName:         sec.ServerName,
		InsecureSkipVerify: sec.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}, nil
}

func newSpiffeTLS(ctx context.Context, sec *models.SecurityConfig, log logger.Logger) (*RemoteTLS, error) {
	socket := sec.WorkloadSocket
	if socket == "" {
		socket = defaultWorkloadSocket
	}

	authorizer := tlsconfig.AuthorizeAny()

	if td := strings.TrimSpace(sec.TrustDomain); td != "" {
		trustDomain, err := parseTrustDomain(td)
		if err != nil {
			return nil, err
		}

		authorizer = tlsconfig.AuthorizeMemberOf(trustDomain)
	} else {
		log.Warn().Msg("SPIFFE remote TLS has no trust_domain; allowing any SPIFFE endpoint")
	}

	client, err := workloadapi.New(ctx, workloadapi.WithAddr(socket))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedWorkloadAPIClient, err)
	}

	source, err := workloadapi.NewX509Source(ctx, workloadapi.WithClient(client))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", errFailedToCreateX509Source, err)
	}

	return &RemoteTLS{
		config: tlsconfig.MTLSClientConfig(source, source, authorizer),
		client: client,
		source: source,
		logger: log,
	}, nil
}

// parseTrustDomain accepts a bare trust domain or a full SPIFFE ID.
func parseTrustDomain(raw string) (spiffeid.TrustDomain, error) {
	if strings.Contains(raw, "://") {
		id, err := spiffeid.FromString(raw)
		if err != nil {
			return spiffeid.TrustDomain{}, fmt.Errorf("%w: %w", errInvalidTrustDomain, err)
		}

		return id.TrustDomain(), nil
	}

	td, err := spiffeid.TrustDomainFromString(raw)
	if err != nil {
		return spiffeid.TrustDomain{}, fmt.Errorf("%w: %w", errInvalidTrustDomain, err)
	}

	return td, nil
}
