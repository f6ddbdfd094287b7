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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/trustproxy/pkg/api"
	"github.com/carverauto/trustproxy/pkg/config"
	"github.com/carverauto/trustproxy/pkg/events"
	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/health"
	"github.com/carverauto/trustproxy/pkg/lifecycle"
	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
	"github.com/carverauto/trustproxy/pkg/monitor"
	"github.com/carverauto/trustproxy/pkg/trust"
	"github.com/carverauto/trustproxy/pkg/version"
)

var (
	errFailedToLoadConfig = errors.New("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/trust-proxy/trust-proxy.json", "Path to trust proxy config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx := context.Background()

	// Step 1: Load configuration
	var cfg models.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: Create logger from loaded config
	proxyLogger, err := lifecycle.CreateComponentLogger(ctx, "trust-proxy", cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shut down logger: %v", err)
		}
	}()

	proxyLogger.Info().Str("version", version.GetFullVersion()).Str("listen_addr", cfg.ListenAddr).Msg("Starting trust proxy")

	if cfg.Metrics != nil {
		if cfg.Metrics.ServiceVersion == "" {
			cfg.Metrics.ServiceVersion = version.GetVersion()
		}

		if _, err := logger.InitializeMetrics(ctx, *cfg.Metrics); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
			proxyLogger.Warn().Err(err).Msg("Failed to initialize OTel metrics")
		}
	}

	// Step 3: Remote Device Gateway
	remoteTLS, err := gateway.NewRemoteTLS(ctx, cfg.Remote.Security, proxyLogger)
	if err != nil {
		return fmt.Errorf("failed to set up remote device TLS: %w", err)
	}

	defer func() {
		_ = remoteTLS.Close()
	}()

	gw := gateway.NewClient(gateway.NewClientConfig(&cfg, remoteTLS.Config()), proxyLogger)

	// Step 4: Trust lifecycle events
	publisher := events.Publisher(events.NopPublisher{})

	if cfg.Events.Enabled() {
		natsPublisher, err := events.Connect(ctx, &cfg.Events, proxyLogger)
		if err != nil {
			return fmt.Errorf("failed to connect trust events: %w", err)
		}

		defer func() {
			_ = natsPublisher.Close()
		}()

		publisher = natsPublisher
	}

	// Step 5: Reconciler, monitor and API
	table := health.NewTable()
	svc := trust.NewService(gw, table, publisher, trust.OptionsFromConfig(&cfg), proxyLogger)

	mon, err := monitor.New(monitor.ConfigFromModel(&cfg.Monitor), svc, gw, table, publisher, nil, proxyLogger)
	if err != nil {
		return err
	}

	var apiOptions []func(*api.Server)
	if cfg.APIKey != "" {
		apiOptions = append(apiOptions, api.WithAPIKey(cfg.APIKey))
	}

	server := api.NewServer(cfg.ListenAddr, svc, proxyLogger, apiOptions...)

	err = lifecycle.RunServices(ctx, &lifecycle.ServiceOptions{
		ServiceName: "trust-proxy",
		Services:    []lifecycle.Service{mon, server},
		Logger:      proxyLogger,
	})

	svc.Wait()

	return err
}
