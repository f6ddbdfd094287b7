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

// Package api serves the trusted-devices HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	tpHttp "github.com/carverauto/trustproxy/pkg/http"
	"github.com/carverauto/trustproxy/pkg/logger"
)

const (
	TrustedDevicesPath = "/mgmt/shared/TrustedDevices"
	HealthPath         = "/healthz"

	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 2 * time.Minute
	defaultIdleTimeout  = 60 * time.Second

	maxBodyBytes = 1 << 20
)

// Server is the trusted-devices HTTP server.
type Server struct {
	router  *mux.Router
	srv     *http.Server
	devices DeviceService
	apiKey  string
	logger  logger.Logger
}

// WithAPIKey requires every request except the health probe to carry key
// in the X-API-Key header.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) {
		s.apiKey = key
	}
}

// NewServer builds a Server listening on addr.
func NewServer(addr string, devices DeviceService, log logger.Logger, options ...func(*Server)) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		devices: devices,
		logger:  log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(tpHttp.LoggingMiddleware(s.logger))
	s.router.Use(tpHttp.APIKeyMiddlewareWithOptions(tpHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		ExcludePaths:    []string{HealthPath},
		LogUnauthorized: true,
		Logger:          s.logger,
	}))

	s.router.HandleFunc(HealthPath, s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(TrustedDevicesPath, s.handleListDevices).Methods(http.MethodGet)
	s.router.HandleFunc(TrustedDevicesPath+"/{target}", s.handleListDevices).Methods(http.MethodGet)
	s.router.HandleFunc(TrustedDevicesPath, s.handleDeclareDevices).Methods(http.MethodPost)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start implements the lifecycle.Service interface.
func (s *Server) Start(_ context.Context) error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Starting trusted devices API")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop implements the lifecycle.Service interface.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
