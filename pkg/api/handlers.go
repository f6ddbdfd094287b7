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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/trustproxy/pkg/gateway"
	tpHttp "github.com/carverauto/trustproxy/pkg/http"
	"github.com/carverauto/trustproxy/pkg/models"
	"github.com/carverauto/trustproxy/pkg/trust"
)

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleListDevices serves the public listing. The target is taken from
// the path, then targetHost, then targetUUID.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	if target == "" {
		target = r.URL.Query().Get("targetHost")
	}

	if target == "" {
		target = r.URL.Query().Get("targetUUID")
	}

	devices, err := s.devices.ListDevices(r.Context(), false, target)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeDevices(w, r, devices)
}

func (s *Server) handleDeclareDevices(w http.ResponseWriter, r *http.Request) {
	var req models.DeclarationRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if req.Devices == nil {
		s.writeServiceError(w, r, trust.ErrDeclarationMissing())
		return
	}

	devices, err := s.devices.Reconcile(r.Context(), *req.Devices)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeDevices(w, r, devices)
}

func (s *Server) writeDevices(w http.ResponseWriter, r *http.Request, devices []models.ProjectedDevice) {
	if devices == nil {
		devices = []models.ProjectedDevice{}
	}

	s.writeJSON(w, r, http.StatusOK, models.DevicesResponse{Devices: devices})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *trust.ValidationError
		notFound   *trust.NotFoundError
		teardown   *trust.TeardownError
		add        *trust.AddError
		gw         *gateway.GatewayError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &teardown), errors.As(err, &add), errors.As(err, &gw):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}

	event.Err(err).
		Str("request_id", tpHttp.RequestID(r.Context())).
		Int("status", status).
		Msg("Trusted devices request failed")

	writeError(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Str("request_id", tpHttp.RequestID(r.Context())).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
