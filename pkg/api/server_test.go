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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
	"github.com/carverauto/trustproxy/pkg/trust"
)

func newTestServer(t *testing.T, options ...func(*Server)) (*Server, *MockDeviceService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := NewMockDeviceService(ctrl)

	return NewServer(":0", svc, logger.NewTestLogger(), options...), svc
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	return resp
}

func TestListDevices(t *testing.T) {
	s, svc := newTestServer(t)

	svc.EXPECT().ListDevices(gomock.Any(), false, "").Return([]models.ProjectedDevice{
		{TargetHost: "10.0.0.5", TargetPort: 443, State: models.StateActive},
	}, nil)

	rr := serve(s, http.MethodGet, TrustedDevicesPath, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "10.0.0.5", resp.Devices[0].TargetHost)
}

func TestListDevicesEmptyIsArray(t *testing.T) {
	s, svc := newTestServer(t)

	svc.EXPECT().ListDevices(gomock.Any(), false, "").Return(nil, nil)

	rr := serve(s, http.MethodGet, TrustedDevicesPath, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"devices":[]}`, rr.Body.String())
}

func TestListDevicesTargetSources(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		target string
	}{
		{name: "path segment", url: TrustedDevicesPath + "/10.0.0.5", target: "10.0.0.5"},
		{name: "targetHost", url: TrustedDevicesPath + "?targetHost=10.0.0.6", target: "10.0.0.6"},
		{name: "targetUUID", url: TrustedDevicesPath + "?targetUUID=m-7", target: "m-7"},
		{name: "path wins", url: TrustedDevicesPath + "/10.0.0.5?targetHost=10.0.0.6", target: "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer(t)

			svc.EXPECT().ListDevices(gomock.Any(), false, tt.target).Return([]models.ProjectedDevice{{TargetHost: tt.target}}, nil)

			rr := serve(s, http.MethodGet, tt.url, "")
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestListDevicesNotFound(t *testing.T) {
	s, svc := newTestServer(t)

	svc.EXPECT().ListDevices(gomock.Any(), false, "10.9.9.9").Return(nil, &trust.NotFoundError{Target: "10.9.9.9"})

	rr := serve(s, http.MethodGet, TrustedDevicesPath+"/10.9.9.9", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	resp := decodeError(t, rr)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, resp.Message, "10.9.9.9")
}

func TestDeclareDevices(t *testing.T) {
	s, svc := newTestServer(t)

	port := 443
	user, pass := "a", "b"
	want := []models.DeclaredDevice{{TargetHost: "10.0.0.5", TargetPort: &port, TargetUsername: &user, TargetPassphrase: &pass}}

	svc.EXPECT().Reconcile(gomock.Any(), want).Return([]models.ProjectedDevice{{TargetHost: "10.0.0.5", TargetPort: 443, State: "PENDING"}}, nil)

	body := `{"devices":[{"targetHost":"10.0.0.5","targetPort":443,"targetUsername":"a","targetPassphrase":"b"}]}`

	rr := serve(s, http.MethodPost, TrustedDevicesPath, body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "PENDING", resp.Devices[0].State)
}

func TestDeclareDevicesEmptyList(t *testing.T) {
	s, svc := newTestServer(t)

	svc.EXPECT().Reconcile(gomock.Any(), []models.DeclaredDevice{}).Return([]models.ProjectedDevice{}, nil)

	rr := serve(s, http.MethodPost, TrustedDevicesPath, `{"devices":[]}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDeclareDevicesBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing devices", body: `{}`, message: "declaration missing"},
		{name: "null devices", body: `{"devices":null}`, message: "declaration missing"},
		{name: "malformed", body: `{"devices":`, message: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)

			rr := serve(s, http.MethodPost, TrustedDevicesPath, tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			resp := decodeError(t, rr)
			assert.Contains(t, resp.Message, tt.message)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &trust.ValidationError{Device: "10.0.0.5:443", Message: "missing"}, want: http.StatusBadRequest},
		{name: "not found", err: &trust.NotFoundError{Target: "x"}, want: http.StatusNotFound},
		{name: "teardown", err: &trust.TeardownError{Devices: []string{"a"}, Err: errors.New("x")}, want: http.StatusBadGateway},
		{name: "add", err: &trust.AddError{Devices: []string{"a"}, Err: errors.New("x")}, want: http.StatusBadGateway},
		{name: "gateway", err: fmt.Errorf("list: %w", &gateway.GatewayError{Op: "query_groups", Err: errors.New("x")}), want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestDeclareDevicesValidationError(t *testing.T) {
	s, svc := newTestServer(t)

	svc.EXPECT().Reconcile(gomock.Any(), gomock.Any()).
		Return(nil, &trust.ValidationError{Device: "10.0.0.5:443", Message: "declared device missing targetUsername or targetPassphrase"})

	rr := serve(s, http.MethodPost, TrustedDevicesPath, `{"devices":[{"targetHost":"10.0.0.5"}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "10.0.0.5:443")
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, WithAPIKey("secret"))

	rr := serve(s, http.MethodGet, HealthPath, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	s, svc := newTestServer(t, WithAPIKey("secret"))

	rr := serve(s, http.MethodGet, TrustedDevicesPath, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	svc.EXPECT().ListDevices(gomock.Any(), false, "").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, TrustedDevicesPath, http.NoBody)
	req.Header.Set("X-API-Key", "secret")

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rr := serve(s, http.MethodDelete, TrustedDevicesPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
