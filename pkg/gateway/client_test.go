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
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

func newLocalClient(t *testing.T, handler http.Handler, mutate ...func(*ClientConfig)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := ClientConfig{
		BaseURL:          srv.URL,
		Username:         "admin",
		GroupPrefix:      "TrustProxy_",
		GroupDisplay:     "Trusted Proxy Device Group",
		GroupDescription: "Group to establish trust for control plane request proxying",
		LocalTimeout:     time.Second,
		RemoteTimeout:    time.Second,
		PingTimeout:      time.Second,
	}

	for _, m := range mutate {
		m(&cfg)
	}

	return NewClient(cfg, logger.NewTestLogger())
}

// newRemoteClient points a client at a TLS test server acting as a remote device.
func newRemoteClient(t *testing.T, handler http.Handler) (client *Client, host string, port int) {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	addr := srv.Listener.Addr().(*net.TCPAddr)

	client = NewClient(ClientConfig{
		BaseURL:       "http://127.0.0.1:1",
		RemoteTimeout: time.Second,
		PingTimeout:   time.Second,
		RemoteTLS:     srv.Client().Transport.(*http.Transport).TLSClientConfig,
	}, logger.NewTestLogger())

	return client, addr.IP.String(), addr.Port
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetProxyMachineID(t *testing.T) {
	t.Run("from device info", func(t *testing.T) {
		c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, deviceInfoPath, r.URL.Path)

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Empty(t, pass)

			writeJSON(w, models.DeviceInfo{MachineID: "proxy-1"})
		}))

		id, err := c.GetProxyMachineID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "proxy-1", id)
	})

	t.Run("falls back to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "machineId")
		require.NoError(t, os.WriteFile(path, []byte("proxy-2\n\x00"), 0o600))

		c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"hostname": "proxy"})
		}), func(cfg *ClientConfig) { cfg.MachineIDFile = path })

		id, err := c.GetProxyMachineID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "proxy-2", id)
	})

	t.Run("no identity anywhere", func(t *testing.T) {
		c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{})
		}), func(cfg *ClientConfig) { cfg.MachineIDFile = filepath.Join(t.TempDir(), "missing") })

		_, err := c.GetProxyMachineID(context.Background())
		assert.ErrorIs(t, err, ErrMachineIDUnresolved)
	})

	t.Run("api failure", func(t *testing.T) {
		c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := c.GetProxyMachineID(context.Background())

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
		assert.Equal(t, "get_machine_id", gwErr.Op)
	})
}

func TestQueryGroupContainersFiltersPrefix(t *testing.T) {
	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, models.ItemsResponse[models.DeviceGroup]{Items: []models.DeviceGroup{
			{GroupName: "dg-local"},
			{GroupName: "TrustProxy_1"},
			{GroupName: "TrustProxy_0"},
		}})
	}))

	groups, err := c.QueryGroupContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TrustProxy_1", "TrustProxy_0"}, groups)
}

func TestQueryGroupContainersEmptyBody(t *testing.T) {
	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{})
	}))

	groups, err := c.QueryGroupContainers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCreateGroupContainerSendsMetadata(t *testing.T) {
	bodies := make(chan models.DeviceGroup, 1)

	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, models.DeviceGroupsPath, r.URL.Path)

		var body models.DeviceGroup
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		writeJSON(w, body)
	}))

	require.NoError(t, c.CreateGroupContainer(context.Background(), "TrustProxy_0"))

	got := <-bodies
	assert.Equal(t, "TrustProxy_0", got.GroupName)
	assert.Equal(t, "Trusted Proxy Device Group", got.Display)
	assert.Equal(t, "Group to establish trust for control plane request proxying", got.Description)
}

func TestQueryDevicesFillsGroupName(t *testing.T) {
	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mgmt/shared/resolver/device-groups/TrustProxy_0/devices", r.URL.Path)
		writeJSON(w, models.ItemsResponse[models.DeviceRecord]{Items: []models.DeviceRecord{
			{UUID: "u-1", Address: "10.0.0.5", HTTPSPort: 443, State: models.StateActive},
		}})
	}))

	devices, err := c.QueryDevices(context.Background(), "TrustProxy_0")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "TrustProxy_0", devices[0].GroupName)
}

func TestAddDevice(t *testing.T) {
	bodies := make(chan models.AddDeviceRequest, 1)

	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body models.AddDeviceRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		writeJSON(w, models.DeviceRecord{UUID: "u-9", Address: body.Address, HTTPSPort: body.HTTPSPort, State: "PENDING"})
	}))

	record, err := c.AddDevice(context.Background(), "TrustProxy_0", Credentials{Username: "a", Passphrase: "b"}, "10.0.0.5", 443)
	require.NoError(t, err)

	got := <-bodies
	assert.Equal(t, models.AddDeviceRequest{UserName: "a", Password: "b", Address: "10.0.0.5", HTTPSPort: 443}, got)
	assert.Equal(t, "u-9", record.UUID)
	assert.Equal(t, "TrustProxy_0", record.GroupName)
	assert.Equal(t, "PENDING", record.State)
}

func TestAddDeviceRequiresCredentials(t *testing.T) {
	c := newLocalClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}))

	for _, creds := range []Credentials{{}, {Username: "admin"}, {Passphrase: "secret"}} {
		_, err := c.AddDevice(context.Background(), "TrustProxy_0", creds, "10.0.0.5", 443)
		assert.ErrorIs(t, err, errCredentialsRequired)
	}
}

func TestRemoveDeviceEntryIdempotent(t *testing.T) {
	var status atomic.Int32

	status.Store(http.StatusOK)

	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(int(status.Load()))
	}))

	path := models.DeviceEntryPath("TrustProxy_0", "u-1")

	require.NoError(t, c.RemoveDeviceEntry(context.Background(), path))

	status.Store(http.StatusNotFound)
	require.NoError(t, c.RemoveDeviceEntry(context.Background(), path))

	status.Store(http.StatusBadRequest)

	err := c.RemoveDeviceEntry(context.Background(), path)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestProxyCertificates(t *testing.T) {
	deleted := make(chan string, 1)

	c := newLocalClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, models.ItemsResponse[models.Certificate]{Items: []models.Certificate{
				{CertificateID: "c-1", MachineID: "m-1"},
			}})
		case http.MethodDelete:
			deleted <- r.URL.Path
		}
	}))

	certs, err := c.QueryProxyCertificates(context.Background())
	require.NoError(t, err)
	require.Len(t, certs, 1)

	require.NoError(t, c.DeleteProxyCertificate(context.Background(), "c-1"))
	assert.Equal(t, certificatesPath+"/c-1", <-deleted)
}

func TestLocalTimeout(t *testing.T) {
	c := newLocalClient(t, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), func(cfg *ClientConfig) { cfg.LocalTimeout = 50 * time.Millisecond })

	_, err := c.QueryGroupContainers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemoteCertificates(t *testing.T) {
	deleted := make(chan string, 1)

	c, host, port := newRemoteClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, models.ItemsResponse[models.Certificate]{Items: []models.Certificate{
				{CertificateID: "rc-1", MachineID: "proxy-1"},
			}})
		case http.MethodDelete:
			deleted <- r.URL.Path
		}
	}))

	certs, err := c.QueryRemoteCertificates(context.Background(), host, port, HardFail)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "proxy-1", certs[0].MachineID)

	require.NoError(t, c.DeleteRemoteCertificate(context.Background(), host, port, "rc-1", HardFail))
	assert.Equal(t, certificatesPath+"/rc-1", <-deleted)
}

func TestRemoteFailurePolicy(t *testing.T) {
	c, host, port := newRemoteClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "untrusted", http.StatusUnauthorized)
	}))

	t.Run("soft fail degrades", func(t *testing.T) {
		certs, err := c.QueryRemoteCertificates(context.Background(), host, port, SoftFail)
		require.NoError(t, err)
		assert.Empty(t, certs)

		assert.NoError(t, c.DeleteRemoteCertificate(context.Background(), host, port, "rc-1", SoftFail))
	})

	t.Run("hard fail surfaces", func(t *testing.T) {
		_, err := c.QueryRemoteCertificates(context.Background(), host, port, HardFail)

		var remoteErr *RemoteDeviceError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, host, remoteErr.Host)
		assert.Equal(t, port, remoteErr.Port)

		err = c.DeleteRemoteCertificate(context.Background(), host, port, "rc-1", HardFail)
		assert.ErrorAs(t, err, &remoteErr)
	})
}

func TestRemoteUnreachableSoftFail(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", RemoteTimeout: time.Second}, logger.NewTestLogger())

	certs, err := c.QueryRemoteCertificates(context.Background(), "127.0.0.1", port, SoftFail)
	require.NoError(t, err)
	assert.Empty(t, certs)
}

func TestPingRemote(t *testing.T) {
	var healthy atomic.Bool

	healthy.Store(true)

	c, host, port := newRemoteClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, echoPath, r.URL.Path)

		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, map[string]string{"stage": "echo"})
	}))

	require.NoError(t, c.PingRemote(context.Background(), host, port))

	healthy.Store(false)

	err := c.PingRemote(context.Background(), host, port)

	var remoteErr *RemoteDeviceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "ping", remoteErr.Op)
	assert.Contains(t, err.Error(), net.JoinHostPort(host, strconv.Itoa(port)))
}

func TestErrorStrings(t *testing.T) {
	gw := &GatewayError{Op: "query_groups", URL: "http://x", StatusCode: 500, Err: errors.New("boom")}
	assert.Equal(t, "query_groups http://x: status 500: boom", gw.Error())

	gw.StatusCode = 0
	assert.Equal(t, "query_groups http://x: boom", gw.Error())
}
