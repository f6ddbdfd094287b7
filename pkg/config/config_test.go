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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trust-proxy.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeConfig(t, `{
		"listen_addr": ":9000",
		"groups": {"capacity": 30},
		"monitor": {"failed_device_removal": "2m"},
		"remote": {"security": {"mode": "mtls", "cert_dir": "/etc/trust-proxy/certs",
			"tls": {"cert_file": "client.pem", "key_file": "client-key.pem", "ca_file": "/abs/ca.pem"}}}
	}`)

	var cfg models.Config

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 30, cfg.Groups.Capacity)
	assert.Equal(t, "TrustProxy_", cfg.Groups.Prefix, "defaults applied by Validate")
	assert.Equal(t, models.Duration(2*time.Minute), cfg.Monitor.FailedDeviceRemoval)

	require.NotNil(t, cfg.Remote.Security)
	assert.Equal(t, "/etc/trust-proxy/certs/client.pem", cfg.Remote.Security.TLS.CertFile)
	assert.Equal(t, "/etc/trust-proxy/certs/client-key.pem", cfg.Remote.Security.TLS.KeyFile)
	assert.Equal(t, "/abs/ca.pem", cfg.Remote.Security.TLS.CAFile)
}

func TestLoadAndValidateRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeConfig(t, `{"management": {"base_url": "not a url"}}`)

	var cfg models.Config

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "management.base_url")
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg models.Config

	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg)
	assert.Error(t, err)

	assert.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg), errConfigPathRequired)
}

func TestFileLoaderRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, `{"listen_addr": ":9000"} {"listen_addr": ":9001"}`)

	var cfg models.Config

	err := (&FileConfigLoader{}).Load(context.Background(), path, &cfg)
	assert.ErrorIs(t, err, errTrailingConfigData)
}

func TestLoadAndValidateInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg models.Config

	assert.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg), errInvalidConfigSource)
}

func TestLoadAndValidateRequiresPointer(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "TPTEST_PTR_")

	var cfg models.Config

	assert.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "", cfg), ErrDstMustBeNonNilPointer)
}

func TestEnvLoaderFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "TPTEST_")
	t.Setenv("TPTEST_LISTEN_ADDR", ":9100")
	t.Setenv("TPTEST_GROUPS_PREFIX", "Proxy_")
	t.Setenv("TPTEST_GROUPS_CAPACITY", "30")
	t.Setenv("TPTEST_MONITOR_INTERVAL", "15s")
	t.Setenv("TPTEST_TRUST_IN_PROGRESS_STATES", "PENDING, CERTIFICATE_INSTALL")
	t.Setenv("TPTEST_TRUST_RETRUST_IN_PROGRESS", "false")

	var cfg models.Config

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "Proxy_", cfg.Groups.Prefix)
	assert.Equal(t, 30, cfg.Groups.Capacity)
	assert.Equal(t, models.Duration(15*time.Second), cfg.Monitor.Interval)
	assert.Equal(t, []string{"PENDING", "CERTIFICATE_INSTALL"}, cfg.Trust.InProgressStates)
	assert.False(t, cfg.Trust.RetrustsInProgress())
	assert.Nil(t, cfg.Remote.Security, "untargeted pointer sections stay nil")
	assert.Nil(t, cfg.Metrics)
}

func TestEnvLoaderNestedPointer(t *testing.T) {
	t.Setenv("TPNEST_REMOTE_SECURITY_MODE", "spiffe")
	t.Setenv("TPNEST_REMOTE_SECURITY_TRUST_DOMAIN", "example.org")

	var cfg models.Config

	require.NoError(t, NewEnvConfigLoader(nil, "TPNEST_").Load(context.Background(), "", &cfg))
	require.NotNil(t, cfg.Remote.Security)
	assert.Equal(t, models.SecurityModeSpiffe, cfg.Remote.Security.Mode)
	assert.Equal(t, "example.org", cfg.Remote.Security.TrustDomain)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("TPJSON_CONFIG_JSON", `{"listen_addr": ":7000", "groups": {"capacity": 5}}`)
	t.Setenv("TPJSON_LISTEN_ADDR", ":ignored")

	var cfg models.Config

	require.NoError(t, NewEnvConfigLoader(nil, "TPJSON_").Load(context.Background(), "", &cfg))
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.Groups.Capacity)
}

func TestEnvLoaderInvalidValue(t *testing.T) {
	t.Setenv("TPBAD_GROUPS_CAPACITY", "ten")

	var cfg models.Config

	err := NewEnvConfigLoader(nil, "TPBAD_").Load(context.Background(), "", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TPBAD_GROUPS_CAPACITY")
}

func TestEnvLoaderRejectsNonStruct(t *testing.T) {
	var s string

	assert.ErrorIs(t, NewEnvConfigLoader(nil, "X_").Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
}
