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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/trustproxy/pkg/logger"
	"github.com/carverauto/trustproxy/pkg/models"
)

const (
	certificatesPath = "/mgmt/shared/device-certificates"
	deviceInfoPath   = "/mgmt/shared/identified-devices/config/device-info"
	echoPath         = "/mgmt/shared/echo"

	maxErrorBody = 4096
)

var nonPrintable = regexp.MustCompile(`[^ -~]+`)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string
	Username      string
	Password      string
	MachineIDFile string

	GroupPrefix      string
	GroupDisplay     string
	GroupDescription string

	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
	PingTimeout   time.Duration

	// RemoteTLS is presented to remote devices. Nil uses the Go defaults.
	RemoteTLS *tls.Config
	// RemoteScheme defaults to https.
	RemoteScheme string
}

// NewClientConfig derives a ClientConfig from the service configuration.
func NewClientConfig(cfg *models.Config, remoteTLS *tls.Config) ClientConfig {
	return ClientConfig{
		BaseURL:          cfg.Management.BaseURL,
		Username:         cfg.Management.Username,
		Password:         cfg.Management.Password,
		MachineIDFile:    cfg.Management.MachineIDFile,
		GroupPrefix:      cfg.Groups.Prefix,
		GroupDisplay:     cfg.Groups.Display,
		GroupDescription: cfg.Groups.Description,
		LocalTimeout:     time.Duration(cfg.Management.Timeout),
		RemoteTimeout:    time.Duration(cfg.Remote.Timeout),
		PingTimeout:      time.Duration(cfg.Remote.PingTimeout),
		RemoteTLS:        remoteTLS,
	}
}

// Client implements Gateway over the management REST API.
type Client struct {
	cfg    ClientConfig
	local  *http.Client
	remote *http.Client
	logger logger.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient builds a Client. Timeouts are applied per call through the
// request context.
func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.RemoteScheme == "" {
		cfg.RemoteScheme = "https"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.RemoteTLS != nil {
		transport.TLSClientConfig = cfg.RemoteTLS
	}

	return &Client{
		cfg:    cfg,
		local:  &http.Client{},
		remote: &http.Client{Transport: transport},
		logger: log,
	}
}

func (c *Client) GetProxyMachineID(ctx context.Context) (string, error) {
	var info models.DeviceInfo

	if _, err := c.doLocal(ctx, "get_machine_id", http.MethodGet, deviceInfoPath, nil, &info); err != nil {
		return "", err
	}

	if info.MachineID != "" {
		return info.MachineID, nil
	}

	return c.readMachineIDFile()
}

func (c *Client) readMachineIDFile() (string, error) {
	if c.cfg.MachineIDFile == "" {
		return "", ErrMachineIDUnresolved
	}

	data, err := os.ReadFile(c.cfg.MachineIDFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMachineIDUnresolved, err)
	}

	id := nonPrintable.ReplaceAllString(string(data), "")
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMachineIDUnresolved, c.cfg.MachineIDFile)
	}

	return id, nil
}

func (c *Client) QueryGroupContainers(ctx context.Context) ([]string, error) {
	var resp models.ItemsResponse[models.DeviceGroup]

	if _, err := c.doLocal(ctx, "query_groups", http.MethodGet, models.DeviceGroupsPath, nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Items))

	for _, g := range resp.Items {
		if strings.HasPrefix(g.GroupName, c.cfg.GroupPrefix) {
			names = append(names, g.GroupName)
		}
	}

	return names, nil
}

func (c *Client) CreateGroupContainer(ctx context.Context, name string) error {
	body := models.DeviceGroup{
		GroupName:   name,
		Display:     c.cfg.GroupDisplay,
		Description: c.cfg.GroupDescription,
	}

	c.logger.Info().Str("group", name).Msg("Creating proxy device group")

	_, err := c.doLocal(ctx, "create_group", http.MethodPost, models.DeviceGroupsPath, body, nil)

	return err
}

func (c *Client) QueryDevices(ctx context.Context, group string) ([]models.DeviceRecord, error) {
	var resp models.ItemsResponse[models.DeviceRecord]

	if _, err := c.doLocal(ctx, "query_devices", http.MethodGet, devicesPath(group), nil, &resp); err != nil {
		return nil, err
	}

	for i := range resp.Items {
		if resp.Items[i].GroupName == "" {
			resp.Items[i].GroupName = group
		}
	}

	return resp.Items, nil
}

func (c *Client) AddDevice(ctx context.Context, group string, creds Credentials, host string, port int) (*models.DeviceRecord, error) {
	if creds.Username == "" || creds.Passphrase == "" {
		return nil, &GatewayError{Op: "add_device", URL: c.cfg.BaseURL + devicesPath(group), Err: errCredentialsRequired}
	}

	body := models.AddDeviceRequest{
		UserName:  creds.Username,
		Password:  creds.Passphrase,
		Address:   host,
		HTTPSPort: port,
	}

	var record models.DeviceRecord

	if _, err := c.doLocal(ctx, "add_device", http.MethodPost, devicesPath(group), body, &record); err != nil {
		return nil, err
	}

	if record.GroupName == "" {
		record.GroupName = group
	}

	c.logger.Info().
		Str("device", models.DeviceKey(host, port)).
		Str("group", group).
		Str("uuid", record.UUID).
		Msg("Added device to proxy device group")

	return &record, nil
}

func (c *Client) RemoveDeviceEntry(ctx context.Context, entryPath string) error {
	status, err := c.doLocal(ctx, "remove_device", http.MethodDelete, entryPath, nil, nil)
	if status == http.StatusNotFound {
		c.logger.Debug().Str("entry", entryPath).Msg("Device entry already removed")
		return nil
	}

	return err
}

func (c *Client) QueryProxyCertificates(ctx context.Context) ([]models.Certificate, error) {
	var resp models.ItemsResponse[models.Certificate]

	if _, err := c.doLocal(ctx, "query_proxy_certs", http.MethodGet, certificatesPath, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

func (c *Client) DeleteProxyCertificate(ctx context.Context, certificateID string) error {
	status, err := c.doLocal(ctx, "delete_proxy_cert", http.MethodDelete, certificatesPath+"/"+certificateID, nil, nil)
	if status == http.StatusNotFound {
		return nil
	}

	return err
}

func (c *Client) QueryRemoteCertificates(ctx context.Context, host string, port int, policy FailurePolicy) ([]models.Certificate, error) {
	var resp models.ItemsResponse[models.Certificate]

	_, err := c.doRemote(ctx, "query_remote_certs", c.cfg.RemoteTimeout, http.MethodGet, host, port, certificatesPath, &resp)
	if err != nil {
		return nil, c.applyPolicy(policy, err, "Error querying certificates on the device, assuming offline or untrusted")
	}

	return resp.Items, nil
}

func (c *Client) DeleteRemoteCertificate(ctx context.Context, host string, port int, certificateID string, policy FailurePolicy) error {
	status, err := c.doRemote(ctx, "delete_remote_cert", c.cfg.RemoteTimeout, http.MethodDelete,
		host, port, certificatesPath+"/"+certificateID, nil)
	if status == http.StatusNotFound {
		return nil
	}

	if err != nil {
		return c.applyPolicy(policy, err, "Error deleting certificate from device, assuming offline or untrusted")
	}

	return nil
}

func (c *Client) PingRemote(ctx context.Context, host string, port int) error {
	_, err := c.doRemote(ctx, "ping", c.cfg.PingTimeout, http.MethodGet, host, port, echoPath, nil)

	return err
}

func (c *Client) applyPolicy(policy FailurePolicy, err error, msg string) error {
	if policy == HardFail {
		return err
	}

	c.logger.Warn().Err(err).Msg(msg)

	return nil
}

func devicesPath(group string) string {
	return models.DeviceGroupsPath + "/" + group + "/devices"
}

// doLocal performs an authenticated call against the management API. The
// returned status is zero when no response was received.
func (c *Client) doLocal(ctx context.Context, op, method, path string, body, out interface{}) (int, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.LocalTimeout)
	defer cancel()

	url := c.cfg.BaseURL + path

	status, err := c.do(ctx, c.local, method, url, true, body, out)
	if err != nil {
		return status, &GatewayError{Op: op, URL: url, StatusCode: status, Err: err}
	}

	return status, nil
}

func (c *Client) doRemote(ctx context.Context, op string, timeout time.Duration, method, host string, port int, path string, out interface{}) (int, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	url := c.cfg.RemoteScheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + path

	status, err := c.do(ctx, c.remote, method, url, false, nil, out)
	if err != nil {
		return status, &RemoteDeviceError{Op: op, Host: host, Port: port, Err: err}
	}

	return status, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, url string, basicAuth bool, body, out interface{}) (int, error) {
	var reader io.Reader = http.NoBody

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if basicAuth {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer c.closeResponse(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return resp.StatusCode, fmt.Errorf("%w: %s", ErrUnexpectedStatus, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}

func (c *Client) closeResponse(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := resp.Body.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to close response body")
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
