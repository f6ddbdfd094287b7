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
	"strings"
	"sync"

	"github.com/carverauto/trustproxy/pkg/gateway"
	"github.com/carverauto/trustproxy/pkg/models"
)

var errInjected = errors.New("injected failure")

// fakeProxy is an in-memory management API.
type fakeProxy struct {
	mu sync.Mutex

	machineID   string
	groups      []string
	devices     map[string][]models.DeviceRecord
	proxyCerts  []models.Certificate
	remoteCerts map[string][]models.Certificate

	addState        string
	failAdd         error
	failRemove      map[string]error
	failRemoteCerts bool

	nextUUID int
	calls    []string
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{
		machineID:   "proxy-machine",
		devices:     make(map[string][]models.DeviceRecord),
		remoteCerts: make(map[string][]models.Certificate),
		failRemove:  make(map[string]error),
		addState:    "PENDING",
	}
}

var _ gateway.Gateway = (*fakeProxy)(nil)

func (f *fakeProxy) record(call string) {
	f.calls = append(f.calls, call)
}

// seed places a record into group, creating the group when needed.
func (f *fakeProxy) seed(group string, r models.DeviceRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.devices[group]; !ok {
		f.groups = append(f.groups, group)
		f.devices[group] = nil
	}

	if r.UUID == "" {
		f.nextUUID++
		r.UUID = fmt.Sprintf("seed-%d", f.nextUUID)
	}

	r.GroupName = group
	f.devices[group] = append(f.devices[group], r)
}

func (f *fakeProxy) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeProxy) countCalls(prefix string) int {
	n := 0

	for _, c := range f.callLog() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}

	return n
}

func (f *fakeProxy) mutationCalls() int {
	n := 0

	for _, prefix := range []string{"CreateGroupContainer", "AddDevice", "RemoveDeviceEntry", "DeleteProxyCertificate", "DeleteRemoteCertificate"} {
		n += f.countCalls(prefix)
	}

	return n
}

func (f *fakeProxy) occupancy() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]int, len(f.groups))
	for _, g := range f.groups {
		out[g] = len(f.devices[g])
	}

	return out
}

// promote turns every record into a managed ACTIVE device as the remote
// side does once discovery completes.
func (f *fakeProxy) promote() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for g := range f.devices {
		for i := range f.devices[g] {
			rec := &f.devices[g][i]
			rec.State = models.StateActive
			rec.MachineID = "m-" + rec.Address
			rec.MCPDeviceName = "/Common/" + rec.Address
			rec.RESTFrameworkVersion = "15.1.0-0.0.4"
		}
	}
}

func (f *fakeProxy) GetProxyMachineID(context.Context) (string, error) {
	return f.machineID, nil
}

func (f *fakeProxy) QueryGroupContainers(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.groups...), nil
}

func (f *fakeProxy) CreateGroupContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("CreateGroupContainer " + name)

	if _, ok := f.devices[name]; ok {
		return fmt.Errorf("%w: group %s exists", errInjected, name)
	}

	f.groups = append(f.groups, name)
	f.devices[name] = nil

	return nil
}

func (f *fakeProxy) QueryDevices(_ context.Context, group string) ([]models.DeviceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]models.DeviceRecord(nil), f.devices[group]...), nil
}

func (f *fakeProxy) AddDevice(_ context.Context, group string, _ gateway.Credentials, host string, port int) (*models.DeviceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("AddDevice " + models.DeviceKey(host, port))

	if f.failAdd != nil {
		return nil, f.failAdd
	}

	if _, ok := f.devices[group]; !ok {
		return nil, fmt.Errorf("%w: no group %s", errInjected, group)
	}

	f.nextUUID++
	r := models.DeviceRecord{
		UUID:      fmt.Sprintf("u-%d", f.nextUUID),
		Address:   host,
		HTTPSPort: port,
		State:     f.addState,
		GroupName: group,
	}
	f.devices[group] = append(f.devices[group], r)

	return &r, nil
}

func (f *fakeProxy) RemoveDeviceEntry(_ context.Context, entryPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimPrefix(entryPath, models.DeviceGroupsPath+"/")
	group, uuid, _ := strings.Cut(rest, "/devices/")

	for i, r := range f.devices[group] {
		if r.UUID != uuid {
			continue
		}

		f.record("RemoveDeviceEntry " + r.Key())

		if err := f.failRemove[r.Key()]; err != nil {
			return err
		}

		f.devices[group] = append(f.devices[group][:i], f.devices[group][i+1:]...)

		return nil
	}

	f.record("RemoveDeviceEntry missing")

	return nil
}

func (f *fakeProxy) QueryProxyCertificates(context.Context) ([]models.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]models.Certificate(nil), f.proxyCerts...), nil
}

func (f *fakeProxy) DeleteProxyCertificate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("DeleteProxyCertificate " + id)

	for i, c := range f.proxyCerts {
		if c.CertificateID == id {
			f.proxyCerts = append(f.proxyCerts[:i], f.proxyCerts[i+1:]...)
			break
		}
	}

	return nil
}

func (f *fakeProxy) QueryRemoteCertificates(_ context.Context, host string, port int, policy gateway.FailurePolicy) ([]models.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failRemoteCerts {
		if policy == gateway.HardFail {
			return nil, &gateway.RemoteDeviceError{Op: "query_remote_certs", Host: host, Port: port, Err: errInjected}
		}

		return nil, nil
	}

	return append([]models.Certificate(nil), f.remoteCerts[models.DeviceKey(host, port)]...), nil
}

func (f *fakeProxy) DeleteRemoteCertificate(_ context.Context, host string, port int, id string, _ gateway.FailurePolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := models.DeviceKey(host, port)
	f.record("DeleteRemoteCertificate " + key + " " + id)

	certs := f.remoteCerts[key]
	for i, c := range certs {
		if c.CertificateID == id {
			f.remoteCerts[key] = append(certs[:i], certs[i+1:]...)
			break
		}
	}

	return nil
}

func (*fakeProxy) PingRemote(context.Context, string, int) error {
	return nil
}

func keysOf(devices []models.ProjectedDevice) []string {
	keys := make([]string, 0, len(devices))
	for i := range devices {
		keys = append(keys, devices[i].Key())
	}

	sort.Strings(keys)

	return keys
}
