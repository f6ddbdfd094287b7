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

// Package health tracks per-device reachability observed by the monitor.
package health

import (
	"sync"
	"time"
)

// Status is the health record of one device key. At most one of
// ReachableSince and FailedSince is set.
type Status struct {
	ReachableSince *time.Time
	FailedSince    *time.Time
	FailedReason   string
}

// Reachable reports whether the device is known to be reachable.
func (s Status) Reachable() bool {
	return s.ReachableSince != nil
}

// Table is the in-memory device health table keyed by host:port. The
// reachability monitor is its only writer; listings read it concurrently.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Status
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Status)}
}

// MarkReachable records a successful check and clears any failure.
func (t *Table) MarkReachable(key string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[key] = Status{ReachableSince: &at}
}

// MarkUnreachable records a failed check. The first failure time is kept
// while the device stays unreachable and is returned along with whether it
// was already set before this call.
func (t *Table) MarkUnreachable(key string, at time.Time, reason string) (failedSince time.Time, existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.entries[key]
	if prev.FailedSince != nil {
		failedSince, existed = *prev.FailedSince, true
	} else {
		failedSince = at
	}

	t.entries[key] = Status{FailedSince: &failedSince, FailedReason: reason}

	return failedSince, existed
}

// Forget drops every fact about key.
func (t *Table) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
}

// Lookup returns the status of key.
func (t *Table) Lookup(key string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.entries[key]

	return s, ok
}

// Snapshot returns a copy of every entry.
func (t *Table) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Status, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}

	return out
}

// Counts returns the number of reachable and unreachable keys.
func (t *Table) Counts() (reachable, unreachable int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.entries {
		if s.ReachableSince != nil {
			reachable++
		} else if s.FailedSince != nil {
			unreachable++
		}
	}

	return reachable, unreachable
}

// Reset removes every entry.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]Status)
}
