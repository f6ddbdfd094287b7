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
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// containerOccupancy is one prefixed group container and its record count.
type containerOccupancy struct {
	Name  string
	Index int
	Count int
}

// ResolveTargetContainer returns a group container with spare capacity,
// creating the next indexed container when every existing one is full.
// Occupancy is re-queried on every call and nothing is reserved, so
// concurrent callers may overshoot the bound. Only canonically indexed
// names (TrustProxy_0, TrustProxy_1, ...) receive new devices; a prefixed
// name such as TrustProxy_01 is still listed and torn down but never chosen.
func (s *Service) ResolveTargetContainer(ctx context.Context) (string, error) {
	groups, err := s.gw.QueryGroupContainers(ctx)
	if err != nil {
		return "", err
	}

	occupancy, err := s.occupancy(ctx, groups)
	if err != nil {
		return "", err
	}

	name, create := selectContainer(occupancy, s.opts.GroupPrefix, s.opts.GroupCapacity)
	if !create {
		return name, nil
	}

	if err := s.gw.CreateGroupContainer(ctx, name); err != nil {
		return "", err
	}

	groupsCreated.Add(ctx, 1)

	return name, nil
}

func (s *Service) occupancy(ctx context.Context, groups []string) ([]containerOccupancy, error) {
	var out []containerOccupancy

	for _, name := range groups {
		idx, ok := containerIndex(name, s.opts.GroupPrefix)
		if !ok {
			s.logger.Debug().Str("group", name).Msg("Ignoring group without a numeric index")
			continue
		}

		out = append(out, containerOccupancy{Name: name, Index: idx})
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		joinErr error
	)

	for i := range out {
		g.Go(func() error {
			records, err := s.gw.QueryDevices(ctx, out[i].Name)
			if err != nil {
				mu.Lock()
				joinErr = errors.Join(joinErr, err)
				mu.Unlock()

				return nil
			}

			out[i].Count = len(records)

			return nil
		})
	}

	_ = g.Wait()

	if joinErr != nil {
		return nil, joinErr
	}

	return out, nil
}

// selectContainer picks the lowest-indexed container below capacity. When
// none has room it names the container one past the highest index in use
// and reports that it must be created.
func selectContainer(occupancy []containerOccupancy, prefix string, capacity int) (name string, create bool) {
	sorted := append([]containerOccupancy(nil), occupancy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	highest := -1

	for _, c := range sorted {
		if c.Count < capacity {
			return c.Name, false
		}

		highest = c.Index
	}

	return prefix + strconv.Itoa(highest+1), true
}

// containerIndex parses the non-negative numeric suffix of a prefixed name.
func containerIndex(name, prefix string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, prefix)
	if !ok || suffix == "" {
		return 0, false
	}

	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 || strconv.Itoa(idx) != suffix {
		return 0, false
	}

	return idx, true
}
