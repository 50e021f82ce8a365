// Copyright © 2024 Meroxa, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package internal

import (
	"fmt"
	"testing"

	"github.com/matryer/is"
)

func TestSyncStateTracker_Transitions(t *testing.T) {
	is := is.New(t)

	type transition struct{ from, to SyncState }
	var got []transition
	tracker := NewSyncStateTracker(func(from, to SyncState) {
		got = append(got, transition{from, to})
	})
	is.Equal(tracker.Get(), StateInitial)

	for _, s := range []SyncState{
		StateFetching,
		StateRetrying,
		StateFetching,
		StateFetching, // no-op
		StateEmitting,
		StateFetching,
		StateEmitting,
		StateDone,
	} {
		tracker.Set(s)
	}
	is.Equal(tracker.Get(), StateDone)
	is.Equal(got, []transition{
		{StateInitial, StateFetching},
		{StateFetching, StateRetrying},
		{StateRetrying, StateFetching},
		{StateFetching, StateEmitting},
		{StateEmitting, StateFetching},
		{StateFetching, StateEmitting},
		{StateEmitting, StateDone},
	})
}

func TestSyncStateTracker_Failed(t *testing.T) {
	for _, from := range []SyncState{StateInitial, StateFetching, StateRetrying, StateEmitting} {
		t.Run(from.String(), func(t *testing.T) {
			is := is.New(t)
			tracker := NewSyncStateTracker(nil)
			tracker.state = from
			tracker.Set(StateFailed)
			is.Equal(tracker.Get(), StateFailed)
			is.True(tracker.Get().Terminal())
		})
	}
}

func TestSyncStateTracker_InvalidTransition(t *testing.T) {
	testCases := []struct {
		from, to SyncState
	}{
		{StateInitial, StateEmitting},
		{StateInitial, StateDone},
		{StateRetrying, StateEmitting},
		{StateEmitting, StateRetrying},
		{StateDone, StateFetching},
		{StateDone, StateFailed},
		{StateFailed, StateFetching},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%v->%v", tc.from, tc.to), func(t *testing.T) {
			is := is.New(t)
			tracker := NewSyncStateTracker(nil)
			tracker.state = tc.from

			defer func() {
				is.True(recover() != nil)
				is.Equal(tracker.Get(), tc.from)
			}()
			tracker.Set(tc.to)
		})
	}
}
