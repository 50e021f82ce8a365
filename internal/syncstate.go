// Copyright © 2023 Meroxa, Inc.
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

//go:generate stringer -type SyncState -trimprefix State

package internal

import (
	"fmt"
	"slices"
	"sync"
)

type SyncState int

const (
	StateInitial SyncState = iota
	StateFetching
	StateRetrying
	StateEmitting
	StateDone

	StateFailed SyncState = 500
)

// allowedTransitions lists the states reachable from each state. StateFailed
// is reachable from every state that is not terminal.
var allowedTransitions = map[SyncState][]SyncState{
	StateInitial:  {StateFetching},
	StateFetching: {StateEmitting, StateRetrying, StateDone},
	StateRetrying: {StateFetching},
	StateEmitting: {StateFetching, StateDone},
}

// Terminal reports whether no transition can leave the state.
func (s SyncState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// SyncStateTracker tracks the state of a single sync call. A transition that
// is not allowed is a bug in the driver and causes a panic.
type SyncStateTracker struct {
	m        sync.Mutex
	state    SyncState
	onChange func(from, to SyncState)
}

// NewSyncStateTracker returns a tracker in StateInitial. onChange is called
// for every transition while the tracker is locked, it can be nil.
func NewSyncStateTracker(onChange func(from, to SyncState)) *SyncStateTracker {
	return &SyncStateTracker{onChange: onChange}
}

func (t *SyncStateTracker) Get() SyncState {
	t.m.Lock()
	defer t.m.Unlock()
	return t.state
}

// Set moves the tracker to state to. Setting the current state again is a
// no-op (e.g. FETCHING -> FETCHING when an empty page is skipped).
func (t *SyncStateTracker) Set(to SyncState) {
	t.m.Lock()
	defer t.m.Unlock()

	from := t.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		panic(fmt.Sprintf("invalid sync state transition %v -> %v", from, to))
	}
	t.state = to
	if t.onChange != nil {
		t.onChange(from, to)
	}
}

func canTransition(from, to SyncState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return slices.Contains(allowedTransitions[from], to)
}
