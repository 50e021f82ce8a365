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


package sdk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"github.com/matryer/is"
	"go.uber.org/goleak"
)

func TestSyncStreams(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	a := newFakeSource(3)
	a.key = "a"
	b := newFakeSource(5)
	b.key = "b"
	sink := &acceptanceSink{}

	var d SyncDriver
	state, err := d.SyncStreams(context.Background(), []Stream{
		{Source: a, Config: config.Config{configSyncPageSize: "2"}},
		{Source: b, Config: config.Config{configSyncPageSize: "2"}},
	}, sink, State{"other": "x"})
	is.NoErr(err)
	is.Equal(state, State{"other": "x", "a": 3, "b": 5})
	is.Equal(len(sink.records), 8)

	// every checkpoint carries the cursors of all streams
	is.Equal(sink.states[len(sink.states)-1], state)
	for _, s := range sink.states {
		is.Equal(s["other"], "x")
	}
	is.True(a.tornDown)
	is.True(b.tornDown)
}

func TestSyncStreams_NoStreams(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	type result struct {
		state State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var d SyncDriver
		state, err := d.SyncStreams(context.Background(), nil, &acceptanceSink{}, State{"a": 1})
		done <- result{state, err}
	}()

	select {
	case res := <-done:
		is.NoErr(res.err)
		is.Equal(res.state, State{"a": 1})
	case <-time.After(time.Second):
		t.Fatal("SyncStreams did not return")
	}
}

func TestSyncStreams_Resume(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	a := newFakeSource(4)
	a.key = "a"
	b := newFakeSource(4)
	b.key = "b"
	sink := &acceptanceSink{}

	var d SyncDriver
	state, err := d.SyncStreams(context.Background(), []Stream{
		{Source: a},
		{Source: b},
	}, sink, State{"a": 4, "b": 2})
	is.NoErr(err)
	is.Equal(state, State{"a": 4, "b": 4})
	is.Equal(len(sink.records), 2)
}

func TestSyncStreams_KeyCollision(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	a := newFakeSource(2)
	b := newFakeSource(2)

	var d SyncDriver
	_, err := d.SyncStreams(context.Background(), []Stream{
		{Source: a},
		{Source: b},
	}, &acceptanceSink{}, nil)
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `state key "src" is already used by stream`))
}

func TestSyncStreams_FirstFailureStopsAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	cause := errors.New("invalid response")
	a := newFakeSource(2)
	a.key = "a"
	b := newFakeSource(2)
	b.key = "b"
	b.failAt = 1
	b.err = cause

	var d SyncDriver
	state, err := d.SyncStreams(context.Background(), []Stream{
		{Source: a},
		{Source: b},
	}, &acceptanceSink{}, State{"b": 0})
	is.True(errors.Is(err, cause))
	is.True(strings.Contains(err.Error(), "stream 1"))
	// stream b never checkpointed, its cursor is unchanged
	is.Equal(state["b"], 0)
	is.True(b.tornDown)
}
