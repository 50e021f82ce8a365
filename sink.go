// Copyright © 2022 Meroxa, Inc.
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

//go:generate mockgen -destination=mock_sink_test.go -self_package=github.com/fivetran/fivetran-connector-sdk-sub004 -package=sdk -write_package_comment=false . Sink

package sdk

import (
	"context"
	"sync"
)

// Sink is the host side of a sync. It receives normalized records and state
// checkpoints.
type Sink interface {
	// Emit hands a normalized record to the host. The host must treat it as
	// an upsert keyed by the primary key of the table, because records
	// emitted after the last Persist are delivered again on the next run.
	Emit(ctx context.Context, table string, rec Record) error

	// Persist durably records the state, a subsequent run receives it back
	// unchanged. All records emitted before Persist must be durable once
	// Persist returns.
	Persist(ctx context.Context, state State) error
}

// SinkUtil provides utility methods for working with sinks.
type SinkUtil struct{}

// Locked returns a Sink that serializes calls to s. Use it when multiple
// syncs share one sink, see SyncStreams.
func (SinkUtil) Locked(s Sink) Sink {
	if ls, ok := s.(*lockedSink); ok {
		return ls
	}
	return &lockedSink{sink: s}
}

type lockedSink struct {
	m    sync.Mutex
	sink Sink
}

func (s *lockedSink) Emit(ctx context.Context, table string, rec Record) error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.sink.Emit(ctx, table, rec)
}

func (s *lockedSink) Persist(ctx context.Context, state State) error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.sink.Persist(ctx, state)
}
