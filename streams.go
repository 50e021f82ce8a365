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
	"fmt"
	"sync"

	"github.com/conduitio/conduit-commons/config"
	"gopkg.in/tomb.v2"
)

// Stream is a source together with its configuration, see SyncStreams.
type Stream struct {
	Source Source
	Config config.Config
}

// SyncStreams runs one sync per stream concurrently. The streams share sink
// and state: calls into sink are serialized and every checkpoint of a stream
// persists the shared state with the cursor of that stream merged in.
// Streams must use different state keys, a stream that checkpoints under a
// key already owned by another stream fails.
//
// The first stream that fails stops all other streams. The returned state
// contains the cursors of all checkpoints that were persisted.
func (d *SyncDriver) SyncStreams(ctx context.Context, streams []Stream, sink Sink, state State) (State, error) {
	// a tomb without goroutines never dies, Wait would block forever
	if len(streams) == 0 {
		return state.Clone(), nil
	}

	shared := &sharedState{
		sink:   Util.Sink.Locked(sink),
		state:  state.Clone(),
		owners: make(map[string]int),
	}

	t, ctx := tomb.WithContext(ctx)
	for i, s := range streams {
		t.Go(func() error {
			ss := &streamSink{shared: shared, stream: i, key: s.Source.Key}
			_, err := d.Sync(ctx, s.Source, ss, s.Config, state)
			if err != nil {
				return fmt.Errorf("stream %d: %w", i, err)
			}
			return nil
		})
	}
	err := t.Wait()

	return shared.snapshot(), err
}

type sharedState struct {
	m      sync.Mutex
	sink   Sink
	state  State
	owners map[string]int
}

func (s *sharedState) snapshot() State {
	s.m.Lock()
	defer s.m.Unlock()
	return s.state.Clone()
}

// persist stores the cursor of a stream in the shared state and persists it.
// If hasCursor is false the stream has no cursor yet and the shared state is
// persisted unchanged.
func (s *sharedState) persist(ctx context.Context, stream int, key string, cursor any, hasCursor bool) error {
	s.m.Lock()
	defer s.m.Unlock()

	if owner, ok := s.owners[key]; ok && owner != stream {
		return fmt.Errorf("state key %q is already used by stream %d", key, owner)
	}
	s.owners[key] = stream

	next := s.state.Clone()
	if hasCursor {
		next[key] = cursor
	}
	if err := s.sink.Persist(ctx, next.Clone()); err != nil {
		return err
	}
	s.state = next
	return nil
}

// streamSink is the sink handed to the driver of a single stream.
type streamSink struct {
	shared *sharedState
	stream int
	key    func() string
}

func (s *streamSink) Emit(ctx context.Context, table string, rec Record) error {
	return s.shared.sink.Emit(ctx, table, rec)
}

func (s *streamSink) Persist(ctx context.Context, state State) error {
	key := s.key()
	cursor, ok := state[key]
	return s.shared.persist(ctx, s.stream, key, cursor, ok)
}
