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

// Package memory provides a sink that keeps upserted rows and persisted
// states in memory. It is meant for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/goccy/go-json"
)

// Sink is an in-memory sdk.Sink. Emit upserts rows keyed by the primary key
// of the table, tables without a known primary key are keyed by the whole
// record. The zero value is not usable, create it with NewSink.
type Sink struct {
	m sync.Mutex

	primaryKeys map[string][]string
	tables      map[string]*table

	emitted int
	states  []sdk.State
}

type table struct {
	order []string
	rows  map[string]sdk.Record
}

var _ sdk.Sink = (*Sink)(nil)

// NewSink returns an empty sink that knows the primary keys of tables.
func NewSink(tables ...sdk.Table) *Sink {
	s := &Sink{
		primaryKeys: make(map[string][]string, len(tables)),
		tables:      make(map[string]*table),
	}
	for _, t := range tables {
		s.primaryKeys[t.Name] = t.PrimaryKey
	}
	return s
}

func (s *Sink) Emit(_ context.Context, tableName string, rec sdk.Record) error {
	key, err := s.key(tableName, rec)
	if err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()

	t, ok := s.tables[tableName]
	if !ok {
		t = &table{rows: make(map[string]sdk.Record)}
		s.tables[tableName] = t
	}
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = rec.Clone()
	s.emitted++
	return nil
}

func (s *Sink) Persist(_ context.Context, state sdk.State) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.states = append(s.states, state.Clone())
	return nil
}

func (s *Sink) key(tableName string, rec sdk.Record) (string, error) {
	pk := s.primaryKeys[tableName]
	if len(pk) == 0 {
		// go-json sorts map keys, equal records produce equal keys
		b, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("failed to derive key of record: %w", err)
		}
		return string(b), nil
	}

	parts := make([]any, len(pk))
	for i, col := range pk {
		v, ok := rec[col]
		if !ok || v == nil {
			return "", fmt.Errorf("table %q: record is missing primary key column %q", tableName, col)
		}
		parts[i] = v
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("failed to derive key of record: %w", err)
	}
	return string(b), nil
}

// Rows returns the current rows of a table in the order they were first
// emitted.
func (s *Sink) Rows(tableName string) []sdk.Record {
	s.m.Lock()
	defer s.m.Unlock()

	t, ok := s.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]sdk.Record, len(t.order))
	for i, key := range t.order {
		out[i] = t.rows[key].Clone()
	}
	return out
}

// Tables returns the names of all tables that received at least one record.
func (s *Sink) Tables() []string {
	s.m.Lock()
	defer s.m.Unlock()

	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	return out
}

// Emitted returns the number of Emit calls, including upserts of existing
// rows.
func (s *Sink) Emitted() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.emitted
}

// States returns every persisted state in order.
func (s *Sink) States() []sdk.State {
	s.m.Lock()
	defer s.m.Unlock()

	out := make([]sdk.State, len(s.states))
	for i, st := range s.states {
		out[i] = st.Clone()
	}
	return out
}

// State returns the last persisted state, or nil if Persist was never called.
func (s *Sink) State() sdk.State {
	s.m.Lock()
	defer s.m.Unlock()

	if len(s.states) == 0 {
		return nil
	}
	return s.states[len(s.states)-1].Clone()
}

// String summarizes the content of the sink, e.g. for debug output.
func (s *Sink) String() string {
	s.m.Lock()
	defer s.m.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d records emitted, %d checkpoints", s.emitted, len(s.states))
	for name, t := range s.tables {
		fmt.Fprintf(&sb, ", %s: %d rows", name, len(t.rows))
	}
	return sb.String()
}
