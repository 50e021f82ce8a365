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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/goccy/go-json"
	"github.com/matryer/is"
)

var usersTable = sdk.Table{
	Name:       "users",
	PrimaryKey: []string{"id"},
	Columns:    map[string]sdk.ColumnType{"id": sdk.ColumnTypeInt},
}

func openSink(t *testing.T, path string) *Sink {
	is := is.New(t)
	s, err := Open(context.Background(), path, usersTable)
	is.NoErr(err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSink_EmitPersistLoad(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse.db")

	s := openSink(t, path)
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(1), "name": "foo"}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(2), "name": "bar"}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(1), "name": "baz"}))
	is.NoErr(s.Persist(ctx, sdk.State{"users": "2024-01-02T00:00:00Z"}))
	is.NoErr(s.Close())

	s = openSink(t, path)
	state, err := s.LoadState(ctx)
	is.NoErr(err)
	is.Equal(state, sdk.State{"users": "2024-01-02T00:00:00Z"})

	rows, err := s.Rows(ctx, "users")
	is.NoErr(err)
	is.Equal(rows, []sdk.Record{
		{"id": int64(1), "name": "baz"},
		{"id": int64(2), "name": "bar"},
	})
}

func TestSink_CloseDiscardsUncheckpointedRows(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse.db")

	s := openSink(t, path)
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(1)}))
	is.NoErr(s.Persist(ctx, sdk.State{"users": 1}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(2)}))
	is.NoErr(s.Close())

	s = openSink(t, path)
	n, err := s.Count(ctx, "users")
	is.NoErr(err)
	is.Equal(n, 1)

	state, err := s.LoadState(ctx)
	is.NoErr(err)
	is.Equal(state, sdk.State{"users": json.Number("1")}) // numbers keep their precision
}

func TestSink_AddsNewColumns(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := openSink(t, filepath.Join(t.TempDir(), "warehouse.db"))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(1), "name": "foo"}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(2), "email": "bar@example.com"}))
	is.NoErr(s.Persist(ctx, sdk.State{}))

	rows, err := s.Rows(ctx, "users")
	is.NoErr(err)
	is.Equal(rows, []sdk.Record{
		{"id": int64(1), "name": "foo"},
		{"id": int64(2), "email": "bar@example.com"},
	})
}

func TestSink_TableWithoutPrimaryKey(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := openSink(t, filepath.Join(t.TempDir(), "warehouse.db"))
	is.NoErr(s.Emit(ctx, "events", sdk.Record{"kind": "click", "n": int64(1)}))
	is.NoErr(s.Emit(ctx, "events", sdk.Record{"kind": "click", "n": int64(1)}))
	is.NoErr(s.Emit(ctx, "events", sdk.Record{"kind": "view", "n": int64(1)}))
	is.NoErr(s.Persist(ctx, sdk.State{}))

	n, err := s.Count(ctx, "events")
	is.NoErr(err)
	is.Equal(n, 2)
}

func TestSink_MissingPrimaryKey(t *testing.T) {
	is := is.New(t)

	s := openSink(t, filepath.Join(t.TempDir(), "warehouse.db"))
	err := s.Emit(context.Background(), "users", sdk.Record{"name": "foo"})
	is.True(err != nil)
}

func TestSink_ResetState(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := openSink(t, filepath.Join(t.TempDir(), "warehouse.db"))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": int64(1)}))
	is.NoErr(s.Persist(ctx, sdk.State{"users": 1}))
	is.NoErr(s.ResetState(ctx))

	state, err := s.LoadState(ctx)
	is.NoErr(err)
	is.Equal(state, sdk.State{})

	n, err := s.Count(ctx, "users")
	is.NoErr(err)
	is.Equal(n, 1) // rows are kept
}
