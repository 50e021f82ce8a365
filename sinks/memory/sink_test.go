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

package memory

import (
	"context"
	"testing"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/matryer/is"
)

func TestSink_EmitUpsertsByPrimaryKey(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := NewSink(sdk.Table{Name: "users", PrimaryKey: []string{"id"}})

	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": 1, "name": "foo"}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": 2, "name": "bar"}))
	is.NoErr(s.Emit(ctx, "users", sdk.Record{"id": 1, "name": "baz"}))

	is.Equal(s.Emitted(), 3)
	is.Equal(s.Rows("users"), []sdk.Record{
		{"id": 1, "name": "baz"},
		{"id": 2, "name": "bar"},
	})
}

func TestSink_EmitWithoutPrimaryKey(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := NewSink()

	is.NoErr(s.Emit(ctx, "events", sdk.Record{"a": 1, "b": "x"}))
	is.NoErr(s.Emit(ctx, "events", sdk.Record{"b": "x", "a": 1}))
	is.NoErr(s.Emit(ctx, "events", sdk.Record{"a": 2, "b": "x"}))

	is.Equal(len(s.Rows("events")), 2)
	is.Equal(s.Tables(), []string{"events"})
}

func TestSink_EmitMissingPrimaryKey(t *testing.T) {
	is := is.New(t)

	s := NewSink(sdk.Table{Name: "users", PrimaryKey: []string{"id"}})
	err := s.Emit(context.Background(), "users", sdk.Record{"name": "foo"})
	is.True(err != nil)
	is.Equal(s.Emitted(), 0)
}

func TestSink_Persist(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := NewSink()
	is.Equal(s.State(), nil)

	state := sdk.State{"users": 1}
	is.NoErr(s.Persist(ctx, state))
	state["users"] = 2 // changing the state after Persist must not change the sink
	is.NoErr(s.Persist(ctx, state))

	is.Equal(s.States(), []sdk.State{{"users": 1}, {"users": 2}})
	is.Equal(s.State(), sdk.State{"users": 2})
}
