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

//go:generate mockgen -destination=mock_source_test.go -self_package=github.com/fivetran/fivetran-connector-sdk-sub004 -package=sdk -write_package_comment=false . Source

package sdk

import (
	"context"

	"github.com/conduitio/conduit-commons/config"
)

// Source fetches pages of records from a 3rd party system. A source is
// driven by the SyncDriver, which owns the resume cursor and decides when
// progress is checkpointed.
// All implementations must embed UnimplementedSource for forward compatibility.
type Source interface {
	// Parameters is a map of named Parameters that describe how to configure
	// the Source.
	Parameters() config.Parameters

	// Configure is the first function to be called. It provides the source
	// with the configuration that was already validated against Parameters.
	// The source should decode and store it. Testing if the source can reach
	// the 3rd party system should be done in Open, not in Configure.
	Configure(context.Context, config.Config) error

	// Open is called after Configure and should create the clients or
	// connections used by FetchPage. The source owns these until Teardown.
	Open(context.Context) error

	// Key returns the state key under which the cursor of this source is
	// stored. Sources that are synced into the same state must return
	// different keys. Key is called after Configure.
	Key() string

	// FetchPage returns at most pageSize records that come after cursor. The
	// cursor is nil on the first call of a run without prior state, after
	// that it is the cursor stored in the state or the NextCursor of the
	// previous page.
	// Returning an empty page or a page with a nil NextCursor ends the run.
	// Errors wrapped with Transient are retried with a backoff, errors
	// wrapped with Unauthenticated and all other errors fail the sync.
	FetchPage(ctx context.Context, cursor any, pageSize int) (Page, error)

	// Teardown signals to the source that there will be no more calls to any
	// other function. It is called even if Open or FetchPage failed.
	Teardown(context.Context) error

	mustEmbedUnimplementedSource()
}

// Page is a single batch of raw records returned by Source.FetchPage.
type Page struct {
	// Records are the raw records, they are normalized before being emitted.
	Records []Record
	// NextCursor is passed to the next FetchPage call. A nil value signals
	// there are no more pages in this run.
	NextCursor any
}

// Done reports whether the page is the last one of the run.
func (p Page) Done() bool {
	return len(p.Records) == 0 || p.NextCursor == nil
}

// SourceUtil provides utility methods for implementing a source.
type SourceUtil struct{}

// NextCursorFromRecords returns the value of field in the last record of
// records, which is the next cursor for sources that return records ordered
// by that field. It returns nil for an empty page, meaning the source is
// exhausted. A short page still yields a cursor so the position after its
// last record is persisted; the following empty page ends the sync.
func (SourceUtil) NextCursorFromRecords(records []Record, field string) any {
	if len(records) == 0 {
		return nil
	}
	return cursorValue(records[len(records)-1][field])
}
