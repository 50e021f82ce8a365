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

/*
Package sdk implements utilities for implementing an incremental sync
connector.

# Getting started

A connector copies data from a third party system into a destination owned
by the host. The host calls the connector periodically, every call is a sync
that picks up where the previous one stopped. The SDK takes care of the
parts every connector needs: validating the configuration, paging,
retrying, normalizing records and checkpointing progress. The connector only
needs to know how to fetch a page of records from its system.

To implement a connector, implement a [Source] and expose it through a
[Connector], preferably in connector.go at the root of your project:

	var Connector = sdk.NewIncrementalConnector(
	    sdk.Table{Name: "users", PrimaryKey: []string{"id"}},
	    NewSource,
	    nil, // use the default SyncDriver
	)

The host uses [Connector.Schema] to learn which tables are written and
[Connector.Update] to run a sync.

General advice for implementing connectors:
  - The SDK provides a structured logger that can be retrieved with
    [Logger]. Every sync attaches the source key and a run ID to it.
  - If you want to add logging to the hot path (i.e. code that is executed
    for every record) you should use the log level "trace", otherwise it can
    greatly impact the performance of your connector.

# Source

A [Source] fetches pages of records from a third party system. Every
source needs to embed [UnimplementedSource] and implement these methods:

  - [Source.Parameters] describes the configuration of the source. The
    driver validates the configuration against it and adds its own
    "sdk.*" parameters, so a configuration error is reported before any
    request is made.
  - [Source.Configure] receives the validated configuration. Use
    [Util.ParseConfig] to decode it into a struct.
  - [Source.Open] creates clients and connections.
  - [Source.Key] returns the key under which the cursor of the source is
    stored in the [State].
  - [Source.FetchPage] returns the records after a cursor. Wrap errors with
    [Transient] if they should be retried and with [Unauthenticated] if the
    credentials were rejected.
  - [Source.Teardown] releases everything created in Open.

Sources are usually wrapped in [DefaultSourceMiddleware] using
[SourceWithMiddleware], which adds rate limiting and a timeout for single
page fetches.

# Sync

[SyncDriver.Sync] runs one sync. It starts at the cursor stored in the
state, fetches pages until the source is exhausted, normalizes every record
with a [Normalizer] and emits it into a [Sink]. If cursor fields are
configured the cursor is the maximum of these fields over all emitted
records, otherwise it is the cursor of the last page. The state is persisted
every CheckpointInterval records and once more at the end of the run.

Delivery is at-least-once. Records emitted after the last checkpoint of a
failed run are emitted again by the next run, the host makes this
idempotent by upserting records on the primary key of the table.

Use [SyncDriver.SyncStreams] to sync multiple sources into the same sink and
state concurrently.

# Errors

Errors returned by the driver can be matched with [errors.Is] against
[ErrConfiguration], [ErrAuthentication], [ErrSourceUnavailable] and
[ErrRecordNormalization]. A record that can not be normalized is logged and
skipped, it does not fail the sync.

# Testing

Call [AcceptanceTest] from a test in your connector to check that the source
behaves as the driver expects, including resuming from a persisted state.
*/
package sdk
