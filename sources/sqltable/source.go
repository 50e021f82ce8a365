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

// Package sqltable provides a source that pages through a database table
// ordered by a cursor column.
package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/conduitio/conduit-commons/config"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/goccy/go-json"
)

// Source reads the rows of a table with a query like
//
//	SELECT columns FROM table WHERE cursor > ? ORDER BY cursor LIMIT n
//
// The cursor column must increase with every insert or update, otherwise
// changed rows are missed.
type Source struct {
	sdk.UnimplementedSource

	config  Config
	dialect dialect
	db      *sql.DB
}

// NewSource returns the source wrapped into the default middleware.
func NewSource() sdk.Source {
	return sdk.SourceWithMiddleware(&Source{}, sdk.DefaultSourceMiddleware()...)
}

func (s *Source) Parameters() config.Parameters {
	return s.config.Parameters()
}

func (s *Source) Configure(_ context.Context, cfg config.Config) error {
	if err := sdk.Util.ParseConfig(cfg, &s.config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	d, err := s.config.dialect()
	if err != nil {
		return err
	}
	s.dialect = d
	return nil
}

func (s *Source) Open(ctx context.Context) error {
	db, err := sql.Open(s.dialect.driverName, s.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", classify(ctx, err))
	}
	s.db = db

	sdk.Logger(ctx).Info().
		Str("driver", s.config.Driver).
		Str("table", s.config.Table).
		Msg("connected to database")
	return nil
}

func (s *Source) Key() string {
	if s.config.Key != "" {
		return s.config.Key
	}
	return s.config.Table
}

func (s *Source) FetchPage(ctx context.Context, cursor any, pageSize int) (sdk.Page, error) {
	query := s.dialect.selectQuery(s.config.Table, s.config.columns(), s.config.CursorColumn, cursor != nil, pageSize)
	var args []any
	if cursor != nil {
		args = append(args, cursorArg(cursor))
	}

	sdk.Logger(ctx).Trace().Str("query", query).Interface("cursor", cursor).Msg("fetching page")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return sdk.Page{}, fmt.Errorf("failed to query %s: %w", s.config.Table, classify(ctx, err))
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return sdk.Page{}, fmt.Errorf("failed to read rows of %s: %w", s.config.Table, classify(ctx, err))
	}

	return sdk.Page{
		Records:    records,
		NextCursor: sdk.Util.Source.NextCursorFromRecords(records, s.config.CursorColumn),
	}, nil
}

func (s *Source) Teardown(context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]sdk.Record, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var records []sdk.Record
	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(sdk.Record, len(types))
		for i, ct := range types {
			rec[ct.Name()] = convertValue(vals[i], ct.DatabaseTypeName())
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// convertValue turns the raw bytes some drivers return for text and numeric
// columns into strings. Binary columns stay bytes.
func convertValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch t := strings.ToUpper(dbType); {
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"), t == "BYTEA", t == "IMAGE":
		return b
	default:
		return string(b)
	}
}

// cursorArg converts a cursor restored from the state back into a query
// argument. Timestamps are stored as RFC 3339 strings and numbers as
// json.Number, neither is understood by every driver.
func cursorArg(cursor any) any {
	switch c := cursor.(type) {
	case json.Number:
		if i, err := c.Int64(); err == nil {
			return i
		}
		if f, err := c.Float64(); err == nil {
			return f
		}
		return c.String()
	case float64:
		if c == float64(int64(c)) {
			return int64(c)
		}
		return c
	case string:
		if t, err := time.Parse(time.RFC3339Nano, c); err == nil {
			return t
		}
		return c
	default:
		return c
	}
}
