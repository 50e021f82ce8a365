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

//go:generate stringer -type=ColumnType -linecomment

package sdk

import (
	"fmt"
	"strconv"
	"strings"
)

// Record represents a single row produced by a source. Before it is handed
// to a Sink it is normalized, after that it only contains scalar values
// (string, bool, numbers, []byte or nil).
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

const (
	ColumnTypeUnspecified ColumnType = iota // unspecified
	ColumnTypeString                        // string
	ColumnTypeInt                           // int
	ColumnTypeFloat                         // float
	ColumnTypeBool                          // bool
	ColumnTypeTimestamp                     // timestamp
	ColumnTypeJSON                          // json
	ColumnTypeBinary                        // binary
)

// ColumnType is a hint for the destination about the type of a column.
// Columns without a hint are inferred by the destination.
type ColumnType int

func (i ColumnType) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ColumnType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return nil // empty string, do nothing
	}

	for t := ColumnTypeUnspecified; t <= ColumnTypeBinary; t++ {
		if string(b) == t.String() {
			*i = t
			return nil
		}
	}

	// it's not a known type, but we also allow ColumnType(int)
	valIntRaw := strings.TrimSuffix(strings.TrimPrefix(string(b), "ColumnType("), ")")
	valInt, err := strconv.Atoi(valIntRaw)
	if err != nil {
		return fmt.Errorf("unknown column type %q", b)
	}
	*i = ColumnType(valInt)
	return nil
}

// Table describes a destination table. It is returned by Connector.Schema and
// tells the host how records emitted for the table are keyed. Emit is an
// upsert keyed by PrimaryKey, so re-delivered records overwrite themselves.
type Table struct {
	// Name is the destination table name.
	Name string `json:"table"`
	// PrimaryKey lists the columns that uniquely identify a record. An empty
	// primary key means the destination derives a key from all columns.
	PrimaryKey []string `json:"primary_key,omitempty"`
	// Columns contains optional type hints, keyed by column name.
	Columns map[string]ColumnType `json:"columns,omitempty"`
}

// Validate checks that the descriptor can be used by a sink.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is empty")
	}
	seen := make(map[string]bool, len(t.PrimaryKey))
	for _, col := range t.PrimaryKey {
		if col == "" {
			return fmt.Errorf("table %q: primary key contains an empty column name", t.Name)
		}
		if seen[col] {
			return fmt.Errorf("table %q: primary key column %q declared twice", t.Name, col)
		}
		seen[col] = true
	}
	return nil
}
