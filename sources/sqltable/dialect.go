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

package sqltable

import (
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	_ "github.com/go-sql-driver/mysql"   // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"   // PostgreSQL driver
	_ "modernc.org/sqlite"               // SQLite driver
)

// dialect contains the differences between the supported databases that
// matter for paging through a table.
type dialect struct {
	// driverName is the name the database/sql driver is registered with.
	driverName string
	quoteOpen  string
	quoteClose string
	// placeholder returns the placeholder of the first query argument.
	placeholder string
	// top is true if the row limit is set with TOP instead of LIMIT.
	top bool
}

var dialects = map[string]dialect{
	"pgx": {
		driverName:  "pgx",
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: "$1",
	},
	"mysql": {
		driverName:  "mysql",
		quoteOpen:   "`",
		quoteClose:  "`",
		placeholder: "?",
	},
	"sqlserver": {
		driverName:  "sqlserver",
		quoteOpen:   "[",
		quoteClose:  "]",
		placeholder: "@p1",
		top:         true,
	},
	"sqlite": {
		driverName:  "sqlite",
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: "?",
	},
}

func driverNames() []string {
	return []string{"pgx", "mysql", "sqlserver", "sqlite"}
}

// quote quotes an identifier, a dot separates the schema from the name.
func (d dialect) quote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		escaped := strings.ReplaceAll(p, d.quoteClose, d.quoteClose+d.quoteClose)
		parts[i] = d.quoteOpen + escaped + d.quoteClose
	}
	return strings.Join(parts, ".")
}

// selectQuery returns the query that fetches the next page. If withCursor is
// false the query returns the first page and takes no arguments.
func (d dialect) selectQuery(table string, columns []string, cursorColumn string, withCursor bool, limit int) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = d.quote(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if d.top {
		fmt.Fprintf(&sb, "TOP (%d) ", limit)
	}
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(d.quote(table))
	if withCursor {
		fmt.Fprintf(&sb, " WHERE %s > %s", d.quote(cursorColumn), d.placeholder)
	}
	fmt.Fprintf(&sb, " ORDER BY %s", d.quote(cursorColumn))
	if !d.top {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String()
}
