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
	"slices"

	"github.com/conduitio/conduit-commons/config"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
)

type Config struct {
	// Driver selects the database dialect.
	Driver string `json:"driver"`
	// DSN is the connection string passed to the driver.
	DSN string `json:"dsn"`
	// Table is the table to sync, optionally prefixed with the schema.
	Table string `json:"table"`
	// CursorColumn is a column that increases with every insert or update.
	CursorColumn string `json:"cursorColumn"`
	// Columns is a comma separated list of the columns to sync.
	Columns string `json:"columns"`
	// Key is the state key of the source.
	Key string `json:"key"`
}

func (Config) Parameters() config.Parameters {
	return config.Parameters{
		"driver": {
			Default:     "",
			Description: "Database driver, one of pgx (PostgreSQL, YugabyteDB), mysql (MySQL, TiDB), sqlserver or sqlite.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
				config.ValidationInclusion{List: driverNames()},
			},
		},
		"dsn": {
			Default:     "",
			Description: "Connection string of the database.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"table": {
			Default:     "",
			Description: "Table to sync, optionally prefixed with the schema (e.g. public.users).",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"cursorColumn": {
			Default:     "",
			Description: "Column that increases with every insert or update, e.g. an auto increment ID or an updated_at timestamp.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"columns": {
			Default:     "*",
			Description: "Comma separated list of columns to sync, * syncs all columns. The cursor column is always included.",
			Type:        config.ParameterTypeString,
		},
		"key": {
			Default:     "",
			Description: "Key under which the cursor is stored in the state. Defaults to the table name.",
			Type:        config.ParameterTypeString,
		},
	}
}

// columns returns the columns to select, nil means all columns.
func (c Config) columns() []string {
	cols := sdk.Util.SplitList(c.Columns)
	if len(cols) == 0 || slices.Contains(cols, "*") {
		return nil
	}
	if !slices.Contains(cols, c.CursorColumn) {
		cols = append(cols, c.CursorColumn)
	}
	return cols
}

func (c Config) dialect() (dialect, error) {
	d, ok := dialects[c.Driver]
	if !ok {
		return dialect{}, fmt.Errorf("unknown driver %q", c.Driver)
	}
	return d, nil
}
