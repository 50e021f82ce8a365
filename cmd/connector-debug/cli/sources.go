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

package cli

import (
	"fmt"
	"slices"
	"strings"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/fivetran/fivetran-connector-sdk-sub004/sources/httpapi"
	"github.com/fivetran/fivetran-connector-sdk-sub004/sources/kafka"
	"github.com/fivetran/fivetran-connector-sdk-sub004/sources/sqltable"
	"github.com/prometheus/client_golang/prometheus"
)

type sourceDefinition struct {
	newSource func() sdk.Source
	// primaryKey is used if no primary key is passed on the command line.
	primaryKey []string
}

var sources = map[string]sourceDefinition{
	"httpapi":  {newSource: httpapi.NewSource},
	"sqltable": {newSource: sqltable.NewSource},
	"kafka":    {newSource: kafka.NewSource, primaryKey: []string{"offset"}},
}

// SourceNames returns the names accepted by the --source flag.
func SourceNames() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupSource(name string) (sourceDefinition, error) {
	def, ok := sources[name]
	if !ok {
		return sourceDefinition{}, fmt.Errorf("unknown source %q, expected one of %s", name, strings.Join(SourceNames(), ", "))
	}
	return def, nil
}

// newConnector returns the connector of the source. Metrics are registered
// with reg if it is not nil.
func newConnector(name string, primaryKey []string, reg prometheus.Registerer) (sdk.Connector, error) {
	def, err := lookupSource(name)
	if err != nil {
		return sdk.Connector{}, err
	}
	if len(primaryKey) == 0 {
		primaryKey = def.primaryKey
	}
	driver := &sdk.SyncDriver{Metrics: sdk.NewMetrics(reg)}
	conn := sdk.NewIncrementalConnector(sdk.Table{PrimaryKey: primaryKey}, def.newSource, driver)
	return conn, conn.Validate()
}
