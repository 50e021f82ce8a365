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

package sdk

import (
	"context"
	"fmt"

	"github.com/conduitio/conduit-commons/config"
)

// Connector combines the functions a host calls into one struct.
type Connector struct {
	// Parameters describes the configuration accepted by the connector. It
	// can be nil if the connector does not take any configuration.
	Parameters func() config.Parameters
	// Schema returns the tables the connector writes into. This field is
	// mandatory, if it is empty the host does not know how to key records.
	Schema func(config.Config) ([]Table, error)
	// Update runs one sync. It emits records into sink and persists the
	// state through it. This field is mandatory.
	Update func(ctx context.Context, cfg config.Config, state State, sink Sink) error
}

// Validate checks that the mandatory fields are set.
func (c Connector) Validate() error {
	if c.Schema == nil {
		return fmt.Errorf("connector is missing the Schema function")
	}
	if c.Update == nil {
		return fmt.Errorf("connector is missing the Update function")
	}
	return nil
}

// NewIncrementalConnector returns a connector that syncs a single table from
// the source returned by newSource. Each call to Update creates a new source
// and runs it through driver. If driver is nil a zero value SyncDriver is
// used.
//
// The table name can be overridden with the "sdk.table" parameter. If table
// has no name and the parameter is not set, the source key is used.
func NewIncrementalConnector(table Table, newSource func() Source, driver *SyncDriver) Connector {
	if driver == nil {
		driver = &SyncDriver{}
	}
	d := *driver
	if d.Config.Table == "" {
		d.Config.Table = table.Name
	}

	return Connector{
		Parameters: func() config.Parameters {
			return d.Parameters(newSource())
		},
		Schema: func(cfg config.Config) ([]Table, error) {
			t := table
			if v := cfg[configSyncTable]; v != "" {
				t.Name = v
			}
			if t.Name == "" {
				src := newSource()
				validCfg, err := ValidateConfig(cfg, d.Parameters(src))
				if err != nil {
					return nil, err
				}
				if err := src.Configure(context.Background(), validCfg); err != nil {
					return nil, fmt.Errorf("failed to configure source: %w", err)
				}
				t.Name = src.Key()
			}
			if err := t.Validate(); err != nil {
				return nil, err
			}
			return []Table{t}, nil
		},
		Update: func(ctx context.Context, cfg config.Config, state State, sink Sink) error {
			_, err := d.Sync(ctx, newSource(), sink, cfg, state)
			return err
		},
	}
}
