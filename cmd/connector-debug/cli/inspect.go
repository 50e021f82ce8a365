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
	"context"
	"fmt"
	"io"

	"github.com/conduitio/conduit-commons/config"
	"github.com/fivetran/fivetran-connector-sdk-sub004/sinks/sqlite"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ResetCommand clears the state persisted in a warehouse.
type ResetCommand struct {
	warehouse string
	out       io.Writer
}

func NewResetCommand(warehouse string, out io.Writer) *ResetCommand {
	return &ResetCommand{warehouse: warehouse, out: out}
}

func (cmd *ResetCommand) Execute(ctx context.Context) (err error) {
	wh, err := sqlite.Open(ctx, cmd.warehouse)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, wh.Close())
	}()

	if err := wh.ResetState(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "State of %s reset, the next sync starts from scratch\n", cmd.warehouse)
	return nil
}

// SchemaCommand prints the tables a source writes into.
type SchemaCommand struct {
	source        string
	configuration string
	primaryKey    []string
	out           io.Writer
}

func NewSchemaCommand(source, configuration string, primaryKey []string, out io.Writer) *SchemaCommand {
	return &SchemaCommand{
		source:        source,
		configuration: configuration,
		primaryKey:    primaryKey,
		out:           out,
	}
}

func (cmd *SchemaCommand) Execute(_ context.Context) error {
	cfg, err := readConfiguration(cmd.configuration)
	if err != nil {
		return err
	}
	conn, err := newConnector(cmd.source, cmd.primaryKey, nil)
	if err != nil {
		return err
	}
	tables, err := conn.Schema(cfg)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	type table struct {
		Name       string   `yaml:"table"`
		PrimaryKey []string `yaml:"primaryKey,omitempty"`
	}
	out := make([]table, len(tables))
	for i, t := range tables {
		out[i] = table{Name: t.Name, PrimaryKey: t.PrimaryKey}
	}
	return writeYAML(cmd.out, out)
}

// ParamsCommand prints the parameters of a source, including the parameters
// added by the sync driver and the middleware.
type ParamsCommand struct {
	source string
	out    io.Writer
}

func NewParamsCommand(source string, out io.Writer) *ParamsCommand {
	return &ParamsCommand{source: source, out: out}
}

func (cmd *ParamsCommand) Execute(_ context.Context) error {
	conn, err := newConnector(cmd.source, nil, nil)
	if err != nil {
		return err
	}

	type param struct {
		Type        string `yaml:"type"`
		Default     string `yaml:"default,omitempty"`
		Required    bool   `yaml:"required,omitempty"`
		Description string `yaml:"description"`
	}
	// yaml.v3 sorts map keys
	out := make(map[string]param)
	for name, p := range conn.Parameters() {
		out[name] = param{
			Type:        fmt.Sprint(p.Type),
			Default:     p.Default,
			Required:    isRequired(p),
			Description: p.Description,
		}
	}
	return writeYAML(cmd.out, out)
}

func isRequired(p config.Parameter) bool {
	for _, v := range p.Validations {
		if _, ok := v.(config.ValidationRequired); ok {
			return true
		}
	}
	return false
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
