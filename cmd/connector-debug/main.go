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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/fivetran/fivetran-connector-sdk-sub004/cmd/connector-debug/cli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	cmdRoot := &cobra.Command{
		Use:   "connector-debug",
		Short: "Run connectors locally against a SQLite warehouse",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			lvl, err := zerolog.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(lvl).
				With().Timestamp().Logger()
			sdk.SetDefaultLogger(logger)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	cmdRoot.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	sourceUsage := "source to run, one of " + strings.Join(cli.SourceNames(), ", ")

	cmdDebug := &cobra.Command{
		Use:   "debug",
		Short: "Sync a source into a local warehouse, resuming from its persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, _ := cmd.Flags().GetString("source")
			configuration, _ := cmd.Flags().GetString("configuration")
			warehouse, _ := cmd.Flags().GetString("warehouse")
			primaryKey, _ := cmd.Flags().GetStringSlice("primary-key")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			cmd.SilenceUsage = true

			return cli.NewDebugCommand(source, configuration, warehouse, primaryKey, metricsAddr, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmdDebug.Flags().StringP("source", "s", "", sourceUsage)
	cmdDebug.Flags().StringP("configuration", "c", "configuration.json", "path to the JSON or YAML configuration file")
	cmdDebug.Flags().StringP("warehouse", "w", "warehouse.db", "path to the SQLite warehouse")
	cmdDebug.Flags().StringSlice("primary-key", nil, "primary key columns of the synced table")
	cmdDebug.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on while syncing, e.g. :9090")
	_ = cmdDebug.MarkFlagRequired("source")

	cmdReset := &cobra.Command{
		Use:   "reset",
		Short: "Clear the state persisted in a warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			warehouse, _ := cmd.Flags().GetString("warehouse")
			cmd.SilenceUsage = true

			return cli.NewResetCommand(warehouse, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmdReset.Flags().StringP("warehouse", "w", "warehouse.db", "path to the SQLite warehouse")

	cmdSchema := &cobra.Command{
		Use:   "schema",
		Short: "Print the tables a source writes into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, _ := cmd.Flags().GetString("source")
			configuration, _ := cmd.Flags().GetString("configuration")
			primaryKey, _ := cmd.Flags().GetStringSlice("primary-key")

			return cli.NewSchemaCommand(source, configuration, primaryKey, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmdSchema.Flags().StringP("source", "s", "", sourceUsage)
	cmdSchema.Flags().StringP("configuration", "c", "configuration.json", "path to the JSON or YAML configuration file")
	cmdSchema.Flags().StringSlice("primary-key", nil, "primary key columns of the synced table")
	_ = cmdSchema.MarkFlagRequired("source")

	cmdParams := &cobra.Command{
		Use:   "params",
		Short: "Print the parameters of a source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, _ := cmd.Flags().GetString("source")

			return cli.NewParamsCommand(source, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmdParams.Flags().StringP("source", "s", "", sourceUsage)
	_ = cmdParams.MarkFlagRequired("source")

	cmdRoot.AddCommand(
		cmdDebug,
		cmdReset,
		cmdSchema,
		cmdParams,
	)
	cmdRoot.CompletionOptions.DisableDefaultCmd = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmdRoot.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
