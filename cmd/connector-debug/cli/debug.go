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
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/fivetran/fivetran-connector-sdk-sub004/internal"
	"github.com/fivetran/fivetran-connector-sdk-sub004/sinks/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

type DebugCommand struct {
	source        string
	configuration string
	warehouse     string
	primaryKey    []string
	metricsAddr   string
	out           io.Writer
}

func NewDebugCommand(source, configuration, warehouse string, primaryKey []string, metricsAddr string, out io.Writer) *DebugCommand {
	return &DebugCommand{
		source:        source,
		configuration: configuration,
		warehouse:     warehouse,
		primaryKey:    primaryKey,
		metricsAddr:   metricsAddr,
		out:           out,
	}
}

// Execute runs one sync of the source into the warehouse, resuming from the
// state persisted by the previous run.
func (cmd *DebugCommand) Execute(ctx context.Context) (err error) {
	cfg, err := readConfiguration(cmd.configuration)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	conn, err := newConnector(cmd.source, cmd.primaryKey, reg)
	if err != nil {
		return err
	}
	if cmd.metricsAddr != "" {
		stop := serveMetrics(ctx, cmd.metricsAddr, reg)
		defer stop()
	}

	tables, err := conn.Schema(cfg)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	wh, err := sqlite.Open(ctx, cmd.warehouse, tables...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, wh.Close())
	}()

	state, err := wh.LoadState(ctx)
	if err != nil {
		return err
	}
	sdk.Logger(ctx).Info().
		Str("warehouse", wh.Path()).
		Interface("state", state).
		Msg("loaded state")

	start := time.Now()
	if err := conn.Update(ctx, cfg, state, wh); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	elapsed := time.Since(start)

	state, err = wh.LoadState(ctx)
	if err != nil {
		return err
	}
	return cmd.printSummary(ctx, wh, tables, state, elapsed)
}

func (cmd *DebugCommand) printSummary(ctx context.Context, wh *sqlite.Sink, tables []sdk.Table, state sdk.State, elapsed time.Duration) error {
	fmt.Fprintf(cmd.out, "Sync finished in %s, warehouse %s\n", elapsed.Round(time.Millisecond), wh.Path())
	for _, t := range tables {
		n, err := wh.Count(ctx, t.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "  %s: %d rows\n", t.Name, n)
	}

	b, err := sdk.MarshalState(state)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "State: %s\n", b)
	return nil
}

// serveMetrics exposes the metrics of reg on addr until the returned
// function is called.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sdk.Logger(ctx).Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	sdk.Logger(ctx).Info().Str("addr", addr).Msg("serving metrics on /metrics")

	return func() {
		shutdownCtx, cancel := internal.CleanupContext(ctx, 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
