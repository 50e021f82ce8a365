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

package sdk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"github.com/fivetran/fivetran-connector-sdk-sub004/internal"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const (
	configSyncTable              = "sdk.table"
	configSyncPageSize           = "sdk.page.size"
	configSyncCheckpointInterval = "sdk.checkpoint.interval"
	configSyncCursorFields       = "sdk.cursor.fields"
	configSyncRetryMaxAttempts   = "sdk.retry.maxAttempts"
	configSyncRetryBaseDelay     = "sdk.retry.baseDelay"
	configSyncRetryMaxDelay      = "sdk.retry.maxDelay"

	teardownTimeout = time.Minute
)

// DefaultSyncConfig contains the values used for fields of SyncConfig that
// are left at their zero value.
var DefaultSyncConfig = SyncConfig{
	PageSize:           100,
	CheckpointInterval: 1000,
	Retry: RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
	},
}

// SyncConfig contains the default settings of a SyncDriver. Every field can
// be overridden per sync through the "sdk.*" configuration parameters, which
// the driver adds to the parameters of the source.
type SyncConfig struct {
	// Table is the destination table. Defaults to the source key.
	Table string
	// PageSize is the maximum number of records requested per page.
	PageSize int
	// CheckpointInterval is the number of emitted records between two
	// state checkpoints.
	CheckpointInterval int
	// CursorFields are the columns of the normalized records that carry the
	// cursor. The cursor is the maximum value seen among them. If empty, the
	// NextCursor of each fully emitted page becomes the cursor.
	CursorFields []string
	// Retry bounds the retries of transient FetchPage errors.
	Retry RetryPolicy
	// Normalizer reshapes records before they are emitted.
	Normalizer Normalizer
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultSyncConfig.PageSize
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = DefaultSyncConfig.CheckpointInterval
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultSyncConfig.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = DefaultSyncConfig.Retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = DefaultSyncConfig.Retry.MaxDelay
	}
	return c
}

func (c SyncConfig) parameters() config.Parameters {
	c = c.withDefaults()
	return config.Parameters{
		configSyncTable: {
			Default:     c.Table,
			Type:        config.ParameterTypeString,
			Description: "Destination table of the synced records. Defaults to the source key.",
		},
		configSyncPageSize: {
			Default:     strconv.Itoa(c.PageSize),
			Type:        config.ParameterTypeInt,
			Description: "Maximum number of records fetched from the source in one page.",
			Validations: []config.Validation{config.ValidationGreaterThan{V: 0}},
		},
		configSyncCheckpointInterval: {
			Default:     strconv.Itoa(c.CheckpointInterval),
			Type:        config.ParameterTypeInt,
			Description: "Number of emitted records after which the state is checkpointed.",
			Validations: []config.Validation{config.ValidationGreaterThan{V: 0}},
		},
		configSyncCursorFields: {
			Default:     strings.Join(c.CursorFields, ","),
			Type:        config.ParameterTypeString,
			Description: "Comma separated list of record columns holding the cursor. If empty, the page cursor returned by the source is used.",
		},
		configSyncRetryMaxAttempts: {
			Default:     strconv.Itoa(c.Retry.MaxAttempts),
			Type:        config.ParameterTypeInt,
			Description: "Maximum number of attempts to fetch a page when the source reports a transient error.",
			Validations: []config.Validation{config.ValidationGreaterThan{V: 0}},
		},
		configSyncRetryBaseDelay: {
			Default:     c.Retry.BaseDelay.String(),
			Type:        config.ParameterTypeDuration,
			Description: "Delay before the first retry, doubled on every further retry.",
		},
		configSyncRetryMaxDelay: {
			Default:     c.Retry.MaxDelay.String(),
			Type:        config.ParameterTypeDuration,
			Description: "Upper bound of the delay between two retries.",
		},
	}
}

// parse reads the "sdk.*" parameters from a validated configuration.
func (c SyncConfig) parse(cfg config.Config) (SyncConfig, error) {
	c = c.withDefaults()
	var errs error

	if v, ok := cfg[configSyncTable]; ok {
		c.Table = v
	}
	if v, ok := cfg[configSyncCursorFields]; ok {
		c.CursorFields = splitList(v)
	}
	parseInt := func(key string, dst *int) {
		if v, ok := cfg[key]; ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	parseDuration := func(key string, dst *time.Duration) {
		if v, ok := cfg[key]; ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	parseInt(configSyncPageSize, &c.PageSize)
	parseInt(configSyncCheckpointInterval, &c.CheckpointInterval)
	parseInt(configSyncRetryMaxAttempts, &c.Retry.MaxAttempts)
	parseDuration(configSyncRetryBaseDelay, &c.Retry.BaseDelay)
	parseDuration(configSyncRetryMaxDelay, &c.Retry.MaxDelay)

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = multierr.Append(errs, fmt.Errorf("invalid %s: must not be lower than %s", configSyncRetryMaxDelay, configSyncRetryBaseDelay))
	}
	if errs != nil {
		return c, &ConfigurationError{Err: errs}
	}
	return c, nil
}

// SyncDriver drives a Source into a Sink, one page at a time, and keeps the
// cursor of the source in the state. The zero value uses DefaultSyncConfig.
type SyncDriver struct {
	Config SyncConfig
	// Metrics is optional.
	Metrics *Metrics
}

// Sync runs a sync with a zero value SyncDriver, see SyncDriver.Sync.
func Sync(ctx context.Context, src Source, sink Sink, cfg config.Config, state State) (State, error) {
	var d SyncDriver
	return d.Sync(ctx, src, sink, cfg, state)
}

// Parameters returns the parameters of src merged with the "sdk.*"
// parameters of the driver.
func (d *SyncDriver) Parameters(src Source) config.Parameters {
	return mergeParameters(src.Parameters(), d.Config.parameters())
}

// Sync validates cfg, configures and opens src, and then fetches pages until
// the source is exhausted. Every record is normalized and emitted into sink,
// the state is persisted every CheckpointInterval emitted records and once
// more when the run is done.
//
// The state passed in is never modified. On success the final state is
// returned. On failure the last persisted state is returned (or the state
// passed in, if nothing was persisted) together with the error, so the next
// run resumes from the last checkpoint.
//
// Delivery is at-least-once: records emitted after the last checkpoint are
// emitted again by the next run.
func (d *SyncDriver) Sync(ctx context.Context, src Source, sink Sink, cfg config.Config, state State) (State, error) {
	validCfg, err := ValidateConfig(cfg, d.Parameters(src))
	if err != nil {
		return state, err
	}
	sc, err := d.Config.parse(validCfg)
	if err != nil {
		return state, err
	}
	if err := src.Configure(ctx, validCfg); err != nil {
		if !errors.Is(err, ErrConfiguration) {
			err = &ConfigurationError{Err: fmt.Errorf("failed to configure source: %w", err)}
		}
		return state, err
	}

	key := src.Key()
	if key == "" {
		return state, &ConfigurationError{Err: errors.New("source returned an empty state key")}
	}
	if sc.Table == "" {
		sc.Table = key
	}

	logger := Logger(ctx).With().
		Str("source", key).
		Str("run_id", uuid.NewString()).
		Logger()
	ctx = logger.WithContext(ctx)

	r := &syncRun{
		src:       src,
		sink:      sink,
		cfg:       sc,
		key:       key,
		state:     state.Clone(),
		persisted: state,
		logger:    &logger,
		metrics:   d.Metrics,
	}
	r.tracker = internal.NewSyncStateTracker(func(from, to internal.SyncState) {
		logger.Debug().
			Stringer("from", from).
			Stringer("to", to).
			Msg("sync state changed")
	})
	r.retrier = newRetrier(sc.Retry, r.onRetry)

	return r.run(ctx)
}

// syncRun holds everything that lives for the duration of one Sync call.
type syncRun struct {
	src     Source
	sink    Sink
	cfg     SyncConfig
	key     string
	logger  *zerolog.Logger
	metrics *Metrics
	tracker *internal.SyncStateTracker
	retrier *retrier

	// state is the working copy, persisted is the last snapshot handed to
	// the sink.
	state     State
	persisted State
	cursor    any

	emitted         int
	skipped         int
	sinceCheckpoint int
}

func (r *syncRun) run(ctx context.Context) (_ State, err error) {
	defer func() {
		if err != nil {
			// teardown can fail after the run already reached DONE
			if !r.tracker.Get().Terminal() {
				r.tracker.Set(internal.StateFailed)
			}
			r.logger.Error().Err(err).
				Int("records_emitted", r.emitted).
				Msg("sync failed")
		}
	}()
	defer func() {
		// teardown gets its own context, so resources are released even if
		// ctx is canceled
		tdCtx, cancel := internal.CleanupContext(ctx, teardownTimeout)
		defer cancel()
		if tdErr := r.src.Teardown(tdCtx); tdErr != nil && !errors.Is(tdErr, ErrUnimplemented) {
			err = multierr.Append(err, fmt.Errorf("source %q: teardown: %w", r.key, tdErr))
		}
	}()

	if err := r.src.Open(ctx); err != nil {
		return r.persisted, r.sourceError("open", err)
	}

	r.cursor = r.state.Cursor(r.key)
	fetchCursor := r.cursor
	r.logger.Info().
		Interface("cursor", r.cursor).
		Str("table", r.cfg.Table).
		Msg("starting sync")

	for {
		r.tracker.Set(internal.StateFetching)
		page, err := r.fetch(ctx, fetchCursor)
		if err != nil {
			return r.persisted, err
		}
		r.logger.Debug().
			Int("records", len(page.Records)).
			Interface("next_cursor", page.NextCursor).
			Msg("fetched page")

		if len(page.Records) > 0 {
			r.tracker.Set(internal.StateEmitting)
		}
		for _, raw := range page.Records {
			if err := r.emit(ctx, raw); err != nil {
				return r.persisted, err
			}
		}

		if page.Done() {
			break
		}
		if len(r.cfg.CursorFields) == 0 {
			r.advance(page.NextCursor, true)
		}
		fetchCursor = page.NextCursor
	}

	if err := r.checkpoint(ctx); err != nil {
		return r.persisted, err
	}
	r.tracker.Set(internal.StateDone)
	r.logger.Info().
		Int("records_emitted", r.emitted).
		Int("records_skipped", r.skipped).
		Interface("cursor", r.cursor).
		Msg("sync done")
	return r.persisted, nil
}

func (r *syncRun) fetch(ctx context.Context, cursor any) (Page, error) {
	var page Page
	start := time.Now()
	attempts, err := r.retrier.Do(ctx, func(ctx context.Context) error {
		r.tracker.Set(internal.StateFetching)
		var err error
		page, err = r.src.FetchPage(ctx, cursor, r.cfg.PageSize)
		return err
	})
	if err != nil {
		if ctx.Err() == nil && IsTransient(err) {
			return Page{}, &SourceUnavailableError{Source: r.key, Attempts: attempts, Err: err}
		}
		return Page{}, r.sourceError("fetch page", err)
	}
	r.metrics.fetched(r.key, time.Since(start))
	return page, nil
}

func (r *syncRun) onRetry(attempt int, delay time.Duration, err error) {
	r.tracker.Set(internal.StateRetrying)
	r.metrics.retry(r.key)
	r.logger.Warn().Err(err).
		Int("attempt", attempt).
		Int("max_attempts", r.cfg.Retry.MaxAttempts).
		Dur("delay", delay).
		Msg("transient source error, retrying")
}

// sourceError attaches the source key to an error returned by the source.
func (r *syncRun) sourceError(op string, err error) error {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		if authErr.Source == "" {
			authErr.Source = r.key
		}
		return err
	}
	return fmt.Errorf("source %q: %s: %w", r.key, op, err)
}

func (r *syncRun) emit(ctx context.Context, raw Record) error {
	rec, err := r.cfg.Normalizer.Normalize(raw)
	if err != nil {
		if !errors.Is(err, ErrRecordNormalization) {
			return err
		}
		r.skipped++
		r.metrics.skipped(r.key)
		r.logger.Warn().Err(err).Msg("skipping record that could not be normalized")
		return nil
	}

	if err := r.sink.Emit(ctx, r.cfg.Table, rec); err != nil {
		return fmt.Errorf("failed to emit record into table %q: %w", r.cfg.Table, err)
	}
	r.emitted++
	r.metrics.emitted(r.key)
	r.logger.Trace().Msg("emitted record")

	for _, field := range r.cfg.CursorFields {
		if v, ok := rec[field]; ok {
			r.advance(v, false)
		}
	}

	r.sinceCheckpoint++
	if r.sinceCheckpoint >= r.cfg.CheckpointInterval {
		return r.checkpoint(ctx)
	}
	return nil
}

// advance moves the cursor to v. A page cursor is the position reported by
// the source and always replaces the cursor. A record cursor only moves the
// cursor forward: ties and smaller values keep the current cursor, values
// that can't be ordered are ignored.
func (r *syncRun) advance(v any, pageCursor bool) {
	v = cursorValue(v)
	if v == nil {
		return
	}
	if r.cursor == nil || pageCursor {
		r.cursor = v
		return
	}
	cmp, err := CompareCursors(v, r.cursor)
	switch {
	case err != nil:
		r.logger.Warn().Err(err).Msg("ignoring cursor value that can not be compared with the current cursor")
	case cmp > 0:
		r.cursor = v
	}
}

func (r *syncRun) checkpoint(ctx context.Context) error {
	if r.cursor != nil {
		r.state[r.key] = r.cursor
	}
	snapshot := r.state.Clone()
	if err := r.sink.Persist(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	r.persisted = snapshot
	r.sinceCheckpoint = 0
	r.metrics.checkpoint(r.key)
	r.logger.Info().
		Interface("cursor", r.cursor).
		Int("records_emitted", r.emitted).
		Msg("checkpoint")
	return nil
}
