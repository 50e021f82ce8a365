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
	"errors"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

// AcceptanceTest is the acceptance test that all source implementations
// should pass. It should manually be called from a test case in each
// implementation:
//
//	func TestAcceptance(t *testing.T) {
//	    // set up test dependencies ...
//	    sdk.AcceptanceTest(t, sdk.AcceptanceTestConfig{...})
//	}
func AcceptanceTest(t *testing.T, cfg AcceptanceTestConfig) {
	acceptanceTest{config: cfg}.Test(t)
}

type AcceptanceTestConfig struct {
	// SourceFactory creates a new, unconfigured source.
	SourceFactory func() Source
	// SourceConfig should be a valid config for the source, pointing to a
	// system that contains at least one record.
	SourceConfig map[string]string
	// Driver is used to run the syncs. Defaults to a SyncDriver with a page
	// size of 10, a checkpoint interval of 5 and short retry delays.
	Driver *SyncDriver
	// Skip is a slice of regular expressions used to identify tests that
	// should be skipped. The full test name will be matched against the
	// regular expressions and the test will be skipped if a match is found.
	Skip []string
	// Timeout of a single sync. Defaults to one minute.
	Timeout time.Duration
}

type acceptanceTest struct {
	config AcceptanceTestConfig
}

func (a acceptanceTest) Test(t *testing.T) {
	a.run(t, a.testSource_Parameters_Success)
	a.run(t, a.testSource_Configure_Success)
	a.run(t, a.testSource_Configure_RequiredParams)
	a.run(t, a.testSync_Success)
	a.run(t, a.testSync_IdempotentResume)
}

func (a acceptanceTest) run(t *testing.T, test func(*testing.T)) {
	name := runtime.FuncForPC(reflect.ValueOf(test).Pointer()).Name()
	name = name[strings.LastIndex(name, ".")+1:]
	name = strings.TrimSuffix(name, "-fm")
	t.Run(name, func(t *testing.T) {
		a.skipMatching(t)
		test(t)
	})
}

func (a acceptanceTest) skipMatching(t *testing.T) {
	for _, skipRegex := range a.config.Skip {
		r := regexp.MustCompile(skipRegex)
		if r.MatchString(t.Name()) {
			t.Skipf("caller requested to skip tests that match the regex %q", skipRegex)
		}
	}
}

func (a acceptanceTest) testSource_Parameters_Success(t *testing.T) {
	a.hasSourceFactory(t)
	is := is.NewRelaxed(t) // allow multiple failures for this test

	params := a.config.SourceFactory().Parameters()
	is.True(params != nil) // Source.Parameters returned nil

	driverParams := a.driver().Config.parameters()
	for name, p := range params {
		_, reserved := driverParams[name]
		is.True(!reserved)                                         // parameter name is reserved for the sync driver
		is.True(strings.TrimSpace(name) == name)                   // parameter name starts or ends with whitespace
		is.True(p.Description != "")                               // parameter is missing a description
		is.True(strings.TrimSpace(p.Description) == p.Description) // parameter description starts or ends with whitespace
	}
}

func (a acceptanceTest) testSource_Configure_Success(t *testing.T) {
	a.hasSourceFactory(t)
	is := is.New(t)
	ctx := a.context(t)

	source := a.config.SourceFactory()
	cfg, err := ValidateConfig(a.config.SourceConfig, a.driver().Parameters(source))
	is.NoErr(err)

	err = source.Configure(ctx, cfg)
	is.NoErr(err)
	is.True(source.Key() != "") // Source.Key returned an empty key after Configure
}

func (a acceptanceTest) testSource_Configure_RequiredParams(t *testing.T) {
	a.hasSourceFactory(t)
	is := is.New(t)

	params := a.config.SourceFactory().Parameters()
	for name, p := range params {
		if !isRequired(p) {
			continue
		}
		// removing the required parameter from the config should provoke an error
		t.Run(name, func(t *testing.T) {
			srcCfg := a.cloneConfig(a.config.SourceConfig)
			delete(srcCfg, name)

			is.Equal(len(srcCfg)+1, len(a.config.SourceConfig)) // source config does not contain required parameter, please check the test setup

			_, err := ValidateConfig(srcCfg, a.driver().Parameters(a.config.SourceFactory()))
			var cfgErr *ConfigurationError
			is.True(errors.As(err, &cfgErr))
			is.True(slices.Contains(cfgErr.Missing, name)) // missing parameter is not reported
		})
	}
}

func (a acceptanceTest) testSync_Success(t *testing.T) {
	a.hasSourceFactory(t)
	is := is.New(t)
	ctx := a.context(t)

	sink := &acceptanceSink{}
	state, err := a.driver().Sync(ctx, a.config.SourceFactory(), sink, a.config.SourceConfig, nil)
	is.NoErr(err)

	is.True(len(sink.records) > 0)                   // no records emitted, make sure the source config points to a system with data
	is.True(len(sink.states) > 0)                    // the state was never persisted
	is.Equal(sink.states[len(sink.states)-1], state) // returned state differs from the last persisted state

	// cursors taken from record fields never move backwards, page cursors
	// are positions owned by the source
	if a.config.SourceConfig[configSyncCursorFields] == "" {
		return
	}
	var key string
	for k := range state {
		key = k
	}
	for i := 1; i < len(sink.states); i++ {
		prev, next := sink.states[i-1][key], sink.states[i][key]
		if prev == nil || next == nil {
			continue
		}
		cmp, err := CompareCursors(next, prev)
		is.NoErr(err)
		is.True(cmp >= 0) // persisted cursor moved backwards
	}
}

func (a acceptanceTest) testSync_IdempotentResume(t *testing.T) {
	a.hasSourceFactory(t)
	is := is.New(t)
	ctx := a.context(t)

	first := &acceptanceSink{}
	state, err := a.driver().Sync(ctx, a.config.SourceFactory(), first, a.config.SourceConfig, nil)
	is.NoErr(err)

	second := &acceptanceSink{}
	resumed, err := a.driver().Sync(ctx, a.config.SourceFactory(), second, a.config.SourceConfig, state)
	is.NoErr(err)

	is.Equal(resumed, state) // resuming from the final state changed the state

	is.Equal(len(second.records), 0) // resuming from the final state emitted records again
}

func (a acceptanceTest) driver() *SyncDriver {
	if a.config.Driver != nil {
		return a.config.Driver
	}
	return &SyncDriver{
		Config: SyncConfig{
			PageSize:           10,
			CheckpointInterval: 5,
			Retry: RetryPolicy{
				MaxAttempts: 3,
				BaseDelay:   10 * time.Millisecond,
				MaxDelay:    100 * time.Millisecond,
			},
		},
	}
}

func (a acceptanceTest) context(t *testing.T) context.Context {
	timeout := a.config.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel)
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), timeout)
	t.Cleanup(cancel)
	return ctx
}

func (a acceptanceTest) hasSourceFactory(t *testing.T) {
	if a.config.SourceFactory == nil {
		t.Fatalf("acceptance test config is missing the field SourceFactory")
	}
}

func (a acceptanceTest) cloneConfig(orig map[string]string) config.Config {
	cloned := make(config.Config, len(orig))
	for k, v := range orig {
		cloned[k] = v
	}
	return cloned
}

// acceptanceSink records everything it receives.
type acceptanceSink struct {
	m       sync.Mutex
	records []Record
	states  []State
}

func (s *acceptanceSink) Emit(_ context.Context, _ string, rec Record) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.records = append(s.records, rec.Clone())
	return nil
}

func (s *acceptanceSink) Persist(_ context.Context, state State) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.states = append(s.states, state.Clone())
	return nil
}
