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
	"testing"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"github.com/matryer/is"
	"go.uber.org/mock/gomock"
)

func TestDefaultSourceMiddleware_Options(t *testing.T) {
	is := is.New(t)

	middleware := DefaultSourceMiddleware(
		SourceWithRateLimitConfig{RatePerSecond: 2, Burst: 3},
		SourceWithFetchTimeoutConfig{Timeout: time.Second},
	)
	is.Equal(len(middleware), 2)
	is.Equal(middleware[0].(*SourceWithRateLimit).Config, SourceWithRateLimitConfig{RatePerSecond: 2, Burst: 3})
	is.Equal(middleware[1].(*SourceWithFetchTimeout).Config, SourceWithFetchTimeoutConfig{Timeout: time.Second})
}

func TestSourceWithMiddleware_Parameters(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)

	want := config.Parameters{
		"foo": {
			Default:     "bar",
			Description: "baz",
		},
	}
	src.EXPECT().Parameters().Return(want)

	s := SourceWithMiddleware(src, DefaultSourceMiddleware()...)
	got := s.Parameters()

	is.Equal(got["foo"], want["foo"])
	is.Equal(len(got), 4) // expected middleware to inject 3 parameters
	is.Equal(got[configSourceRatePerSecond].Default, "0")
	is.Equal(got[configSourceRateBurst].Default, "0")
	is.Equal(got[configSourceFetchTimeout].Default, "0s")
}

func TestSourceWithRateLimit_Configure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		middleware  SourceWithRateLimit
		have        config.Config
		wantLimiter bool
		wantLimit   float64
		wantBurst   int
	}{{
		name:        "empty config",
		middleware:  SourceWithRateLimit{},
		have:        config.Config{},
		wantLimiter: false,
	}, {
		name: "default limit, burst defaults to 1",
		middleware: SourceWithRateLimit{
			Config: SourceWithRateLimitConfig{RatePerSecond: 10},
		},
		have:        config.Config{},
		wantLimiter: true,
		wantLimit:   10,
		wantBurst:   1,
	}, {
		name: "config overrides defaults",
		middleware: SourceWithRateLimit{
			Config: SourceWithRateLimitConfig{RatePerSecond: 10, Burst: 2},
		},
		have: config.Config{
			configSourceRatePerSecond: "0.5",
			configSourceRateBurst:     "4",
		},
		wantLimiter: true,
		wantLimit:   0.5,
		wantBurst:   4,
	}, {
		name: "config disables limit",
		middleware: SourceWithRateLimit{
			Config: SourceWithRateLimitConfig{RatePerSecond: 10},
		},
		have:        config.Config{configSourceRatePerSecond: "0"},
		wantLimiter: false,
	}}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			src := NewMockSource(ctrl)
			src.EXPECT().Configure(ctx, tt.have).Return(nil)

			s := tt.middleware.Wrap(src).(*sourceWithRateLimit)
			is.NoErr(s.Configure(ctx, tt.have))

			is.Equal(s.limiter != nil, tt.wantLimiter)
			if tt.wantLimiter {
				is.Equal(float64(s.limiter.Limit()), tt.wantLimit)
				is.Equal(s.limiter.Burst(), tt.wantBurst)
			}
		})
	}
}

func TestSourceWithRateLimit_ConfigureInvalid(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	cfg := config.Config{configSourceRatePerSecond: "fast"}
	src := NewMockSource(ctrl)
	src.EXPECT().Configure(ctx, cfg).Return(nil)

	s := (&SourceWithRateLimit{}).Wrap(src)
	err := s.Configure(ctx, cfg)
	is.True(err != nil)
}

func TestSourceWithRateLimit_FetchPage(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	cfg := config.Config{
		configSourceRatePerSecond: "20",
		configSourceRateBurst:     "1",
	}
	src := NewMockSource(ctrl)
	src.EXPECT().Configure(ctx, cfg).Return(nil)
	src.EXPECT().FetchPage(ctx, nil, 10).Return(Page{}, nil).Times(3)

	s := (&SourceWithRateLimit{}).Wrap(src)
	is.NoErr(s.Configure(ctx, cfg))

	start := time.Now()
	for range 3 {
		_, err := s.FetchPage(ctx, nil, 10)
		is.NoErr(err)
	}
	// the first call uses the burst, the next two wait 50ms each
	is.True(time.Since(start) >= 90*time.Millisecond)
}

func TestSourceWithRateLimit_FetchPageCanceled(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)

	cfg := config.Config{configSourceRatePerSecond: "0.001"}
	src := NewMockSource(ctrl)
	src.EXPECT().Configure(gomock.Any(), cfg).Return(nil)
	src.EXPECT().FetchPage(gomock.Any(), nil, 10).Return(Page{}, nil).Times(1)

	s := (&SourceWithRateLimit{}).Wrap(src)
	is.NoErr(s.Configure(context.Background(), cfg))

	_, err := s.FetchPage(context.Background(), nil, 10)
	is.NoErr(err)

	// the next token is available in 1000s, waiting for it exceeds the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.FetchPage(ctx, nil, 10)
	is.True(err != nil)
}

func TestSourceWithFetchTimeout_Configure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	testCases := []struct {
		name       string
		middleware SourceWithFetchTimeout
		have       config.Config
		want       time.Duration
		wantErr    bool
	}{{
		name:       "empty config",
		middleware: SourceWithFetchTimeout{},
		have:       config.Config{},
		want:       0,
	}, {
		name: "default timeout",
		middleware: SourceWithFetchTimeout{
			Config: SourceWithFetchTimeoutConfig{Timeout: time.Minute},
		},
		have: config.Config{},
		want: time.Minute,
	}, {
		name: "config overrides default",
		middleware: SourceWithFetchTimeout{
			Config: SourceWithFetchTimeoutConfig{Timeout: time.Minute},
		},
		have: config.Config{configSourceFetchTimeout: "5s"},
		want: 5 * time.Second,
	}, {
		name:       "invalid duration",
		middleware: SourceWithFetchTimeout{},
		have:       config.Config{configSourceFetchTimeout: "soon"},
		wantErr:    true,
	}}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			src := NewMockSource(ctrl)
			src.EXPECT().Configure(ctx, tt.have).Return(nil)

			s := tt.middleware.Wrap(src).(*sourceWithFetchTimeout)
			err := s.Configure(ctx, tt.have)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(s.timeout, tt.want)
		})
	}
}

func TestSourceWithFetchTimeout_FetchPage(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	cfg := config.Config{configSourceFetchTimeout: "10ms"}
	src := NewMockSource(ctrl)
	src.EXPECT().Configure(ctx, cfg).Return(nil)
	src.EXPECT().FetchPage(gomock.Any(), "c", 10).DoAndReturn(
		func(ctx context.Context, _ any, _ int) (Page, error) {
			<-ctx.Done()
			return Page{}, ctx.Err()
		},
	)

	s := (&SourceWithFetchTimeout{}).Wrap(src)
	is.NoErr(s.Configure(ctx, cfg))

	_, err := s.FetchPage(ctx, "c", 10)
	is.True(errors.Is(err, context.DeadlineExceeded))
	is.True(IsTransient(err))
}

func TestSourceWithMiddleware_ConfigureError(t *testing.T) {
	is := is.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	want := errors.New("bad config")
	src := NewMockSource(ctrl)
	src.EXPECT().Configure(ctx, gomock.Any()).Return(want)

	s := SourceWithMiddleware(src, DefaultSourceMiddleware()...)
	err := s.Configure(ctx, config.Config{})
	is.Equal(err, want)
}
