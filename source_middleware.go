// Copyright © 2023 Meroxa, Inc.
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
	"strconv"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"golang.org/x/time/rate"
)

// SourceMiddleware wraps a Source and adds functionality to it.
type SourceMiddleware interface {
	Wrap(Source) Source
}

// SourceMiddlewareOption can be used to change the behavior of the default source
// middleware created with DefaultSourceMiddleware.
type SourceMiddlewareOption interface {
	Apply(SourceMiddleware)
}

// Available source middleware options.
var (
	_ SourceMiddlewareOption = SourceWithRateLimitConfig{}
	_ SourceMiddlewareOption = SourceWithFetchTimeoutConfig{}
)

// DefaultSourceMiddleware returns a slice of middleware that should be added to
// all sources unless there's a good reason not to.
func DefaultSourceMiddleware(opts ...SourceMiddlewareOption) []SourceMiddleware {
	middleware := []SourceMiddleware{
		&SourceWithRateLimit{},
		&SourceWithFetchTimeout{},
	}

	// apply options to all middleware
	for _, m := range middleware {
		for _, opt := range opts {
			opt.Apply(m)
		}
	}
	return middleware
}

// SourceWithMiddleware wraps the source into the supplied middleware.
func SourceWithMiddleware(s Source, middleware ...SourceMiddleware) Source {
	// apply middleware in reverse order to preserve the order as specified
	for i := len(middleware) - 1; i >= 0; i-- {
		s = middleware[i].Wrap(s)
	}
	return s
}

// -- SourceWithRateLimit -----------------------------------------------------

const (
	configSourceRatePerSecond = "sdk.rate.perSecond"
	configSourceRateBurst     = "sdk.rate.burst"
)

// SourceWithRateLimitConfig is the configuration for the SourceWithRateLimit
// middleware.
type SourceWithRateLimitConfig struct {
	// RatePerSecond is the maximum number of FetchPage calls per second,
	// 0 means no limit.
	RatePerSecond float64
	// Burst is the number of FetchPage calls allowed in a burst. Defaults
	// to 1 when a limit is set.
	Burst int
}

// Apply sets the default configuration for the SourceWithRateLimit middleware.
func (c SourceWithRateLimitConfig) Apply(m SourceMiddleware) {
	if s, ok := m.(*SourceWithRateLimit); ok {
		s.Config = c
	}
}

func (c SourceWithRateLimitConfig) RatePerSecondParameterName() string {
	return configSourceRatePerSecond
}

func (c SourceWithRateLimitConfig) BurstParameterName() string {
	return configSourceRateBurst
}

func (c SourceWithRateLimitConfig) parameters() config.Parameters {
	return config.Parameters{
		configSourceRatePerSecond: {
			Default:     strconv.FormatFloat(c.RatePerSecond, 'f', -1, 64),
			Type:        config.ParameterTypeFloat,
			Description: "Maximum number of pages fetched per second (0 means no rate limit).",
		},
		configSourceRateBurst: {
			Default:     strconv.Itoa(c.Burst),
			Type:        config.ParameterTypeInt,
			Description: "Permit bursts of at most X page fetches.",
		},
	}
}

// SourceWithRateLimit is a middleware that limits the rate at which pages
// are fetched from the 3rd party system.
type SourceWithRateLimit struct {
	Config SourceWithRateLimitConfig
}

// Wrap a Source into the rate limiting middleware.
func (s *SourceWithRateLimit) Wrap(impl Source) Source {
	return &sourceWithRateLimit{
		Source:   impl,
		defaults: s.Config,
	}
}

type sourceWithRateLimit struct {
	Source

	defaults SourceWithRateLimitConfig
	limiter  *rate.Limiter
}

func (s *sourceWithRateLimit) Parameters() config.Parameters {
	return mergeParameters(s.Source.Parameters(), s.defaults.parameters())
}

func (s *sourceWithRateLimit) Configure(ctx context.Context, cfg config.Config) error {
	err := s.Source.Configure(ctx, cfg)
	if err != nil {
		return err
	}

	limit := rate.Limit(s.defaults.RatePerSecond)
	burst := s.defaults.Burst

	if raw := cfg[configSourceRatePerSecond]; raw != "" {
		limitFloat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", configSourceRatePerSecond, err)
		}
		limit = rate.Limit(limitFloat)
	}
	if raw := cfg[configSourceRateBurst]; raw != "" {
		burstInt, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", configSourceRateBurst, err)
		}
		burst = burstInt
	}

	if limit > 0 {
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(limit, burst)
	}
	return nil
}

func (s *sourceWithRateLimit) FetchPage(ctx context.Context, cursor any, pageSize int) (Page, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Page{}, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return s.Source.FetchPage(ctx, cursor, pageSize)
}

// -- SourceWithFetchTimeout --------------------------------------------------

const configSourceFetchTimeout = "sdk.fetch.timeout"

// SourceWithFetchTimeoutConfig is the configuration for the
// SourceWithFetchTimeout middleware.
type SourceWithFetchTimeoutConfig struct {
	// Timeout of a single FetchPage call, 0 means no timeout.
	Timeout time.Duration
}

// Apply sets the default configuration for the SourceWithFetchTimeout middleware.
func (c SourceWithFetchTimeoutConfig) Apply(m SourceMiddleware) {
	if s, ok := m.(*SourceWithFetchTimeout); ok {
		s.Config = c
	}
}

func (c SourceWithFetchTimeoutConfig) TimeoutParameterName() string {
	return configSourceFetchTimeout
}

func (c SourceWithFetchTimeoutConfig) parameters() config.Parameters {
	return config.Parameters{
		configSourceFetchTimeout: {
			Default:     c.Timeout.String(),
			Type:        config.ParameterTypeDuration,
			Description: "Timeout of a single page fetch (0 means no timeout). A fetch that times out is retried.",
		},
	}
}

// SourceWithFetchTimeout is a middleware that bounds the duration of a
// single FetchPage call. The call fails with context.DeadlineExceeded, which
// the driver treats as a transient error.
type SourceWithFetchTimeout struct {
	Config SourceWithFetchTimeoutConfig
}

// Wrap a Source into the timeout middleware.
func (s *SourceWithFetchTimeout) Wrap(impl Source) Source {
	return &sourceWithFetchTimeout{
		Source:   impl,
		defaults: s.Config,
	}
}

type sourceWithFetchTimeout struct {
	Source

	defaults SourceWithFetchTimeoutConfig
	timeout  time.Duration
}

func (s *sourceWithFetchTimeout) Parameters() config.Parameters {
	return mergeParameters(s.Source.Parameters(), s.defaults.parameters())
}

func (s *sourceWithFetchTimeout) Configure(ctx context.Context, cfg config.Config) error {
	err := s.Source.Configure(ctx, cfg)
	if err != nil {
		return err
	}

	s.timeout = s.defaults.Timeout
	if raw := cfg[configSourceFetchTimeout]; raw != "" {
		s.timeout, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", configSourceFetchTimeout, err)
		}
	}
	return nil
}

func (s *sourceWithFetchTimeout) FetchPage(ctx context.Context, cursor any, pageSize int) (Page, error) {
	if s.timeout <= 0 {
		return s.Source.FetchPage(ctx, cursor, pageSize)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.FetchPage(ctx, cursor, pageSize)
}
