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
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/multierr"
)

// RetryPolicy bounds the retries of transient errors. The delay before retry
// n is BaseDelay * 2^(n-1), capped at MaxDelay.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// retrier runs a function until it succeeds, fails with a non-transient
// error or the attempts are exhausted.
type retrier struct {
	policy RetryPolicy
	// onRetry is called before sleeping, attempt is the attempt that failed.
	onRetry func(attempt int, delay time.Duration, err error)
	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

func newRetrier(p RetryPolicy, onRetry func(int, time.Duration, error)) *retrier {
	return &retrier{
		policy:  p,
		onRetry: onRetry,
		sleep:   sleepContext,
	}
}

// Do calls fn and returns the number of attempts made. If the attempts are
// exhausted the last transient error is returned, the caller decides how to
// wrap it.
func (r *retrier) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	b := &backoff.Backoff{
		Factor: 2,
		Min:    r.policy.BaseDelay,
		Max:    r.policy.MaxDelay,
	}
	maxAttempts := r.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var attempt int
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			// the caller is shutting down, don't mistake it for a transient error
			return attempt, multierr.Append(ctx.Err(), err)
		}
		if !IsTransient(err) || attempt >= maxAttempts {
			return attempt, err
		}

		delay := b.Duration()
		if r.onRetry != nil {
			r.onRetry(attempt, delay, err)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
