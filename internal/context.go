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

package internal

import (
	"context"
	"time"
)

// Borrowed from https://cs.opensource.google/go/x/tools/+/refs/tags/v0.1.10:internal/xcontext/xcontext.go

// DetachContext returns a context that keeps all the values of its parent
// context but detaches from the cancellation and error handling.
func DetachContext(ctx context.Context) context.Context { return detachedContext{ctx} }

type detachedContext struct{ context.Context }

func (v detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (v detachedContext) Done() <-chan struct{}       { return nil }
func (v detachedContext) Err() error                  { return nil }

// CleanupContext returns a context for releasing resources after the work
// context may already be canceled. It keeps the values of ctx (e.g. the
// logger) and expires after timeout.
func CleanupContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(DetachContext(ctx), timeout)
}
