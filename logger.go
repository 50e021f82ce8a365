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
	"os"

	"github.com/rs/zerolog"
)

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Logger returns an instance of a logger that can be used for leveled and
// structured logging in a connector. The logger is taken from the context,
// if the context doesn't contain a logger a default logger writing to
// stderr at info level is returned.
//
// Logs in the hot path (i.e. per record) should use the trace level.
func Logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l == nil || l.GetLevel() == zerolog.Disabled {
		return &defaultLogger
	}
	return l
}

// SetDefaultLogger replaces the logger returned by Logger for contexts that
// don't carry a logger. It is meant to be called once from main.
func SetDefaultLogger(l zerolog.Logger) {
	defaultLogger = l
}
