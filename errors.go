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
	"net"
	"strings"
)

var (
	// ErrUnimplemented is returned by UnimplementedSource for functions that
	// need to be overridden.
	ErrUnimplemented = errors.New("the connector plugin does not implement this action, please check the source code of the connector and make sure all required connector methods are implemented")

	// ErrBackoffRetry can be returned by Source.FetchPage to signal the driver
	// that there is no data available right now and the call should be
	// retried with a backoff. It is treated like any other transient error.
	ErrBackoffRetry = errors.New("backoff retry")

	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrTransient is matched by every *TransientSourceError.
	ErrTransient = errors.New("transient source error")
	// ErrAuthentication is matched by every *AuthenticationError.
	ErrAuthentication = errors.New("authentication failed")
	// ErrSourceUnavailable is matched by every *SourceUnavailableError.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrRecordNormalization is matched by every *RecordNormalizationError.
	ErrRecordNormalization = errors.New("record normalization failed")
)

// ConfigurationError is returned before any I/O happens when the
// configuration does not satisfy the declared parameters. Missing contains
// every required key that was absent or empty, not only the first one. An
// error with missing keys matches ErrRequiredParameterMissing.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrConfiguration.Error())
	if len(e.Missing) > 0 {
		fmt.Fprintf(&sb, ": missing required parameters %q", e.Missing)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration ||
		(target == ErrRequiredParameterMissing && len(e.Missing) > 0)
}

// TransientSourceError marks a failure that is expected to go away on its own
// (rate limiting, timeouts, 5xx responses). The driver retries these.
type TransientSourceError struct {
	Err error
}

// Transient wraps err into a *TransientSourceError. It returns nil if err is
// nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientSourceError{Err: err}
}

func (e *TransientSourceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransient, e.Err)
}

func (e *TransientSourceError) Unwrap() error { return e.Err }

func (e *TransientSourceError) Is(target error) bool { return target == ErrTransient }

// AuthenticationError is never retried. Source is filled in by the driver if
// the connector left it empty.
type AuthenticationError struct {
	Source string
	Err    error
}

// Unauthenticated wraps err into an *AuthenticationError. It returns nil if
// err is nil.
func Unauthenticated(err error) error {
	if err == nil {
		return nil
	}
	return &AuthenticationError{Err: err}
}

func (e *AuthenticationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%v: %v", ErrAuthentication, e.Err)
	}
	return fmt.Sprintf("source %q: %v: %v", e.Source, ErrAuthentication, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// SourceUnavailableError is returned by the driver after the retry budget for
// transient errors is exhausted. Err is the last transient error.
type SourceUnavailableError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %q: %v after %d attempts: %v", e.Source, ErrSourceUnavailable, e.Attempts, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

func (e *SourceUnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// RecordNormalizationError is produced when a single record can not be
// reshaped into a flat record. The driver logs it and skips the record.
type RecordNormalizationError struct {
	Column string
	Err    error
}

func (e *RecordNormalizationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%v: %v", ErrRecordNormalization, e.Err)
	}
	return fmt.Sprintf("%v: column %q: %v", ErrRecordNormalization, e.Column, e.Err)
}

func (e *RecordNormalizationError) Unwrap() error { return e.Err }

func (e *RecordNormalizationError) Is(target error) bool { return target == ErrRecordNormalization }

// IsTransient reports whether err should be retried by the driver.
// Authentication errors are never transient, even if they wrap a timeout.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrAuthentication) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrBackoffRetry) {
		return true
	}
	// a per-request deadline hit inside the source, the parent context is
	// checked separately by the driver
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
