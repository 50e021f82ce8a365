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
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// CompareCursors compares two cursor values and returns -1, 0 or +1. Numbers
// of any Go numeric type compare numerically, time.Time values and strings
// that parse as RFC 3339 timestamps compare chronologically, and other
// strings compare lexically. An error is returned for values that can not be
// ordered against each other.
func CompareCursors(a, b any) (int, error) {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na.Cmp(nb), nil
		}
		return 0, fmt.Errorf("can not compare cursor %v (%T) with %v (%T)", a, a, b, b)
	}

	ta, aIsTime := toTime(a)
	tb, bIsTime := toTime(b)
	if aIsTime && bIsTime {
		return ta.Compare(tb), nil
	}

	sa, aIsString := a.(string)
	sb, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.Compare(sa, sb), nil
	}

	return 0, fmt.Errorf("can not compare cursor %v (%T) with %v (%T)", a, a, b, b)
}

// toNumber converts any numeric value (including json.Number) into a
// big.Float so ints, uints and floats compare without losing precision.
func toNumber(v any) (*big.Float, bool) {
	f := new(big.Float).SetPrec(128)
	switch v := v.(type) {
	case int:
		return f.SetInt64(int64(v)), true
	case int8:
		return f.SetInt64(int64(v)), true
	case int16:
		return f.SetInt64(int64(v)), true
	case int32:
		return f.SetInt64(int64(v)), true
	case int64:
		return f.SetInt64(v), true
	case uint:
		return f.SetUint64(uint64(v)), true
	case uint8:
		return f.SetUint64(uint64(v)), true
	case uint16:
		return f.SetUint64(uint64(v)), true
	case uint32:
		return f.SetUint64(uint64(v)), true
	case uint64:
		return f.SetUint64(v), true
	case float32:
		return toFloat(float64(v))
	case float64:
		return toFloat(v)
	case json.Number:
		if _, ok := f.SetString(v.String()); ok {
			return f, true
		}
	}
	return nil, false
}

func toFloat(v float64) (*big.Float, bool) {
	if v != v { // NaN can not be ordered
		return nil, false
	}
	// SetFloat64 panics for NaN only, infinities are fine
	return new(big.Float).SetPrec(128).SetFloat64(v), true
}

var cursorTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		for _, layout := range cursorTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// cursorValue converts a cursor taken from a record into the value stored in
// the state. Timestamps are stored using the same string convention as
// normalized records, everything else is stored as is.
func cursorValue(v any) any {
	switch v := v.(type) {
	case time.Time:
		return formatTime(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return formatTime(*v)
	default:
		return v
	}
}
