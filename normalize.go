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
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

const defaultFlattenSeparator = "_"

var (
	errUnsupportedValue = errors.New("unsupported value")
	errColumnCollision  = errors.New("column produced twice while flattening")

	timeType = reflect.TypeOf(time.Time{})
)

// Normalizer reshapes a raw record into a flat record that only contains
// scalar values:
//   - nested maps (and structs) are flattened, the column name is the path
//     joined with Separator, e.g. {"a":{"b":1}} becomes {"a_b":1},
//   - slices and arrays are serialized to a JSON string ([]byte is kept),
//   - time values are converted to a UTC RFC 3339 string,
//   - values implementing encoding.TextMarshaler or fmt.Stringer are
//     converted to strings.
//
// The zero value is ready to use.
type Normalizer struct {
	// Separator joins nested keys. Defaults to "_".
	Separator string
}

// Normalize returns a new flat record. It returns a *RecordNormalizationError
// if the record contains a value that can't be represented as a scalar.
func (n Normalizer) Normalize(rec Record) (Record, error) {
	out := make(Record, len(rec))
	if err := n.flatten(out, "", map[string]any(rec)); err != nil {
		return nil, err
	}
	return out, nil
}

func (n Normalizer) separator() string {
	if n.Separator == "" {
		return defaultFlattenSeparator
	}
	return n.Separator
}

func (n Normalizer) flatten(out Record, prefix string, m map[string]any) error {
	// sorted keys make collision errors deterministic
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col := k
		if prefix != "" {
			col = prefix + n.separator() + k
		}
		if err := n.put(out, col, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func (n Normalizer) put(out Record, col string, v any) error {
	scalar, nested, err := n.scalar(v)
	if err != nil {
		return &RecordNormalizationError{Column: col, Err: err}
	}
	if nested != nil {
		return n.flatten(out, col, nested)
	}
	if _, ok := out[col]; ok {
		return &RecordNormalizationError{Column: col, Err: errColumnCollision}
	}
	out[col] = scalar
	return nil
}

// scalar converts v either into a scalar value or, if v is an object, into a
// map that needs to be flattened further.
func (n Normalizer) scalar(v any) (any, map[string]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil, nil
	case string, bool, []byte, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v, nil, nil
	case float32:
		return n.float(float64(v), v)
	case float64:
		return n.float(v, v)
	case time.Time:
		return formatTime(v), nil, nil
	case *time.Time:
		if v == nil {
			return nil, nil, nil
		}
		return formatTime(*v), nil, nil
	case map[string]any:
		return nil, v, nil
	case Record:
		return nil, v, nil
	case encoding.TextMarshaler:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil, nil
		}
		text, err := v.MarshalText()
		if err != nil {
			return nil, nil, err
		}
		return string(text), nil, nil
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil, nil
		}
		return v.String(), nil, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Type() == timeType {
		return formatTime(rv.Interface().(time.Time)), nil, nil
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil, nil
	case reflect.Bool:
		return rv.Bool(), nil, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil, nil
	case reflect.Float32, reflect.Float64:
		return n.float(rv.Float(), rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil, nil
		}
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize %s: %w", rv.Type(), err)
		}
		return string(b), nil, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil, fmt.Errorf("%w: map with %s keys", errUnsupportedValue, rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return nil, m, nil
	case reflect.Struct:
		// structs are treated like objects, their JSON representation decides
		// the column names
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize %s: %w", rv.Type(), err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s: %w", rv.Type(), err)
		}
		return nil, m, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnsupportedValue, rv.Type())
	}
}

func (Normalizer) float(f float64, orig any) (any, map[string]any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil, fmt.Errorf("%w: %v", errUnsupportedValue, f)
	}
	return orig, nil, nil
}

// formatTime is the single timestamp convention used for records and cursors.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
