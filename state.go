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
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

// State maps a source key to the cursor the source should resume from. The
// host owns the durable copy, the driver only owns the in-memory cursor for
// the duration of one sync. Values are scalars or small nested structures
// that survive a JSON round trip.
type State map[string]any

// Cursor returns the cursor stored under key, or nil if there is none.
func (s State) Cursor(key string) any {
	if s == nil {
		return nil
	}
	return s[key]
}

// Clone returns a deep copy of the state, so a persisted snapshot can not be
// changed by a later cursor update.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, vv := range v {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, vv := range v {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Decode decodes the structured value stored under key into target, which
// must be a pointer. Fields are matched using the "json" struct tag. It
// returns false if no value is stored under key.
func (s State) Decode(key string, target any) (bool, error) {
	raw, ok := s[key]
	if !ok || raw == nil {
		return false, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return false, fmt.Errorf("failed to decode state value for %q: %w", key, err)
	}
	return true, nil
}

// MarshalState encodes the state as JSON. Numbers are decoded back as
// json.Number by UnmarshalState so offsets keep their precision.
func MarshalState(s State) ([]byte, error) {
	if s == nil {
		s = State{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return b, nil
}

// UnmarshalState decodes a state previously encoded with MarshalState.
// Empty input produces an empty state.
func UnmarshalState(b []byte) (State, error) {
	s := State{}
	if len(bytes.TrimSpace(b)) == 0 {
		return s, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return s, nil
}

// ReadStateFile reads a state file written by WriteStateFile. A missing file
// is not an error, it yields an empty state (first run).
func ReadStateFile(path string) (State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return UnmarshalState(b)
}

// WriteStateFile writes the state atomically by writing a temporary file in
// the same directory and renaming it.
func WriteStateFile(path string, s State) error {
	b, err := MarshalState(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
