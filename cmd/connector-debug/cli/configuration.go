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

package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/conduitio/conduit-commons/config"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// readConfiguration reads a JSON or YAML file into a flat configuration.
// Nested objects are flattened into dotted keys, so
//
//	oauth:
//	  clientId: foo
//
// becomes "oauth.clientId": "foo". Lists are joined with commas.
func readConfiguration(path string) (config.Config, error) {
	if path == "" {
		return config.Config{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration from %v: %w", path, err)
	}

	var data map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		err = dec.Decode(&data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		return nil, fmt.Errorf("unsupported configuration file %v, expected .json, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg := make(config.Config)
	if err := flattenConfiguration(cfg, "", data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flattenConfiguration(cfg config.Config, prefix string, data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := data[k].(map[string]any); ok {
			if err := flattenConfiguration(cfg, key, nested); err != nil {
				return err
			}
			continue
		}
		v, err := stringify(data[k])
		if err != nil {
			return fmt.Errorf("configuration key %q: %w", key, err)
		}
		if _, ok := cfg[key]; ok {
			return fmt.Errorf("configuration key %q set twice", key)
		}
		cfg[key] = v
	}
	return nil
}

func stringify(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", fmt.Errorf("unexpected object")
	default:
		return fmt.Sprint(v), nil
	}
}
