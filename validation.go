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
	"sort"
	"strings"

	"github.com/conduitio/conduit-commons/config"
	"go.uber.org/multierr"
)

var (
	ErrUnrecognizedParameter    = config.ErrUnrecognizedParameter
	ErrInvalidParameterValue    = config.ErrInvalidParameterValue
	ErrInvalidParameterType     = config.ErrInvalidParameterType
	ErrRequiredParameterMissing = config.ErrRequiredParameterMissing
)

// ValidateConfig is the single validation entry point for a configuration.
// It returns a copy of cfg with surrounding whitespace trimmed and defaults
// applied to parameters that are not set. Parameters set to an empty value
// are removed. If the configuration is invalid it returns a *ConfigurationError
// that lists every missing required parameter and every other violation at
// once, instead of stopping at the first one.
func ValidateConfig(cfg config.Config, params config.Parameters) (config.Config, error) {
	out := make(config.Config, len(cfg)+len(params))
	for k, v := range cfg {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	for name, p := range params {
		if _, ok := out[name]; !ok && p.Default != "" {
			out[name] = p.Default
		}
	}
	for k, v := range out {
		if v == "" {
			// an explicitly empty value clears the default
			delete(out, k)
		}
	}

	var missing []string
	for name, p := range params {
		if isRequired(p) && out[name] == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	var errs error
	if err := out.Validate(withoutValidations(params, missing)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if len(missing) > 0 || errs != nil {
		return nil, &ConfigurationError{Missing: missing, Err: errs}
	}
	return out, nil
}

// withoutValidations returns a copy of params in which the parameters named
// in keys carry no validations. Missing keys are reported through
// ConfigurationError.Missing only.
func withoutValidations(params config.Parameters, keys []string) config.Parameters {
	if len(keys) == 0 {
		return params
	}
	out := make(config.Parameters, len(params))
	for name, p := range params {
		out[name] = p
	}
	for _, name := range keys {
		p := out[name]
		p.Validations = nil
		out[name] = p
	}
	return out
}

func isRequired(p config.Parameter) bool {
	for _, v := range p.Validations {
		if _, ok := v.(config.ValidationRequired); ok {
			return true
		}
	}
	return false
}
