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
	"errors"
	"strings"
	"testing"

	"github.com/conduitio/conduit-commons/config"
	"github.com/matryer/is"
)

var testParams = config.Parameters{
	"url": {
		Type:        config.ParameterTypeString,
		Validations: []config.Validation{config.ValidationRequired{}},
	},
	"apiKey": {
		Type:        config.ParameterTypeString,
		Validations: []config.Validation{config.ValidationRequired{}},
	},
	"pageSize": {
		Default: "100",
		Type:    config.ParameterTypeInt,
	},
	"timeout": {
		Default: "30s",
		Type:    config.ParameterTypeDuration,
	},
}

func TestValidateConfig_Defaults(t *testing.T) {
	is := is.New(t)

	in := config.Config{
		" url ":  " https://example.com ",
		"apiKey": "secret",
	}
	got, err := ValidateConfig(in, testParams)
	is.NoErr(err)
	is.Equal(got, config.Config{
		"url":      "https://example.com",
		"apiKey":   "secret",
		"pageSize": "100",
		"timeout":  "30s",
	})
	// input is not modified
	is.Equal(len(in), 2)
}

func TestValidateConfig_EmptyValueClearsDefault(t *testing.T) {
	is := is.New(t)

	got, err := ValidateConfig(config.Config{
		"url":     "https://example.com",
		"apiKey":  "secret",
		"timeout": "",
	}, testParams)
	is.NoErr(err)
	_, ok := got["timeout"]
	is.True(!ok)
	is.Equal(got["pageSize"], "100")
}

func TestValidateConfig_MissingRequired(t *testing.T) {
	is := is.New(t)

	_, err := ValidateConfig(config.Config{"apiKey": "  "}, testParams)
	is.True(errors.Is(err, ErrConfiguration))
	is.True(errors.Is(err, ErrRequiredParameterMissing))

	var cfgErr *ConfigurationError
	is.True(errors.As(err, &cfgErr))
	is.Equal(cfgErr.Missing, []string{"apiKey", "url"})
	is.Equal(cfgErr.Err, nil) // missing keys are only reported in Missing
	is.Equal(strings.Count(err.Error(), "apiKey"), 1)
}

func TestValidateConfig_AllViolations(t *testing.T) {
	is := is.New(t)

	_, err := ValidateConfig(config.Config{
		"apiKey":   "secret",
		"pageSize": "many",
		"region":   "eu",
	}, testParams)

	var cfgErr *ConfigurationError
	is.True(errors.As(err, &cfgErr))
	is.Equal(cfgErr.Missing, []string{"url"})
	is.True(errors.Is(err, ErrUnrecognizedParameter))
	is.True(errors.Is(err, ErrInvalidParameterType))
	is.Equal(strings.Count(err.Error(), `"url"`), 1)
}

func TestValidateConfig_NoParameters(t *testing.T) {
	is := is.New(t)

	got, err := ValidateConfig(nil, nil)
	is.NoErr(err)
	is.Equal(got, config.Config{})
}
