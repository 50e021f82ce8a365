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

package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/conduitio/conduit-commons/config"
	"go.uber.org/multierr"
)

// Config is the configuration of the HTTP API source.
type Config struct {
	// URL of the endpoint returning pages of records.
	URL string `json:"url"`
	// RecordsPath is the dot separated path to the array of records in the
	// response body. An empty path means the body is the array.
	RecordsPath string `json:"recordsPath"`
	// CursorParam is the query parameter receiving the cursor.
	CursorParam string `json:"cursorParam"`
	// PageSizeParam is the query parameter receiving the page size.
	PageSizeParam string `json:"pageSizeParam"`
	// NextPath is the dot separated path to the next cursor in the response
	// body.
	NextPath string `json:"nextPath"`
	// CursorField is the record field used as the next cursor if NextPath is
	// empty.
	CursorField string `json:"cursorField"`
	// QueryTemplate renders the query string instead of CursorParam and
	// PageSizeParam.
	QueryTemplate string `json:"queryTemplate"`
	// AuthToken is sent as a bearer token.
	AuthToken string `json:"authToken"`
	// OAuth configures the client credentials flow.
	OAuth OAuthConfig `json:"oauth"`
	// RequestTimeout is the timeout of a single HTTP request.
	RequestTimeout time.Duration `json:"requestTimeout"`
	// Key is the state key of the source.
	Key string `json:"key"`
}

type OAuthConfig struct {
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
	TokenURL     string `json:"tokenURL"`
	Scopes       string `json:"scopes"`
}

func (c OAuthConfig) enabled() bool {
	return c.ClientID != "" || c.ClientSecret != "" || c.TokenURL != ""
}

func (Config) Parameters() config.Parameters {
	return config.Parameters{
		"url": {
			Default:     "",
			Description: "URL of the endpoint returning pages of records.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"recordsPath": {
			Default:     "data",
			Description: "Dot separated path to the array of records in the response body. Leave empty if the body is the array.",
			Type:        config.ParameterTypeString,
		},
		"cursorParam": {
			Default:     "cursor",
			Description: "Query parameter that receives the cursor.",
			Type:        config.ParameterTypeString,
		},
		"pageSizeParam": {
			Default:     "limit",
			Description: "Query parameter that receives the page size. Leave empty to not send the page size.",
			Type:        config.ParameterTypeString,
		},
		"nextPath": {
			Default:     "",
			Description: "Dot separated path to the next cursor in the response body.",
			Type:        config.ParameterTypeString,
		},
		"cursorField": {
			Default:     "",
			Description: "Record field used as the next cursor when nextPath is empty. The endpoint must return records ordered by this field.",
			Type:        config.ParameterTypeString,
		},
		"queryTemplate": {
			Default:     "",
			Description: "Go template rendering the query string, it replaces cursorParam and pageSizeParam. The template receives .Cursor and .PageSize and can use sprig functions.",
			Type:        config.ParameterTypeString,
		},
		"authToken": {
			Default:     "",
			Description: "Token sent as bearer token in the Authorization header.",
			Type:        config.ParameterTypeString,
		},
		"oauth.clientID": {
			Default:     "",
			Description: "Client ID used for the OAuth2 client credentials flow.",
			Type:        config.ParameterTypeString,
		},
		"oauth.clientSecret": {
			Default:     "",
			Description: "Client secret used for the OAuth2 client credentials flow.",
			Type:        config.ParameterTypeString,
		},
		"oauth.tokenURL": {
			Default:     "",
			Description: "Token endpoint used for the OAuth2 client credentials flow.",
			Type:        config.ParameterTypeString,
		},
		"oauth.scopes": {
			Default:     "",
			Description: "Comma separated list of scopes requested in the OAuth2 client credentials flow.",
			Type:        config.ParameterTypeString,
		},
		"requestTimeout": {
			Default:     "30s",
			Description: "Timeout of a single HTTP request.",
			Type:        config.ParameterTypeDuration,
		},
		"key": {
			Default:     "",
			Description: "Key under which the cursor is stored in the state. Defaults to the host and path of the URL.",
			Type:        config.ParameterTypeString,
		},
	}
}

// Validate checks settings that depend on each other and parses the URL and
// query template.
func (c Config) Validate() (*url.URL, *template.Template, error) {
	var errs error

	u, err := url.Parse(c.URL)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = multierr.Append(errs, fmt.Errorf("invalid url: scheme must be http or https, got %q", u.Scheme))
	}

	if c.OAuth.enabled() {
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" || c.OAuth.TokenURL == "" {
			errs = multierr.Append(errs, errors.New("oauth.clientID, oauth.clientSecret and oauth.tokenURL must be set together"))
		}
		if c.AuthToken != "" {
			errs = multierr.Append(errs, errors.New("authToken and oauth can't be used together"))
		}
	}
	if c.RequestTimeout < 0 {
		errs = multierr.Append(errs, errors.New("requestTimeout must not be negative"))
	}

	var tmpl *template.Template
	if c.QueryTemplate != "" {
		tmpl, err = template.New("query").Funcs(sprig.TxtFuncMap()).Parse(c.QueryTemplate)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid queryTemplate: %w", err))
		}
	}

	if errs != nil {
		return nil, nil, errs
	}
	return u, tmpl, nil
}
