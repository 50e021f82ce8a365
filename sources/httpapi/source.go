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

// Package httpapi provides a source that pages through a JSON HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/conduitio/conduit-commons/config"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/fivetran/fivetran-connector-sdk-sub004/internal"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// maxErrorBody is the number of bytes of an error response included in the
// returned error.
const maxErrorBody = 512

// Source fetches records from a JSON HTTP API. Every request passes the
// cursor and page size as query parameters, the response body contains the
// records and optionally the next cursor.
type Source struct {
	sdk.UnimplementedSource

	config Config
	url    *url.URL
	query  *template.Template
	client *http.Client
}

// NewSource returns the source wrapped into the default middleware.
func NewSource() sdk.Source {
	return sdk.SourceWithMiddleware(&Source{}, sdk.DefaultSourceMiddleware()...)
}

func (s *Source) Parameters() config.Parameters {
	return s.config.Parameters()
}

func (s *Source) Configure(ctx context.Context, cfg config.Config) error {
	if err := sdk.Util.ParseConfig(cfg, &s.config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	u, tmpl, err := s.config.Validate()
	if err != nil {
		return err
	}
	s.url, s.query = u, tmpl

	sdk.Logger(ctx).Debug().
		Str("url", s.url.Redacted()).
		Bool("oauth", s.config.OAuth.enabled()).
		Msg("configured HTTP API source")
	return nil
}

func (s *Source) Open(ctx context.Context) error {
	base := &http.Client{Timeout: s.config.RequestTimeout}

	// the token source outlives Open, it must not be bound to its context
	tokenCtx := context.WithValue(internal.DetachContext(ctx), oauth2.HTTPClient, base)

	switch {
	case s.config.AuthToken != "":
		s.client = oauth2.NewClient(tokenCtx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: s.config.AuthToken,
		}))
	case s.config.OAuth.enabled():
		cc := clientcredentials.Config{
			ClientID:     s.config.OAuth.ClientID,
			ClientSecret: s.config.OAuth.ClientSecret,
			TokenURL:     s.config.OAuth.TokenURL,
			Scopes:       sdk.Util.SplitList(s.config.OAuth.Scopes),
		}
		s.client = cc.Client(tokenCtx)
	default:
		s.client = base
		return nil
	}
	s.client.Timeout = s.config.RequestTimeout
	return nil
}

func (s *Source) Key() string {
	if s.config.Key != "" {
		return s.config.Key
	}
	if s.url == nil {
		return ""
	}
	return s.url.Host + s.url.Path
}

func (s *Source) FetchPage(ctx context.Context, cursor any, pageSize int) (sdk.Page, error) {
	u, err := s.pageURL(cursor, pageSize)
	if err != nil {
		return sdk.Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return sdk.Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return sdk.Page{}, classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return sdk.Page{}, err
	}

	var body any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		// a body cut off mid-stream is worth another try
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return sdk.Page{}, sdk.Transient(fmt.Errorf("failed to read response: %w", err))
		}
		return sdk.Page{}, fmt.Errorf("failed to decode response: %w", err)
	}

	records, err := extractRecords(body, s.config.RecordsPath)
	if err != nil {
		return sdk.Page{}, err
	}

	var next any
	switch {
	case s.config.NextPath != "":
		next, _ = lookup(body, s.config.NextPath)
		if str, ok := next.(string); ok && str == "" {
			next = nil
		}
	case s.config.CursorField != "":
		next = sdk.Util.Source.NextCursorFromRecords(records, s.config.CursorField)
	}

	sdk.Logger(ctx).Trace().
		Str("url", u.Redacted()).
		Int("records", len(records)).
		Msg("fetched page")
	return sdk.Page{Records: records, NextCursor: next}, nil
}

func (s *Source) Teardown(context.Context) error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *Source) pageURL(cursor any, pageSize int) (*url.URL, error) {
	u := *s.url
	q := u.Query()

	if s.query != nil {
		var buf bytes.Buffer
		err := s.query.Execute(&buf, struct {
			Cursor   any
			PageSize int
		}{Cursor: cursor, PageSize: pageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to render query template: %w", err)
		}
		extra, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(buf.String()), "?"))
		if err != nil {
			return nil, fmt.Errorf("query template rendered an invalid query: %w", err)
		}
		for k, vs := range extra {
			q[k] = vs
		}
	} else {
		if cursor != nil && s.config.CursorParam != "" {
			q.Set(s.config.CursorParam, fmt.Sprint(cursor))
		}
		if s.config.PageSizeParam != "" {
			q.Set(s.config.PageSizeParam, strconv.Itoa(pageSize))
		}
	}

	u.RawQuery = q.Encode()
	return &u, nil
}

func classifyRequestError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch code := retrieveErr.Response.StatusCode; {
		case code == http.StatusTooManyRequests || code >= 500:
			return sdk.Transient(fmt.Errorf("failed to retrieve token: %w", err))
		default:
			return sdk.Unauthenticated(fmt.Errorf("failed to retrieve token: %w", err))
		}
	}
	// connection errors and timeouts
	return sdk.Transient(fmt.Errorf("request failed: %w", err))
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("unexpected response %s: %s", resp.Status, bytes.TrimSpace(snippet))

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return sdk.Unauthenticated(err)
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return sdk.Transient(err)
	default:
		return err
	}
}

// extractRecords returns the objects in the array found at path.
func extractRecords(body any, path string) ([]sdk.Record, error) {
	v, ok := lookup(body, path)
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array at %q, got %T", path, v)
	}

	records := make([]sdk.Record, 0, len(arr))
	for i, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected an object at %q index %d, got %T", path, i, item)
		}
		records = append(records, sdk.Record(obj))
	}
	return records, nil
}

// lookup walks a dot separated path through nested objects. An empty path
// returns v itself.
func lookup(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return v, true
}
