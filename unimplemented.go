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

	"github.com/conduitio/conduit-commons/config"
)

// UnimplementedSource should be embedded to have forward compatible implementations.
type UnimplementedSource struct{}

// Parameters needs to be overridden in the actual implementation.
func (UnimplementedSource) Parameters() config.Parameters {
	return nil
}

// Configure needs to be overridden in the actual implementation.
func (UnimplementedSource) Configure(context.Context, config.Config) error {
	return ErrUnimplemented
}

// Open should be overridden if the source needs to create clients or
// connections, otherwise it is optional.
func (UnimplementedSource) Open(context.Context) error {
	return nil
}

// Key needs to be overridden in the actual implementation.
func (UnimplementedSource) Key() string {
	return ""
}

// FetchPage needs to be overridden in the actual implementation.
func (UnimplementedSource) FetchPage(context.Context, any, int) (Page, error) {
	return Page{}, ErrUnimplemented
}

// Teardown needs to be overridden in the actual implementation.
func (UnimplementedSource) Teardown(context.Context) error {
	return ErrUnimplemented
}
func (UnimplementedSource) mustEmbedUnimplementedSource() {}
