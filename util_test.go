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
	"testing"
	"time"

	"github.com/conduitio/conduit-commons/config"
	"github.com/matryer/is"
)

func TestParseConfig_Simple_Struct(t *testing.T) {
	is := is.New(t)

	type Person struct {
		Name    string        `json:"personName"`
		Age     int           `json:"age"`
		Timeout time.Duration `json:"timeout"`
		Admin   bool          `json:"admin"`
	}

	input := config.Config{
		"personName": "meroxa",
		"age":        "91",
		"timeout":    "5s",
		"admin":      "true",
	}
	want := Person{
		Name:    "meroxa",
		Age:     91,
		Timeout: 5 * time.Second,
		Admin:   true,
	}

	var got Person
	err := Util.ParseConfig(input, &got)
	is.NoErr(err)
	is.Equal(want, got)
}

func TestParseConfig_Embedded_Struct(t *testing.T) {
	is := is.New(t)
	type Family struct {
		LastName string `json:"lastName"`
	}
	type Location struct {
		City string `json:"city"`
	}
	type Person struct {
		Family    `json:",squash"`
		Location  `json:",squash"`
		FirstName string `json:"firstName"`
	}

	input := config.Config{
		"firstName": "conduit",
		"lastName":  "meroxa",
		"city":      "San Francisco",
	}
	want := Person{
		Family:    Family{LastName: "meroxa"},
		Location:  Location{City: "San Francisco"},
		FirstName: "conduit",
	}

	var got Person
	err := parseConfig(input, &got)
	is.NoErr(err)
	is.Equal(want, got)
}

func TestSplitList(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "id", want: []string{"id"}},
		{in: "updated_at, id", want: []string{"updated_at", "id"}},
		{in: "a,,b, ,", want: []string{"a", "b"}},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Util.SplitList(tc.in), tc.want)
		})
	}
}

func TestMergeParameters(t *testing.T) {
	is := is.New(t)

	p1 := config.Parameters{"a": {Default: "1"}}
	p2 := config.Parameters{"b": {Default: "2"}}
	got := mergeParameters(p1, p2)
	is.Equal(got, config.Parameters{"a": {Default: "1"}, "b": {Default: "2"}})
	is.Equal(len(p1), 1) // inputs are not modified

	is.Equal(len(mergeParameters(nil, nil)), 0)
}

func TestMergeParameters_Duplicate(t *testing.T) {
	is := is.New(t)

	defer func() {
		r := recover()
		is.True(r != nil)
	}()
	mergeParameters(config.Parameters{"a": {}}, config.Parameters{"a": {}})
}

func TestNextCursorFromRecords(t *testing.T) {
	is := is.New(t)

	page := []Record{{"id": 21}, {"id": 22}, {"id": 23}}
	is.Equal(Util.Source.NextCursorFromRecords(page, "id"), 23)
	is.Equal(Util.Source.NextCursorFromRecords(page[:1], "id"), 21)
	is.Equal(Util.Source.NextCursorFromRecords(nil, "id"), nil)
}
