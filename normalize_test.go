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
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/matryer/is"
)

func TestNormalizer_Normalize(t *testing.T) {
	is := is.New(t)

	type address struct {
		City string `json:"city"`
		Zip  string `json:"zip"`
	}
	ts := time.Date(2024, 1, 2, 4, 4, 5, 0, time.FixedZone("CET", 3600))
	name := "alice"

	got, err := Normalizer{}.Normalize(Record{
		"id":      1,
		"name":    &name,
		"active":  true,
		"score":   2.5,
		"big":     json.Number("12345678901234567890"),
		"avatar":  []byte{1, 2},
		"tags":    []string{"a", "b"},
		"created": ts,
		"ip":      net.ParseIP("10.0.0.1"),
		"deleted": nil,
		"user": map[string]any{
			"email": "alice@example.com",
			"prefs": map[string]int{"theme": 2},
		},
		"address": address{City: "Berlin", Zip: "10115"},
	})
	is.NoErr(err)
	is.Equal(got, Record{
		"id":               1,
		"name":             "alice",
		"active":           true,
		"score":            2.5,
		"big":              json.Number("12345678901234567890"),
		"avatar":           []byte{1, 2},
		"tags":             `["a","b"]`,
		"created":          "2024-01-02T03:04:05Z",
		"ip":               "10.0.0.1",
		"deleted":          nil,
		"user_email":       "alice@example.com",
		"user_prefs_theme": 2,
		"address_city":     "Berlin",
		"address_zip":      "10115",
	})
}

func TestNormalizer_Separator(t *testing.T) {
	is := is.New(t)

	got, err := Normalizer{Separator: "."}.Normalize(Record{
		"a": map[string]any{"b": map[string]any{"c": 1}},
	})
	is.NoErr(err)
	is.Equal(got, Record{"a.b.c": 1})
}

func TestNormalizer_DoesNotChangeInput(t *testing.T) {
	is := is.New(t)

	in := Record{"a": map[string]any{"b": 1}}
	_, err := Normalizer{}.Normalize(in)
	is.NoErr(err)
	is.Equal(in, Record{"a": map[string]any{"b": 1}})
}

func TestNormalizer_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		rec    Record
		column string
	}{
		{name: "NaN", rec: Record{"x": math.NaN()}, column: "x"},
		{name: "infinity", rec: Record{"x": float32(math.Inf(-1))}, column: "x"},
		{name: "channel", rec: Record{"x": make(chan int)}, column: "x"},
		{name: "func", rec: Record{"a": map[string]any{"f": func() {}}}, column: "a_f"},
		{name: "map with int keys", rec: Record{"x": map[int]string{1: "a"}}, column: "x"},
		{name: "collision", rec: Record{"a_b": 1, "a": map[string]any{"b": 2}}, column: "a_b"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)

			_, err := Normalizer{}.Normalize(tc.rec)
			is.True(errors.Is(err, ErrRecordNormalization))

			var normErr *RecordNormalizationError
			is.True(errors.As(err, &normErr))
			is.Equal(normErr.Column, tc.column)
		})
	}
}
