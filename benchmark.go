// Copyright © 2023 Meroxa, Inc.
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
	"testing"
	"time"
)

// BenchmarkSource is a benchmark that any source implementation can run to figure
// out its performance. The benchmark expects that the source resource contains
// at least b.N number of records. This should be prepared before the benchmark
// is executed.
// The function should be manually called from a benchmark function:
//
//	func BenchmarkConnector(b *testing.B) {
//	    // set up test dependencies and write b.N records to source resource ...
//	    sdk.BenchmarkSource(
//	        b,
//	        mySource,
//	        map[string]string{...}, // valid source config
//	    )
//	}
//
// The benchmark can be run with a specific number of records by supplying the
// option -benchtime=Nx, where N is the number of records to be benchmarked
// (e.g. -benchtime=100x benchmarks fetching 100 records). Records are fetched
// with the page size configured in "sdk.page.size" and normalized, but not
// emitted anywhere.
func BenchmarkSource(
	b *testing.B,
	s Source,
	cfg map[string]string,
) {
	bm := benchmarkSource{
		source: s,
		config: cfg,
	}
	bm.Run(b)
}

type benchmarkSource struct {
	source Source
	config map[string]string

	// measures
	configure time.Duration
	open      time.Duration
	firstPage time.Duration
	allPages  time.Duration
	teardown  time.Duration

	records int
	pages   int
}

func (bm *benchmarkSource) Run(b *testing.B) {
	ctx := context.Background()

	var d SyncDriver
	var sc SyncConfig
	bm.configure = bm.measure(func() {
		validCfg, err := ValidateConfig(bm.config, d.Parameters(bm.source))
		if err != nil {
			b.Fatal(err)
		}
		sc, err = d.Config.parse(validCfg)
		if err != nil {
			b.Fatal(err)
		}
		if err := bm.source.Configure(ctx, validCfg); err != nil {
			b.Fatal(err)
		}
	})

	bm.open = bm.measure(func() {
		if err := bm.source.Open(ctx); err != nil {
			b.Fatal(err)
		}
	})

	// measure first page manually, it might be slower
	var cursor any
	var done bool
	bm.firstPage = bm.measure(func() {
		cursor, done = bm.fetch(ctx, b, sc, nil)
	})

	bm.allPages = bm.measure(func() {
		for !done && bm.records < b.N {
			cursor, done = bm.fetch(ctx, b, sc, cursor)
		}
	})
	if bm.records < b.N {
		b.Fatalf("source returned %d records, expected at least %d", bm.records, b.N)
	}

	bm.teardown = bm.measure(func() {
		if err := bm.source.Teardown(ctx); err != nil {
			b.Fatal(err)
		}
	})

	// report gathered metrics
	bm.reportMetrics(b)
}

// fetch fetches and normalizes a single page and returns the cursor of the
// next page.
func (bm *benchmarkSource) fetch(ctx context.Context, b *testing.B, sc SyncConfig, cursor any) (any, bool) {
	page, err := bm.source.FetchPage(ctx, cursor, sc.PageSize)
	if err != nil {
		b.Fatal("FetchPage:", err)
	}
	for _, rec := range page.Records {
		if _, err := sc.Normalizer.Normalize(rec); err != nil {
			b.Fatal("Normalize:", err)
		}
	}
	bm.pages++
	bm.records += len(page.Records)
	return page.NextCursor, page.Done()
}

func (*benchmarkSource) measure(f func()) time.Duration {
	start := time.Now()
	f()
	return time.Since(start)
}

func (bm *benchmarkSource) reportMetrics(b *testing.B) {
	b.ReportMetric(0, "ns/op") // suppress ns/op metric, it is misleading in this benchmarkSource

	b.ReportMetric(bm.configure.Seconds(), "configure")
	b.ReportMetric(bm.open.Seconds(), "open")
	b.ReportMetric(bm.teardown.Seconds(), "teardown")

	b.ReportMetric(bm.firstPage.Seconds(), "firstPage")
	b.ReportMetric(float64(bm.pages), "pages")
	b.ReportMetric(float64(bm.records)/(bm.firstPage+bm.allPages).Seconds(), "records/s")
}
