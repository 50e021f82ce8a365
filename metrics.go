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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "connector_sdk"

// Metrics collects counters about sync runs, labeled by source key. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	RecordsEmitted *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec
	Checkpoints    *prometheus.CounterVec
	Retries        *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
}

// NewMetrics creates the sync metrics and registers them with reg. If reg is
// nil the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_emitted_total",
			Help:      "Number of normalized records handed to the sink.",
		}, []string{"source"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_skipped_total",
			Help:      "Number of records skipped because they could not be normalized.",
		}, []string{"source"}),
		Checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkpoints_total",
			Help:      "Number of times the state was persisted.",
		}, []string{"source"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_retries_total",
			Help:      "Number of page fetches retried after a transient error.",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of successful page fetches, including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.RecordsEmitted, m.RecordsSkipped, m.Checkpoints, m.Retries, m.FetchDuration)
	}
	return m
}

func (m *Metrics) emitted(source string) {
	if m != nil {
		m.RecordsEmitted.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) skipped(source string) {
	if m != nil {
		m.RecordsSkipped.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) checkpoint(source string) {
	if m != nil {
		m.Checkpoints.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) retry(source string) {
	if m != nil {
		m.Retries.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) fetched(source string, d time.Duration) {
	if m != nil {
		m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}
