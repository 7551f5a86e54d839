// Copyright 2026 Dolthub, Inc.
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

package pristine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the optional prometheus collectors an Env reports to.
type Metrics struct {
	cntCommits    prometheus.Counter
	cntAborts     prometheus.Counter
	histCommitDur prometheus.Histogram
	gaugeReaders  prometheus.Gauge
	gaugePages    prometheus.Gauge
	gaugeFree     prometheus.Gauge
}

func NewMetrics(labels prometheus.Labels) *Metrics {
	return &Metrics{
		cntCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pristine_commits",
			Help:        "Count of committed write transactions",
			ConstLabels: labels,
		}),
		cntAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pristine_aborts",
			Help:        "Count of aborted or failed write transactions",
			ConstLabels: labels,
		}),
		histCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "pristine_commit_duration",
			Help:        "Histogram of commit durations in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		}),
		gaugeReaders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pristine_open_readers",
			Help:        "Number of read transactions currently open",
			ConstLabels: labels,
		}),
		gaugePages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pristine_pages",
			Help:        "Number of pages allocated in the page file",
			ConstLabels: labels,
		}),
		gaugeFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pristine_free_pages",
			Help:        "Number of pages on the free list",
			ConstLabels: labels,
		}),
	}
}

// Register adds every collector to |reg|.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.cntCommits, m.cntAborts, m.histCommitDur, m.gaugeReaders, m.gaugePages, m.gaugeFree} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) commit(start time.Time, pages, free uint64) {
	if m == nil {
		return
	}
	m.cntCommits.Inc()
	m.histCommitDur.Observe(time.Since(start).Seconds())
	m.gaugePages.Set(float64(pages))
	m.gaugeFree.Set(float64(free))
}

func (m *Metrics) abort() {
	if m == nil {
		return
	}
	m.cntAborts.Inc()
}

func (m *Metrics) readerOpened() {
	if m == nil {
		return
	}
	m.gaugeReaders.Inc()
}

func (m *Metrics) readerClosed() {
	if m == nil {
		return
	}
	m.gaugeReaders.Dec()
}
