// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const namespace = "sequencer"

type metrics struct {
	operations        prometheus.Counter
	kernelFailures    prometheus.Counter
	headers           prometheus.Counter
	injectedOps       prometheus.Counter
	injectionFailures prometheus.Counter
	level             prometheus.Gauge
	batchSize         prometheus.Histogram
	kernelDuration    prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		operations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations",
			Help:      "Number of operations applied",
		}),
		kernelFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kernel_failures",
			Help:      "Number of kernel invocations that returned an error",
		}),
		headers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "headers",
			Help:      "Number of layer 1 headers processed",
		}),
		injectedOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injected_operations",
			Help:      "Number of operations accepted by the rollup node",
		}),
		injectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injection_failures",
			Help:      "Number of batches the rollup node did not accept",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level",
			Help:      "Last layer 1 level observed",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of operations per flushed batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		kernelDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kernel_duration_seconds",
			Help:      "Time spent in one kernel invocation",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.operations),
		registerer.Register(m.kernelFailures),
		registerer.Register(m.headers),
		registerer.Register(m.injectedOps),
		registerer.Register(m.injectionFailures),
		registerer.Register(m.level),
		registerer.Register(m.batchSize),
		registerer.Register(m.kernelDuration),
	)
	return m, errs.Err
}
