package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/ptr"
)

const namespace = "sharedptr"

func newCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ptr",
			Name:      "live_values",
			Help:      "Values owned by at least one shared handle.",
		}, func() float64 { return float64(ptr.Stats().LiveValues) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ptr",
			Name:      "live_counters",
			Help:      "Control blocks referenced by a shared or weak handle.",
		}, func() float64 { return float64(ptr.Stats().LiveCounters) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "active",
			Help:      "Packed buffers taken from the pool and not yet returned.",
		}, func() float64 { return float64(buffer.ActiveBuffers.Load()) }),
	}
}

func newStatisticCollectors(name string, stat *packet.PacketStatistic) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "channel",
			Name:        "packets_total",
			Help:        "Packets counted by a channel statistic.",
			ConstLabels: prometheus.Labels{"stat": name},
		}, func() float64 {
			pkg, _ := stat.Total()
			return float64(pkg)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "channel",
			Name:        "bytes_total",
			Help:        "Bytes counted by a channel statistic.",
			ConstLabels: prometheus.Labels{"stat": name},
		}, func() float64 {
			_, band := stat.Total()
			return float64(band)
		}),
	}
}

// Register adds the handle and buffer gauges plus one counter pair per
// statistic to reg.
func Register(reg prometheus.Registerer, stats map[string]*packet.PacketStatistic) error {
	collectors := newCollectors()
	for name, stat := range stats {
		collectors = append(collectors, newStatisticCollectors(name, stat)...)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Serve exposes the default registry on addr until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
