// Package metrics exposes connection, column, and packet counters over
// Prometheus, grounded on the registry/gauge/counter wiring pattern in
// the retrieved pack's HealthLogger (own Registry, explicit
// prometheus.New{Gauge,Counter} calls, MustRegister once at
// construction, served over promhttp).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the server's full set of exported gauges/counters.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsOpen  prometheus.Gauge
	ConnectionsTotal prometheus.Counter
	BackpressureKick prometheus.Counter

	ColumnsLoaded prometheus.Gauge
	ColumnsSaved  prometheus.Counter
	ColumnsEvicted prometheus.Counter

	PacketsReceived *prometheus.CounterVec
	PacketsSent     *prometheus.CounterVec
	PacketDecodeErrors prometheus.Counter
}

// New builds and registers every metric against a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcserver_connections_open",
			Help: "Currently open TCP connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcserver_connections_total",
			Help: "Total TCP connections accepted.",
		}),
		BackpressureKick: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcserver_backpressure_disconnects_total",
			Help: "Connections dropped for exceeding the send-queue backpressure cap.",
		}),
		ColumnsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcserver_columns_loaded",
			Help: "Columns currently resident in the world store.",
		}),
		ColumnsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcserver_columns_saved_total",
			Help: "Columns written to the backing store by the maintenance pass.",
		}),
		ColumnsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcserver_columns_evicted_total",
			Help: "Columns evicted from the world store by the maintenance pass.",
		}),
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcserver_packets_received_total",
			Help: "Packets decoded from clients, by packet name.",
		}, []string{"packet"}),
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcserver_packets_sent_total",
			Help: "Packets encoded to clients, by packet name.",
		}, []string{"packet"}),
		PacketDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcserver_packet_decode_errors_total",
			Help: "Packets that failed to decode (bad format or unknown id).",
		}),
	}

	reg.MustRegister(
		m.ConnectionsOpen,
		m.ConnectionsTotal,
		m.BackpressureKick,
		m.ColumnsLoaded,
		m.ColumnsSaved,
		m.ColumnsEvicted,
		m.PacketsReceived,
		m.PacketsSent,
		m.PacketDecodeErrors,
	)
	return m
}

// Handler returns the http.Handler serving this Metrics' registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
