// Package metrics defines the Prometheus collectors of the game server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jxucoder/truthordare/model"
)

var (
	drawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthordare_draws_total",
			Help: "Total number of committed draws by mode, type and whether the pool was empty.",
		},
		[]string{"mode", "type", "empty"},
	)

	rejectedDrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthordare_rejected_draws_total",
			Help: "Total number of draws rejected because another draw was in flight.",
		},
		[]string{"mode"},
	)

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "truthordare_active_sessions",
		Help: "Number of live game sessions.",
	})
)

// Recorder reports engine draw outcomes to Prometheus.
type Recorder struct{}

// RecordDraw counts a committed draw.
func (Recorder) RecordDraw(mode model.Mode, t model.EntryType, placeholder bool) {
	drawsTotal.WithLabelValues(string(mode), string(t), strconv.FormatBool(placeholder)).Inc()
}

// RecordRejected counts a draw rejected while another was in flight.
func (Recorder) RecordRejected(mode model.Mode) {
	rejectedDrawsTotal.WithLabelValues(string(mode)).Inc()
}

// SessionOpened and SessionClosed track the live session gauge.
func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
