package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleDuration prometheus.Histogram
	decisions     *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	tradePnL      *prometheus.GaugeVec
	tradeFees     *prometheus.CounterVec
	tradesTotal   *prometheus.CounterVec
	openPositions prometheus.Gauge
	modelVersion  prometheus.Gauge
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "microtrade_cycle_duration_seconds",
				Help:    "Duration of one full decision cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microtrade_decisions_total",
				Help: "Decision outcomes per instrument",
			},
			[]string{"symbol", "outcome"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microtrade_rejections_total",
				Help: "Rejected entries by reason",
			},
			[]string{"symbol", "reason"},
		),
		tradePnL: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "microtrade_net_pnl",
				Help: "Cumulative net PnL per instrument, quote currency",
			},
			[]string{"symbol"},
		),
		tradeFees: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microtrade_trade_fees_total",
				Help: "Cumulative fees paid per instrument, quote currency",
			},
			[]string{"symbol"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microtrade_trades_total",
				Help: "Completed round trips per instrument",
			},
			[]string{"symbol"},
		),
		openPositions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "microtrade_open_positions",
				Help: "Currently open positions",
			},
		),
		modelVersion: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "microtrade_model_version",
				Help: "Version of the active prediction model",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microtrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "microtrade_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCycle records the duration of one decision cycle.
func (r *Recorder) RecordCycle(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordDecision records a decision outcome for an instrument.
func (r *Recorder) RecordDecision(symbol, outcome string) {
	r.decisions.WithLabelValues(symbol, outcome).Inc()
}

// RecordRejection records a rejected entry and its reason.
func (r *Recorder) RecordRejection(symbol, reason string) {
	r.rejections.WithLabelValues(symbol, reason).Inc()
}

// RecordTrade records a completed round trip.
func (r *Recorder) RecordTrade(symbol string, pnl, fees float64) {
	r.tradesTotal.WithLabelValues(symbol).Inc()
	r.tradePnL.WithLabelValues(symbol).Add(pnl)
	r.tradeFees.WithLabelValues(symbol).Add(fees)
}

// RecordOpenPositions records the current open position count.
func (r *Recorder) RecordOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

// RecordModelVersion records the active model version.
func (r *Recorder) RecordModelVersion(v int) {
	r.modelVersion.Set(float64(v))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
