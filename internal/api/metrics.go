package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	pointsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_points_classified_total",
		Help: "Total number of metric points classified, by zone",
	}, []string{"zone"})

	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_reports_total",
		Help: "Total number of zone reports built, by strategy",
	}, []string{"strategy"})

	latestRiskPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zone_risk_points",
		Help: "Risk points in the most recent report",
	})
)
