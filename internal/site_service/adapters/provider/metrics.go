package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sms_site",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of HTTP requests to telephony providers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "resource"},
	)

	providerRequestErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "provider_request_errors_total",
			Help:      "Total failed provider requests.",
		},
		[]string{"provider", "resource", "kind"}, // kind: transport, api, proxy, format
	)
)
