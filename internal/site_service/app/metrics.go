package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settingsSavesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "settings_saves_total",
			Help:      "Total settings document writes.",
		},
		[]string{"result"}, // ok, invalid, error
	)

	settingsCorruptCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "settings_corrupt_discarded_total",
			Help:      "Corrupt settings documents discarded on load.",
		},
	)

	loginAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "login_attempts_total",
			Help:      "Admin login attempts.",
		},
		[]string{"result"}, // success, invalid, rate_limited
	)

	reconcileDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sms_site",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of number reconciliation.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reconcileProviderFailuresCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "reconcile_provider_failures_total",
			Help:      "Provider listings that failed during reconciliation.",
		},
		[]string{"provider"},
	)

	inboxFetchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "inbox_fetches_total",
			Help:      "Inbox message fetches.",
		},
		[]string{"provider", "result"},
	)

	settingsBroadcastCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_site",
			Name:      "settings_broadcast_messages_total",
			Help:      "Settings change notifications exchanged over NATS.",
		},
		[]string{"direction"}, // out, in, publish_error
	)

	editorSessionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sms_site",
			Name:      "editor_sessions",
			Help:      "Open visual editor sessions.",
		},
	)
)
