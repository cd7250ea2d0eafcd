package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecipientsLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_recipients_loaded_total",
		Help: "Total number of unique recipient addresses loaded from uploaded files",
	}, []string{"format"})

	// Relay session metrics. result is one of "ok", "auth_failed" or "setup_failed".
	RelaySessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_relay_sessions_total",
		Help: "Total number of relay sessions opened, by outcome",
	}, []string{"host", "result"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_mail_send_success_total",
		Help: "Total number of messages accepted by the relay",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_mail_send_failure_total",
		Help: "Total number of messages rejected by the relay",
	}, []string{"host"})

	BulkRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_bulk_runs_total",
		Help: "Total number of bulk send requests, by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(RecipientsLoaded)
	prometheus.MustRegister(RelaySessions)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(BulkRuns)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
