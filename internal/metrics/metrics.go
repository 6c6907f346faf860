package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Alerts evaluated, by outcome"},
		[]string{"symbol", "side", "outcome"},
	)
	OrdersQueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_queued_total", Help: "Orders placed in the mailbox, by source"},
		[]string{"source"},
	)
	OrdersReplacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "orders_replaced_total", Help: "Pending orders dropped by a newer push"},
	)
	OrderResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_results_total", Help: "Terminal results received, by kind"},
		[]string{"kind"},
	)
	PublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "terminal_publish_failures_total", Help: "Orders the message queue rejected"},
	)
	NotifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notify_failures_total", Help: "Notifications that could not be delivered"},
	)
	LicenseChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "license_checks_total", Help: "License verifications, by reason"},
		[]string{"reason"},
	)
	BillingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "billing_events_total", Help: "Billing webhook events, by type and action"},
		[]string{"type", "action"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		OrdersQueuedTotal,
		OrdersReplacedTotal,
		OrderResultsTotal,
		PublishFailuresTotal,
		NotifyFailuresTotal,
		LicenseChecksTotal,
		BillingEventsTotal,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
