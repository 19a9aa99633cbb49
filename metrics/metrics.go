// Package metrics exposes prometheus counters for the wallet service.
package metrics

import (
	"context"
	"strconv"
	"time"

	"noblechain/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "noblechain"

// Label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	DomainEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Committed domain events by type",
		},
		[]string{"event_type"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfer requests by outcome",
		},
		[]string{"outcome"},
	)

	MarketTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_ticks_total",
			Help:      "Market price updates published",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Subscribe counts committed domain events on bus
func Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		DomainEventsTotal.WithLabelValues(string(event.Type())).Inc()
		if event.Type() == events.EventTypeMarketUpdated {
			MarketTicksTotal.Inc()
		}
	})
}

// ObserveLogin records the outcome of one authentication attempt
func ObserveLogin(err error) {
	LoginsTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveTransfer records the outcome of one transfer request
func ObserveTransfer(err error) {
	TransfersTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveHTTP records one served request
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
