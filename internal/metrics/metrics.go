package metrics

import (
	"context"
	"strconv"

	"monety/internal/invest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monety_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monety_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monety_ledger_entries_total",
			Help: "Ledger transactions recorded, by type",
		},
		[]string{"type"},
	)

	PayoutRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monety_payout_investments_total",
			Help: "Investments processed by the daily payout, by outcome",
		},
		[]string{"outcome"},
	)

	CascadeSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monety_commission_cascades_total",
			Help: "Commission cascades settled by the sweep, by outcome",
		},
		[]string{"outcome"},
	)

	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monety_user_lock_busy_total",
			Help: "Requests rejected because another request for the same user held the lock",
		},
	)
)

func ObserveHTTP(method, path string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPResponseTime.WithLabelValues(method, path).Observe(seconds)
}

func ObservePayout(paid, completed, failed int) {
	PayoutRuns.WithLabelValues("paid").Add(float64(paid))
	PayoutRuns.WithLabelValues("completed").Add(float64(completed))
	PayoutRuns.WithLabelValues("failed").Add(float64(failed))
}

func ObserveSettle(settled, failed int) {
	CascadeSettled.WithLabelValues("settled").Add(float64(settled))
	CascadeSettled.WithLabelValues("failed").Add(float64(failed))
}

// Notifier counts ledger entries and forwards each event to Next.
type Notifier struct {
	Next invest.Notifier
}

func (n Notifier) Publish(ctx context.Context, ev invest.BalanceEvent) {
	LedgerEntries.WithLabelValues(string(ev.Type)).Inc()
	if n.Next != nil {
		n.Next.Publish(ctx, ev)
	}
}
