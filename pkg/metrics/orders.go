package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes used as the result label.
const (
	CheckoutResultPlaced   = "placed"
	CheckoutResultEmpty    = "empty"
	CheckoutResultConflict = "conflict"
	CheckoutResultError    = "error"
)

// OrderMetrics records checkout, status machine and cart merge activity.
type OrderMetrics struct {
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	transitions      *prometheus.CounterVec
	cartMerges       prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent inside the checkout transaction.",
		Buckets: prometheus.DefBuckets,
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	cartMerges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_merges_total",
		Help: "Session carts merged into user carts.",
	})
	reg.MustRegister(checkouts, checkoutDuration, transitions, cartMerges)
	return &OrderMetrics{
		checkouts:        checkouts,
		checkoutDuration: checkoutDuration,
		transitions:      transitions,
		cartMerges:       cartMerges,
	}
}

// ObserveCheckout records one checkout attempt.
func (m *OrderMetrics) ObserveCheckout(result string, elapsed time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
	m.checkoutDuration.Observe(elapsed.Seconds())
}

// IncStatusTransition counts a status change that was persisted.
func (m *OrderMetrics) IncStatusTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncCartMerge counts a completed cart merge.
func (m *OrderMetrics) IncCartMerge() {
	if m == nil || m.cartMerges == nil {
		return
	}
	m.cartMerges.Inc()
}
