package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics records cart and checkout activity.
type ShopMetrics struct {
	cartOps     *prometheus.CounterVec
	cartEvents  *prometheus.CounterVec
	checkouts   *prometheus.CounterVec
	orderTotals prometheus.Histogram
}

// NewShopMetrics registers the shop metrics on the provided registerer.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by name and outcome.",
	}, []string{"operation", "outcome"})
	cartEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_events_total",
		Help: "Stock advisories raised by cart operations.",
	}, []string{"type"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})
	orderTotals := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Grand total of placed orders.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500},
	})
	reg.MustRegister(cartOps, cartEvents, checkouts, orderTotals)
	return &ShopMetrics{
		cartOps:     cartOps,
		cartEvents:  cartEvents,
		checkouts:   checkouts,
		orderTotals: orderTotals,
	}
}

// ObserveCartOperation counts one cart operation.
func (m *ShopMetrics) ObserveCartOperation(op, outcome string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// ObserveCartEvent counts one stock advisory.
func (m *ShopMetrics) ObserveCartEvent(eventType string) {
	if m == nil || m.cartEvents == nil {
		return
	}
	m.cartEvents.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveCheckout counts one checkout submission.
func (m *ShopMetrics) ObserveCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderTotal records the grand total of a placed order.
func (m *ShopMetrics) ObserveOrderTotal(total float64) {
	if m == nil || m.orderTotals == nil {
		return
	}
	m.orderTotals.Observe(total)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
