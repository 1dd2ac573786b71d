package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the marketplace backend.
type Metrics struct {
	// Payment metrics
	PaymentsTotal    *prometheus.CounterVec
	GatewayCallbacks *prometheus.CounterVec

	// Promotion metrics
	PromotionsTotal       *prometheus.CounterVec
	PromotionSweepCleared prometheus.Counter

	// Moderation metrics
	ApplicationsSubmitted prometheus.Counter
	ModerationDecisions   *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalDecisions *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the singleton metrics instance.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		PaymentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_payments_total",
			Help: "Payment records created, by type",
		}, []string{"type"}),
		GatewayCallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_gateway_callbacks_total",
			Help: "Payment gateway callbacks, by provider and outcome",
		}, []string{"provider", "outcome"}),
		PromotionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_promotions_total",
			Help: "Channel promotions purchased, by tier",
		}, []string{"tier"}),
		PromotionSweepCleared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_promotion_sweep_cleared_total",
			Help: "Expired ULTRA TOP promotions cleared by the sweep",
		}),
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_applications_submitted_total",
			Help: "Channel applications submitted",
		}),
		ModerationDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_moderation_decisions_total",
			Help: "Moderation decisions, by outcome",
		}, []string{"outcome"}),
		WithdrawalDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_withdrawal_decisions_total",
			Help: "Withdrawal request decisions, by outcome",
		}, []string{"outcome"}),
	}
}
