package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reservation workflow metrics
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_reservations_total",
		Help: "Total number of reservation workflow operations",
	}, []string{
		"operation", // create, pay, cancel
		"outcome",   // success, rejected, failed
	})

	reservationRevenue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_reservation_revenue_total",
		Help: "Total paid reservation amount (for revenue tracking)",
	}, []string{
		"payment_method",
	})

	reservationDiscount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_reservation_discount_total",
		Help: "Total discount granted across created reservations",
	}, []string{
		"promotion", // name of the highest-priority applied promotion, or "none"
	})

	// Workflow duration (end-to-end, including the database transaction)
	workflowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticketing_workflow_duration_seconds",
		Help:    "Time to run a reservation or refund workflow operation",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{
		"operation",
	})

	// Ticket issuance metrics
	ticketsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_tickets_issued_total",
		Help: "Total tickets issued on payment",
	}, []string{
		"ticket_type",
	})

	// Refund workflow metrics
	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_refunds_total",
		Help: "Total refund workflow operations",
	}, []string{
		"operation", // request, process, batch_item
		"outcome",   // completed, pending, approved, rejected, conflict, failed
	})

	refundedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketing_refunded_amount_total",
		Help: "Total amount refunded to visitors",
	})

	// Promotion metrics
	promotionApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_promotion_applications_total",
		Help: "Total times a promotion was applied to a reservation",
	}, []string{
		"promotion",
	})

	// Membership collaborator metrics
	pointAwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_point_awards_total",
		Help: "Total gift-point awards published to the membership service",
	}, []string{
		"outcome", // published, failed
	})
)

// RecordReservation records one reservation workflow operation
func RecordReservation(operation, outcome string, duration float64) {
	reservationsTotal.WithLabelValues(operation, outcome).Inc()
	workflowDuration.WithLabelValues(operation).Observe(duration)
}

// RecordRevenue adds a paid reservation's amount to the revenue counter
func RecordRevenue(paymentMethod string, amount float64) {
	reservationRevenue.WithLabelValues(paymentMethod).Add(amount)
}

// RecordDiscount records the discount granted at reservation creation
func RecordDiscount(promotion string, amount float64) {
	if promotion == "" {
		promotion = "none"
	}
	reservationDiscount.WithLabelValues(promotion).Add(amount)
}

// RecordTicketsIssued records tickets issued for one ticket type
func RecordTicketsIssued(ticketType string, count int) {
	ticketsIssuedTotal.WithLabelValues(ticketType).Add(float64(count))
}

// RecordRefund records one refund workflow operation
func RecordRefund(operation, outcome string, duration float64) {
	refundsTotal.WithLabelValues(operation, outcome).Inc()
	workflowDuration.WithLabelValues("refund_" + operation).Observe(duration)
}

// RecordRefundedAmount adds a completed refund's amount to the refunded counter
func RecordRefundedAmount(amount float64) {
	refundedAmount.Add(amount)
}

// RecordPromotionApplied records one application of a promotion
func RecordPromotionApplied(promotion string) {
	promotionApplications.WithLabelValues(promotion).Inc()
}

// RecordPointAward records the outcome of publishing a gift-point award
func RecordPointAward(outcome string) {
	pointAwardsTotal.WithLabelValues(outcome).Inc()
}
