// Package metrics holds the Prometheus collectors of the scheduling service.
package metrics

import (
	"errors"

	"civicdesk/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Booking outcomes used as the "result" label of BookingsTotal.
const (
	ResultBooked   = "booked"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// BookingsTotal counts booking attempts by outcome.
var BookingsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scheduling",
	Name:      "bookings_total",
	Help:      "Booking attempts by result (booked, conflict, rejected, error)",
}, []string{"result"})

// OptimizerAssignedTotal counts appointments given an agent by the load balancer.
var OptimizerAssignedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "scheduling",
	Name:      "optimizer_assigned_total",
	Help:      "Appointments assigned to an agent by the load balancer",
})

// OptimizerSkippedTotal counts appointments the load balancer could not place.
var OptimizerSkippedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "scheduling",
	Name:      "optimizer_skipped_total",
	Help:      "Appointments left unassigned because every eligible agent was full",
})

// SlotQueryDuration tracks availability lookups.
var SlotQueryDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduling",
	Name:      "slot_query_duration_seconds",
	Help:      "Latency of findAvailableSlots",
	Buckets:   prometheus.DefBuckets,
})

// RemindersEnqueuedTotal counts reminder tasks handed to the queue, by result.
var RemindersEnqueuedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scheduling",
	Name:      "reminders_enqueued_total",
	Help:      "Reminder tasks enqueued by result (ok, error, skipped)",
}, []string{"result"})

// BookingResult maps a booking error to its metric label.
func BookingResult(err error) string {
	switch {
	case err == nil:
		return ResultBooked
	case errors.Is(err, models.ErrSlotConflict):
		return ResultConflict
	case errors.Is(err, models.ErrTransient):
		return ResultError
	default:
		return ResultRejected
	}
}
