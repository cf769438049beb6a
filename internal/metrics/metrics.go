package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics exposes counters/histograms for appointment lifecycle operations.
type LifecycleMetrics struct {
	operationsTotal *prometheus.CounterVec
	feedbackRating  prometheus.Histogram
	ratingUpdates   *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle collectors on reg, or on the default registerer when reg is nil.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "appointments",
			Name:      "operations_total",
			Help:      "Appointment lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		feedbackRating: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medibook",
			Subsystem: "appointments",
			Name:      "feedback_rating",
			Help:      "Ratings submitted with appointment feedback",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		ratingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "providers",
			Name:      "rating_updates_total",
			Help:      "Provider rating recomputations by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.feedbackRating, m.ratingUpdates)
	return m
}

// ObserveOperation counts one service operation with its outcome label.
func (m *LifecycleMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveFeedback records the rating of one accepted feedback submission.
func (m *LifecycleMetrics) ObserveFeedback(rating int) {
	if m == nil {
		return
	}
	m.feedbackRating.Observe(float64(rating))
}

// ObserveRatingUpdate counts one provider rating recomputation with its outcome.
func (m *LifecycleMetrics) ObserveRatingUpdate(outcome string) {
	if m == nil {
		return
	}
	m.ratingUpdates.WithLabelValues(outcome).Inc()
}
