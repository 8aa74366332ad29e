package metrics

import (
	"net/http"

	"bookingreminder/internal/domain/constant"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records reminder activity as Prometheus metrics.
type Prometheus struct {
	scheduled  prometheus.Counter
	cancelled  prometheus.Counter
	deliveries *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	gatherer   prometheus.Gatherer
}

// NewPrometheus registers the reminder metrics on reg. When reg is nil a
// fresh registry is used.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Prometheus{
		scheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_reminders_scheduled_total",
			Help: "Total number of reminder jobs enqueued.",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_reminders_cancelled_total",
			Help: "Total number of reminder jobs removed by booking changes.",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_reminder_deliveries_total",
			Help: "Reminder delivery attempts by outcome.",
		}, []string{"outcome"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "booking_reminder_jobs",
			Help: "Current number of reminder jobs by state.",
		}, []string{"state"}),
		gatherer: reg,
	}
}

func (m *Prometheus) RemindersScheduled(n int) {
	m.scheduled.Add(float64(n))
}

func (m *Prometheus) RemindersCancelled(n int) {
	m.cancelled.Add(float64(n))
}

func (m *Prometheus) DeliveryOutcome(outcome string) {
	m.deliveries.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) QueueDepth(counts map[constant.JobState]int64) {
	for state, n := range counts {
		m.queueDepth.WithLabelValues(string(state)).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
