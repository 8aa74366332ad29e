package service

import "bookingreminder/internal/domain/constant"

// Delivery outcomes reported to Metrics.
const (
	OutcomeSent      = "sent"
	OutcomeDuplicate = "duplicate"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
)

// Metrics receives operational counters from the reminder services.
type Metrics interface {
	RemindersScheduled(n int)
	RemindersCancelled(n int)
	DeliveryOutcome(outcome string)
	QueueDepth(counts map[constant.JobState]int64)
}

type nopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RemindersScheduled(int) {}
func (nopMetrics) RemindersCancelled(int) {}
func (nopMetrics) DeliveryOutcome(string) {}
func (nopMetrics) QueueDepth(map[constant.JobState]int64) {}
