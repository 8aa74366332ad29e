package service

import (
	"context"

	"bookingreminder/internal/domain/entity"
)

// ReminderWorker consumes due reminder jobs and delivers them.
type ReminderWorker interface {
	// Start requeues jobs stranded by a previous process and starts the
	// dispatch, retention and statistics loops.
	Start(ctx context.Context) error
	// Close stops the loops and waits for in-flight jobs to finish.
	Close() error
	// Dispatch claims due jobs while a concurrency slot is free and starts
	// them, honouring the rate limit. It returns the number of jobs started.
	Dispatch(ctx context.Context) int
	// ProcessReminderJob delivers a single job. A nil error means the job is
	// done (sent, duplicate or stale); an error means the attempt failed and
	// the job store decides about the retry.
	ProcessReminderJob(ctx context.Context, job *entity.ReminderJob) error
}
