package repository

import (
	"context"
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
)

// ReminderJobStore is the durable, delay-capable queue holding reminder jobs.
// It is the only writer of job state; workers report outcomes through
// Complete and Fail.
type ReminderJobStore interface {
	// Enqueue stores job to become due after delay. The job ID is an
	// idempotency key: an existing waiting/delayed/active job is left untouched
	// and false is returned; a completed or failed job is overwritten.
	Enqueue(ctx context.Context, job *entity.ReminderJob, delay time.Duration) (bool, error)
	// Remove deletes a job. It returns false if the job does not exist.
	Remove(ctx context.Context, id string) (bool, error)
	// ListByStates returns every job in one of the given states.
	ListByStates(ctx context.Context, states ...constant.JobState) ([]*entity.ReminderJob, error)
	// ListByBooking returns the jobs of one booking in the given states, or in
	// any state when none are given, ordered by reminder number.
	ListByBooking(ctx context.Context, bookingID string, states ...constant.JobState) ([]*entity.ReminderJob, error)
	// GetState returns the state of a job, or ErrJobNotFound.
	GetState(ctx context.Context, id string) (constant.JobState, error)
	// Counts returns the number of jobs per state.
	Counts(ctx context.Context, states ...constant.JobState) (map[constant.JobState]int64, error)

	// ClaimNext atomically moves the oldest due job to active and counts the attempt.
	// It returns nil when nothing is due.
	ClaimNext(ctx context.Context, now time.Time) (*entity.ReminderJob, error)
	// Complete marks an active job completed.
	Complete(ctx context.Context, id string, now time.Time) error
	// Fail records a failed attempt and applies the retry policy: the job is
	// delayed for the backoff or, once attempts are exhausted, marked failed.
	Fail(ctx context.Context, id string, cause error, now time.Time) (constant.JobState, error)
	// RequeueActive moves jobs left active by a stopped process back to waiting.
	RequeueActive(ctx context.Context, now time.Time) (int64, error)
	// DeleteFinishedBefore removes jobs in state that finished before threshold.
	DeleteFinishedBefore(ctx context.Context, state constant.JobState, threshold time.Time) (int64, error)
}
